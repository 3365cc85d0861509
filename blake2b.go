// blake2b.go: libsodium-compatible subkey derivation (crypto_kdf_derive_from_key).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"encoding/binary"

	goerrors "github.com/agilira/go-errors"
	"github.com/minio/blake2b-simd"
)

// Blake2bPrimitiveName is the registry name of Blake2bPrimitive.
const Blake2bPrimitiveName = "blake2b"

// blake2bParamBytes is the size of the BLAKE2b salt and personalization fields.
const blake2bParamBytes = 16

// Blake2bPrimitive derives subkeys exactly like libsodium's crypto_kdf:
//
//	subkey = BLAKE2b(key = parent, size = len(out), salt = LE64(index) || 0^8,
//	                 personal = context || 0^8, message = "")
//
// Keys derived by libsodium (or any binding of it) are reproduced bit for bit.
type Blake2bPrimitive struct{}

// Name returns Blake2bPrimitiveName.
func (Blake2bPrimitive) Name() string { return Blake2bPrimitiveName }

// KeyBytes returns the required parent key length, KeyBytes.
func (Blake2bPrimitive) KeyBytes() int { return KeyBytes }

// ContextBytes returns the required context length, ContextBytes.
func (Blake2bPrimitive) ContextBytes() int { return ContextBytes }

// BytesMin returns the shortest supported subkey, BytesMin.
func (Blake2bPrimitive) BytesMin() int { return BytesMin }

// BytesMax returns the longest supported subkey, BytesMax.
func (Blake2bPrimitive) BytesMax() int { return BytesMax }

// DeriveFromKey implements Primitive.
func (p Blake2bPrimitive) DeriveFromKey(out []byte, index uint64, context, key []byte) error {
	if err := checkBoundary(p, out, context, key); err != nil {
		return err
	}

	salt := getBuffer(blake2bParamBytes)
	defer putBuffer(salt)
	person := getBuffer(blake2bParamBytes)
	defer putBuffer(person)

	binary.LittleEndian.PutUint64(*salt, index)
	copy(*person, context)

	h, err := blake2b.New(&blake2b.Config{
		Size:   uint8(len(out)), // #nosec G115 -- bounded by checkBoundary
		Key:    key,
		Salt:   *salt,
		Person: *person,
	})
	if err != nil {
		return goerrors.Wrap(err, ErrCodePrimitiveFailure, "failed to initialize keyed BLAKE2b")
	}

	// Sum appends the complete digest; out's backing array receives it in one copy.
	h.Sum(out[:0])
	return nil
}
