// hkdf.go: HKDF-SHA256 subkey derivation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/crypto/hkdf"
)

// HKDFPrimitiveName is the registry name of HKDFPrimitive.
const HKDFPrimitiveName = "hkdf-sha256"

// hkdfLabel prefixes the HKDF info field so these subkeys never collide with
// other HKDF uses of the same parent key.
const hkdfLabel = "subkey"

// HKDFPrimitive derives subkeys with HKDF-SHA256 (RFC 5869):
//
//	subkey = HKDF-Expand(HKDF-Extract(nil, parent), "subkey" || context || LE64(index), len(out))
//
// It uses the same sizes as Blake2bPrimitive but its output is NOT compatible with
// libsodium. Use it where HKDF is the mandated construction.
type HKDFPrimitive struct{}

// Name returns HKDFPrimitiveName.
func (HKDFPrimitive) Name() string { return HKDFPrimitiveName }

// KeyBytes returns the required parent key length, KeyBytes.
func (HKDFPrimitive) KeyBytes() int { return KeyBytes }

// ContextBytes returns the required context length, ContextBytes.
func (HKDFPrimitive) ContextBytes() int { return ContextBytes }

// BytesMin returns the shortest supported subkey, BytesMin.
func (HKDFPrimitive) BytesMin() int { return BytesMin }

// BytesMax returns the longest supported subkey, BytesMax.
func (HKDFPrimitive) BytesMax() int { return BytesMax }

// DeriveFromKey implements Primitive.
func (p HKDFPrimitive) DeriveFromKey(out []byte, index uint64, context, key []byte) error {
	if err := checkBoundary(p, out, context, key); err != nil {
		return err
	}

	info := getBuffer(len(hkdfLabel) + ContextBytes + 8)
	defer putBuffer(info)
	n := copy(*info, hkdfLabel)
	n += copy((*info)[n:], context)
	binary.LittleEndian.PutUint64((*info)[n:], index)

	// Stage the output so a failing reader never leaves a partial key in out.
	staged := getBuffer(len(out))
	defer putBuffer(staged)

	r := hkdf.New(sha256.New, key, nil, *info)
	if _, err := io.ReadFull(r, *staged); err != nil {
		return goerrors.Wrap(err, ErrCodePrimitiveFailure, "HKDF expansion failed")
	}
	copy(out, *staged)
	return nil
}
