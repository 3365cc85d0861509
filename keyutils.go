// keyutils.go: Key encoding, zeroization, fingerprinting and secure loading.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	goerrors "github.com/agilira/go-errors"
)

// KeyToBase64 encodes a key as a standard base64 string.
//
// This is the encoding used by the subkey CLI with --encoding base64 and is
// convenient for configuration files and environment variables.
//
// Parameters:
//   - key: The key to encode (can be any byte slice)
//
// Returns:
//   - A base64-encoded string representation of the key
//
// Example:
//
//	view, _ := out.ReadLock()
//	encoded := subkey.KeyToBase64(view.Bytes())
//	view.Release()
func KeyToBase64(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// KeyFromBase64 decodes a standard base64 string to a key.
//
// This function is the inverse of KeyToBase64. Surrounding whitespace, such as
// the trailing newline of a key file, is ignored.
//
// Parameters:
//   - s: The base64-encoded string to decode
//
// Returns:
//   - The decoded key as a byte slice
//   - An ErrCodeDecode error if the input is not valid base64
//
// Example:
//
//	raw, err := subkey.KeyFromBase64(os.Getenv("PARENT_KEY"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	parent, err := subkey.LoadSecure(raw)
func KeyFromBase64(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, goerrors.Wrap(err, ErrCodeDecode, "failed to decode base64 key")
	}
	return key, nil
}

// KeyToHex encodes a key as a hexadecimal string.
//
// The returned string contains only lowercase hexadecimal characters (0-9, a-f).
//
// Parameters:
//   - key: The key to encode (can be any byte slice)
//
// Returns:
//   - A hexadecimal string representation of the key
//
// Example:
//
//	view, _ := out.ReadLock()
//	fmt.Println(subkey.KeyToHex(view.Bytes()))
//	view.Release()
func KeyToHex(key []byte) string {
	return hex.EncodeToString(key)
}

// KeyFromHex decodes a hexadecimal string to a key.
//
// Both upper and lower case digits are accepted. Surrounding whitespace is ignored.
//
// Parameters:
//   - s: The hexadecimal string to decode
//
// Returns:
//   - The decoded key as a byte slice
//   - An ErrCodeDecode error if the input is not valid hexadecimal
//
// Example:
//
//	raw, err := subkey.KeyFromHex("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
//	if err != nil {
//		log.Fatal(err)
//	}
func KeyFromHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, goerrors.Wrap(err, ErrCodeDecode, "failed to decode hex key")
	}
	return key, nil
}

// Zeroize overwrites b with zeros in place.
//
// Use it on every plain byte slice that held key material once it is no longer
// needed. Buffers allocated with NewSecure are wiped by Free and need no call.
//
// Parameters:
//   - b: The slice to wipe (nil is allowed)
//
// Example:
//
//	raw, _ := subkey.KeyFromHex(os.Getenv("PARENT_KEY"))
//	defer subkey.Zeroize(raw)
func Zeroize(b []byte) {
	clearBuffer(b)
}

// Fingerprint returns a short, non-reversible identifier for the viewed key.
//
// The fingerprint is the first 8 bytes of the key's SHA-256 digest as 16 hex
// characters. It is meant for logs and audit trails, where it lets operators tell
// keys apart without revealing them.
//
// Parameters:
//   - view: A read view of the key (nil or empty yields "")
//
// Returns:
//   - The 16-character fingerprint, or "" for an empty key
//
// Example:
//
//	view, _ := parent.ReadLock()
//	logger.Info("parent loaded", "fingerprint", subkey.Fingerprint(view))
//	view.Release()
func Fingerprint(view *ReadView) string {
	return fingerprintBytes(view.Bytes())
}

func fingerprintBytes(key []byte) string {
	if len(key) == 0 {
		return ""
	}
	sum := sha256.Sum256(key)
	defer clearBuffer(sum[:])
	return fmt.Sprintf("%016x", sum[:8])
}

// LoadSecure copies b into a new secure buffer and zeroizes b.
//
// After the call the only remaining copy of the bytes is in protected memory.
// b is zeroized even when allocation fails.
//
// Parameters:
//   - b: The key bytes to move into secure memory
//
// Returns:
//   - A secure buffer of len(b) bytes holding the key
//   - An ErrCodeSecureAlloc error if b is empty or the allocation fails
//
// Example:
//
//	raw, err := subkey.KeyFromHex(encodedParent)
//	if err != nil {
//		return err
//	}
//	parent, err := subkey.LoadSecure(raw) // raw is now all zeros
//	if err != nil {
//		return err
//	}
//	defer parent.Free()
func LoadSecure(b []byte) (*SecBuf, error) {
	defer Zeroize(b)

	buf, err := NewSecure(len(b))
	if err != nil {
		return nil, err
	}

	w, err := buf.WriteLock()
	if err != nil {
		_ = buf.Free()
		return nil, err
	}
	copy(w.Bytes(), b)
	w.Release()
	return buf, nil
}
