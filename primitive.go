// primitive.go: Pluggable keyed derivation functions.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// Sizes of the libsodium crypto_kdf construction, shared by the built-in primitives.
const (
	// ContextBytes is the fixed length of a derivation context tag.
	ContextBytes = 8

	// KeyBytes is the required parent key length.
	KeyBytes = 32

	// BytesMin is the shortest subkey that can be derived.
	BytesMin = 16

	// BytesMax is the longest subkey that can be derived.
	BytesMax = 64
)

// Primitive is a deterministic keyed pseudorandom function that fills out from
// (key, context, index).
//
// DeriveFromKey must reject any slice whose length does not match the sizes the
// primitive reports, and must not write to out unless it succeeds. Length errors
// use ErrCodeOutputLength for out and context, ErrCodePrimitiveFailure for key.
type Primitive interface {
	Name() string
	KeyBytes() int
	ContextBytes() int
	BytesMin() int
	BytesMax() int
	DeriveFromKey(out []byte, index uint64, context, key []byte) error
}

// checkBoundary enforces a primitive's size contract on raw slices.
func checkBoundary(p Primitive, out, context, key []byte) error {
	if len(out) < p.BytesMin() || len(out) > p.BytesMax() {
		return goerrors.New(ErrCodeOutputLength,
			fmt.Sprintf("%s cannot derive %d bytes (supported: %d-%d)", p.Name(), len(out), p.BytesMin(), p.BytesMax()))
	}
	if len(context) != p.ContextBytes() {
		return goerrors.New(ErrCodeOutputLength,
			fmt.Sprintf("%s requires a %d-byte context, got %d", p.Name(), p.ContextBytes(), len(context)))
	}
	if len(key) != p.KeyBytes() {
		return goerrors.New(ErrCodePrimitiveFailure,
			fmt.Sprintf("%s requires a %d-byte parent key, got %d", p.Name(), p.KeyBytes(), len(key)))
	}
	return nil
}
