// blake2b_test.go: Tests for the libsodium-compatible BLAKE2b primitive.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xblake2b "golang.org/x/crypto/blake2b"
)

func testKey() []byte {
	key := make([]byte, KeyBytes)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

// With index 0 and an all-zero context the salt and personalization blocks are
// zero, which is exactly plain keyed BLAKE2b of the empty message.
func TestBlake2bPrimitive_MatchesKeyedBlake2bWithZeroParams(t *testing.T) {
	key := testKey()
	context := make([]byte, ContextBytes)

	for _, size := range []int{BytesMin, 32, 48, BytesMax} {
		out := make([]byte, size)
		require.NoError(t, Blake2bPrimitive{}.DeriveFromKey(out, 0, context, key))

		h, err := xblake2b.New(size, key)
		require.NoError(t, err)
		assert.Equal(t, h.Sum(nil), out, "size %d", size)
	}
}

// Vectors produced by libsodium's crypto_kdf_derive_from_key with the key
// 00 01 .. 1f, context "KDF test" and a 32-byte subkey.
func TestBlake2bPrimitive_KnownAnswers(t *testing.T) {
	tests := []struct {
		name  string
		index uint64
		want  string
	}{
		{"index 0", 0, "c13fcc2e6cd0cd0f82d93b163a5696c5105378f8c629d36baf3ae0239de9c280"},
		{"index 1", 1, "13fea52bb8cba063f3ed93de27ed07e06d8c6367474e6ae4c9282913ac3c3a03"},
		{"index 3", 3, "7ef2b90a3375020c8ff103e48c6b12674d11506c1c008ff4ff014a75a1593e49"},
		{"high index byte", 1<<56 + 5, "4394185bc1c38114465f6f475ffd56abb1d93e3cadbd3989eb359536d72f116a"},
	}

	key := testKey()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]byte, 32)
			require.NoError(t, Blake2bPrimitive{}.DeriveFromKey(out, tt.index, []byte("KDF test"), key))
			assert.Equal(t, tt.want, hex.EncodeToString(out))
		})
	}
}

func TestBlake2bPrimitive_SaltAndPersonalizationApplied(t *testing.T) {
	key := testKey()
	zeroContext := make([]byte, ContextBytes)

	plain, err := xblake2b.New(32, key)
	require.NoError(t, err)
	reference := plain.Sum(nil)

	withIndex := make([]byte, 32)
	require.NoError(t, Blake2bPrimitive{}.DeriveFromKey(withIndex, 1, zeroContext, key))
	assert.NotEqual(t, reference, withIndex, "index must feed the salt")

	withContext := make([]byte, 32)
	require.NoError(t, Blake2bPrimitive{}.DeriveFromKey(withContext, 0, []byte("KDF test"), key))
	assert.NotEqual(t, reference, withContext, "context must feed the personalization")
}

// Digest size is a BLAKE2b parameter, so a shorter subkey is not a prefix of a longer one.
func TestBlake2bPrimitive_LengthIsDomainSeparated(t *testing.T) {
	key := testKey()
	context := []byte("lengths!")

	short := make([]byte, 32)
	long := make([]byte, 64)
	require.NoError(t, Blake2bPrimitive{}.DeriveFromKey(short, 9, context, key))
	require.NoError(t, Blake2bPrimitive{}.DeriveFromKey(long, 9, context, key))
	assert.False(t, bytes.Equal(short, long[:32]))
}

func TestBlake2bPrimitive_IndexEncoding(t *testing.T) {
	key := testKey()
	context := []byte("encoding")

	// The index is little-endian in the salt; 1 and 1<<56 swap its first and last byte.
	a := make([]byte, 32)
	b := make([]byte, 32)
	require.NoError(t, Blake2bPrimitive{}.DeriveFromKey(a, 1, context, key))
	require.NoError(t, Blake2bPrimitive{}.DeriveFromKey(b, 1<<56, context, key))
	assert.NotEqual(t, a, b)
}

func TestBlake2bPrimitive_BoundaryChecks(t *testing.T) {
	tests := []struct {
		name    string
		outLen  int
		ctxLen  int
		keyLen  int
		errCode string
	}{
		{"output too short", BytesMin - 1, ContextBytes, KeyBytes, ErrCodeOutputLength},
		{"output too long", BytesMax + 1, ContextBytes, KeyBytes, ErrCodeOutputLength},
		{"empty output", 0, ContextBytes, KeyBytes, ErrCodeOutputLength},
		{"short context", 32, 2, KeyBytes, ErrCodeOutputLength},
		{"long context", 32, 16, KeyBytes, ErrCodeOutputLength},
		{"short key", 32, ContextBytes, 16, ErrCodePrimitiveFailure},
		{"long key", 32, ContextBytes, 64, ErrCodePrimitiveFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := bytes.Repeat([]byte{0x5a}, tt.outLen)
			err := Blake2bPrimitive{}.DeriveFromKey(out, 1, make([]byte, tt.ctxLen), make([]byte, tt.keyLen))
			require.Error(t, err)
			if tt.errCode == ErrCodeOutputLength {
				assert.True(t, IsOutputLength(err), "got %v", err)
			} else {
				assert.True(t, IsPrimitiveFailure(err), "got %v", err)
			}
			assert.Equal(t, bytes.Repeat([]byte{0x5a}, tt.outLen), out, "rejected output must be untouched")
		})
	}
}

func TestBlake2bPrimitive_Sizes(t *testing.T) {
	p := Blake2bPrimitive{}
	assert.Equal(t, Blake2bPrimitiveName, p.Name())
	assert.Equal(t, 32, p.KeyBytes())
	assert.Equal(t, 8, p.ContextBytes())
	assert.Equal(t, 16, p.BytesMin())
	assert.Equal(t, 64, p.BytesMax())
}

func BenchmarkBlake2bPrimitive(b *testing.B) {
	key := testKey()
	context := []byte("benchctx")
	out := make([]byte, 32)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := (Blake2bPrimitive{}).DeriveFromKey(out, uint64(i), context, key); err != nil {
			b.Fatal(err)
		}
	}
}
