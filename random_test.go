// random_test.go: Tests for RandomFill.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	goerrors "github.com/agilira/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomFill(t *testing.T) {
	for _, secure := range []bool{true, false} {
		a := newTestBuffer(t, secure, KeyBytes)
		b := newTestBuffer(t, secure, KeyBytes)
		require.NoError(t, RandomFill(a))
		require.NoError(t, RandomFill(b))

		ra, err := a.ReadLock()
		require.NoError(t, err)
		rb, err := b.ReadLock()
		require.NoError(t, err)

		assert.NotEqual(t, make([]byte, KeyBytes), ra.Bytes())
		assert.NotEqual(t, ra.Bytes(), rb.Bytes())
		ra.Release()
		rb.Release()
	}
}

func TestRandomFill_FailureLeavesBufferUntouched(t *testing.T) {
	buf := NewInsecure(KeyBytes)
	w, err := buf.WriteLock()
	require.NoError(t, err)
	copy(w.Bytes(), bytes.Repeat([]byte{0x42}, KeyBytes))
	w.Release()

	// A source that runs dry halfway through.
	src := io.MultiReader(bytes.NewReader(make([]byte, KeyBytes/2)), iotest.ErrReader(errors.New("entropy exhausted")))
	err = randomFill(buf, src)
	require.Error(t, err)
	assert.True(t, goerrors.HasCode(err, ErrCodeRandom))

	r, err := buf.ReadLock()
	require.NoError(t, err)
	defer r.Release()
	assert.Equal(t, bytes.Repeat([]byte{0x42}, KeyBytes), r.Bytes())
}

func TestRandomFill_DeterministicSource(t *testing.T) {
	buf := NewInsecure(4)
	require.NoError(t, randomFill(buf, bytes.NewReader([]byte{1, 2, 3, 4, 5})))

	r, err := buf.ReadLock()
	require.NoError(t, err)
	defer r.Release()
	assert.Equal(t, []byte{1, 2, 3, 4}, r.Bytes())
}

func TestRandomFill_FreedBuffer(t *testing.T) {
	buf := NewInsecure(8)
	require.NoError(t, buf.Free())

	err := RandomFill(buf)
	assert.True(t, goerrors.HasCode(err, ErrCodeBufferFreed))

	assert.Error(t, RandomFill(nil))
}
