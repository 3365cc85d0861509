// random.go: Filling secure buffers from the system CSPRNG.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"crypto/rand"
	"io"

	goerrors "github.com/agilira/go-errors"
)

// RandomFill overwrites buf with cryptographically secure random bytes.
//
// It is meant for tests, samples and tooling; Derive never calls it.
func RandomFill(buf *SecBuf) error {
	return randomFill(buf, rand.Reader)
}

func randomFill(buf *SecBuf, src io.Reader) error {
	w, err := buf.WriteLock()
	if err != nil {
		return err
	}
	defer w.Release()

	// Fill a pooled staging buffer first so a short read leaves buf untouched.
	staged := getBuffer(w.Len())
	defer putBuffer(staged)

	if _, err := io.ReadFull(src, *staged); err != nil {
		return goerrors.Wrap(err, ErrCodeRandom, "failed to read random bytes")
	}
	copy(w.Bytes(), *staged)
	return nil
}
