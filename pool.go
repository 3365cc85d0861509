// pool.go: Scratch buffer pooling for derivation primitives
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"sync"
)

// Pooled buffers are always fully zero while they sit in a pool.
var (
	// salt, personalization and HKDF info blocks
	smallBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 32)
			return &buf
		},
	}

	// staging area for derived output (BytesMax and below)
	mediumBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 128)
			return &buf
		},
	}
)

// getBuffer retrieves a zeroed buffer of the requested length from the matching pool.
func getBuffer(size int) *[]byte {
	switch {
	case size <= 32:
		buf := smallBufferPool.Get().(*[]byte)
		*buf = (*buf)[:size]
		return buf
	case size <= 128:
		buf := mediumBufferPool.Get().(*[]byte)
		*buf = (*buf)[:size]
		return buf
	default:
		buf := make([]byte, size)
		return &buf
	}
}

// clearBuffer zeroes buf in place.
func clearBuffer(buf []byte) {
	if len(buf) <= 64 {
		for i := range buf {
			buf[i] = 0
		}
		return
	}

	// Unrolled for cache-line sized chunks
	i := 0
	for i < len(buf)-7 {
		buf[i] = 0
		buf[i+1] = 0
		buf[i+2] = 0
		buf[i+3] = 0
		buf[i+4] = 0
		buf[i+5] = 0
		buf[i+6] = 0
		buf[i+7] = 0
		i += 8
	}
	for i < len(buf) {
		buf[i] = 0
		i++
	}
}

// putBuffer zeroes the full capacity of buf and returns it to its pool.
// Buffers that did not come from a pool are only zeroed.
func putBuffer(buf *[]byte) {
	if buf == nil {
		return
	}

	full := (*buf)[:cap(*buf)]
	clearBuffer(full)

	switch cap(full) {
	case 32:
		*buf = full
		smallBufferPool.Put(buf)
	case 128:
		*buf = full
		mediumBufferPool.Put(buf)
	}
}
