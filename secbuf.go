// secbuf.go: Secure buffers with scoped read and write views.
//
// A SecBuf owns a fixed-size byte region. Its bytes are only reachable through a
// ReadView or a WriteView, and every view must be released on every exit path:
//
//	view, err := buf.ReadLock()
//	if err != nil {
//		return err
//	}
//	defer view.Release()
//
// Secure buffers (NewSecure) live in an mlock'ed anonymous mapping surrounded by
// guard pages. Their pages are inaccessible while no view is held, read-only while
// read views are held and writable only under the write view. Insecure buffers
// (NewInsecure) use the Go heap and only provide the locking discipline.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	goerrors "github.com/agilira/go-errors"
)

// bufferSeq orders multi-buffer lock acquisition, see acquireViews.
var bufferSeq atomic.Uint64

// SecBuf is a fixed-size buffer for key material.
//
// Read views are shared, the write view is exclusive. A SecBuf must not be copied.
type SecBuf struct {
	seq    uint64
	size   int
	secure bool

	mu    sync.RWMutex // guards data and freed for the lifetime of a view
	freed bool
	data  []byte

	protMu  sync.Mutex // serializes page protection changes between readers
	readers int
	region  *region
}

// NewSecure allocates a hardened buffer of size bytes.
//
// The memory is excluded from swap when the process is allowed to lock it;
// MemoryLocked reports whether that succeeded. The buffer is zeroed and unmapped by
// Free, or when it becomes unreachable.
func NewSecure(size int) (*SecBuf, error) {
	if size <= 0 {
		return nil, goerrors.New(ErrCodeSecureAlloc, fmt.Sprintf("secure buffer size must be positive, got %d", size))
	}

	r, err := allocRegion(size)
	if err != nil {
		return nil, err
	}

	b := &SecBuf{
		seq:    bufferSeq.Add(1),
		size:   size,
		secure: true,
		data:   r.data,
		region: r,
	}
	runtime.AddCleanup(b, func(r *region) { r.release() }, r)
	return b, nil
}

// NewInsecure allocates an ordinary heap buffer of size bytes with the same
// locking API as a secure buffer. A negative size is treated as zero.
func NewInsecure(size int) *SecBuf {
	if size < 0 {
		size = 0
	}
	return &SecBuf{
		seq:  bufferSeq.Add(1),
		size: size,
		data: make([]byte, size),
	}
}

// Len returns the buffer length. It does not require a view.
func (b *SecBuf) Len() int {
	if b == nil {
		return 0
	}
	return b.size
}

// IsSecure reports whether the buffer was allocated with NewSecure.
func (b *SecBuf) IsSecure() bool {
	return b != nil && b.secure
}

// MemoryLocked reports whether the buffer's pages are locked in RAM.
func (b *SecBuf) MemoryLocked() bool {
	return b != nil && b.region != nil && b.region.locked
}

// ReadLock acquires a shared view of the buffer. It blocks while a write view is held.
func (b *SecBuf) ReadLock() (*ReadView, error) {
	if b == nil {
		return nil, goerrors.New(ErrCodeBufferFreed, "cannot lock a nil buffer")
	}

	b.mu.RLock()
	if b.freed {
		b.mu.RUnlock()
		return nil, goerrors.New(ErrCodeBufferFreed, "buffer has been freed")
	}

	if b.secure {
		b.protMu.Lock()
		if b.readers == 0 {
			if err := b.region.protectRead(); err != nil {
				b.protMu.Unlock()
				b.mu.RUnlock()
				return nil, err
			}
		}
		b.readers++
		b.protMu.Unlock()
	}

	return &ReadView{buf: b}, nil
}

// WriteLock acquires the exclusive view of the buffer. It blocks while any other
// view is held.
func (b *SecBuf) WriteLock() (*WriteView, error) {
	if b == nil {
		return nil, goerrors.New(ErrCodeBufferFreed, "cannot lock a nil buffer")
	}

	b.mu.Lock()
	if b.freed {
		b.mu.Unlock()
		return nil, goerrors.New(ErrCodeBufferFreed, "buffer has been freed")
	}

	if b.secure {
		if err := b.region.protectReadWrite(); err != nil {
			b.mu.Unlock()
			return nil, err
		}
	}

	return &WriteView{buf: b}, nil
}

// Free zeroes the buffer and releases its memory. It waits for outstanding views.
// Further lock attempts fail with ErrCodeBufferFreed. Free is idempotent.
func (b *SecBuf) Free() error {
	if b == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.freed {
		return nil
	}
	b.freed = true

	if b.secure {
		b.region.release()
	} else {
		clearBuffer(b.data)
	}
	b.data = nil
	return nil
}

func (b *SecBuf) releaseRead() {
	if b.secure {
		b.protMu.Lock()
		b.readers--
		if b.readers == 0 {
			_ = b.region.protectNone()
		}
		b.protMu.Unlock()
	}
	b.mu.RUnlock()
}

func (b *SecBuf) releaseWrite() {
	if b.secure {
		_ = b.region.protectNone()
	}
	b.mu.Unlock()
}

// ReadView is a shared, read-only window into a SecBuf.
//
// The slice returned by Bytes must not be modified or retained past Release.
// On secure buffers a write through it faults.
type ReadView struct {
	buf      *SecBuf
	released atomic.Bool
}

// Len returns the length of the viewed buffer. A nil view has length zero.
func (v *ReadView) Len() int {
	if v == nil {
		return 0
	}
	return v.buf.size
}

// Bytes returns the buffer contents, or nil once the view is released.
func (v *ReadView) Bytes() []byte {
	if v == nil || v.released.Load() {
		return nil
	}
	return v.buf.data
}

// Release gives the view back. Calling it more than once is a no-op.
func (v *ReadView) Release() {
	if v == nil || !v.released.CompareAndSwap(false, true) {
		return
	}
	v.buf.releaseRead()
}

// WriteView is the exclusive, mutable window into a SecBuf.
type WriteView struct {
	buf      *SecBuf
	released atomic.Bool
}

// Len returns the length of the viewed buffer. A nil view has length zero.
func (v *WriteView) Len() int {
	if v == nil {
		return 0
	}
	return v.buf.size
}

// Bytes returns the writable buffer contents, or nil once the view is released.
func (v *WriteView) Bytes() []byte {
	if v == nil || v.released.Load() {
		return nil
	}
	return v.buf.data
}

// Release gives the view back. Calling it more than once is a no-op.
func (v *WriteView) Release() {
	if v == nil || !v.released.CompareAndSwap(false, true) {
		return
	}
	v.buf.releaseWrite()
}
