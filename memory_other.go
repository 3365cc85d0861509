// memory_other.go: Heap fallback for platforms without mmap/mprotect.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package subkey

// region on these platforms is plain heap memory. It is still wiped on release
// but cannot be locked or page protected.
type region struct {
	data     []byte
	locked   bool
	released bool
}

func allocRegion(size int) (*region, error) {
	return &region{data: make([]byte, size)}, nil
}

func (r *region) protectNone() error      { return nil }
func (r *region) protectRead() error      { return nil }
func (r *region) protectReadWrite() error { return nil }

func (r *region) release() {
	if r.released {
		return
	}
	r.released = true
	clearBuffer(r.data)
	r.data = nil
}
