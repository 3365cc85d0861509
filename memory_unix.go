// memory_unix.go: Hardened memory regions backed by mmap, mlock and mprotect.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build unix

package subkey

import (
	"fmt"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/sys/unix"
)

// region is an anonymous mapping laid out as
//
//	[guard page][data pages][guard page]
//
// Guard pages are never accessible. Data pages are PROT_NONE unless a view is held.
type region struct {
	mapping  []byte
	pages    []byte // data pages, page aligned
	data     []byte // caller-visible bytes, len == cap == requested size
	locked   bool
	released bool
}

func allocRegion(size int) (*region, error) {
	pageSize := unix.Getpagesize()
	dataPages := (size + pageSize - 1) / pageSize
	total := (dataPages + 2) * pageSize

	mapping, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, goerrors.Wrap(err, ErrCodeSecureAlloc, fmt.Sprintf("failed to map %d bytes of secure memory", total))
	}

	r := &region{
		mapping: mapping,
		pages:   mapping[pageSize : pageSize+dataPages*pageSize],
	}
	r.data = r.pages[:size:size]

	if err := unix.Mprotect(mapping[:pageSize], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(mapping)
		return nil, goerrors.Wrap(err, ErrCodeSecureAlloc, "failed to protect leading guard page")
	}
	if err := unix.Mprotect(mapping[total-pageSize:], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(mapping)
		return nil, goerrors.Wrap(err, ErrCodeSecureAlloc, "failed to protect trailing guard page")
	}

	// mlock is best effort: RLIMIT_MEMLOCK is often tiny in containers.
	r.locked = unix.Mlock(r.pages) == nil
	excludeFromCoreDump(r.pages)

	if err := r.protectNone(); err != nil {
		r.release()
		return nil, err
	}
	return r, nil
}

func (r *region) protectNone() error {
	return r.protect(unix.PROT_NONE)
}

func (r *region) protectRead() error {
	return r.protect(unix.PROT_READ)
}

func (r *region) protectReadWrite() error {
	return r.protect(unix.PROT_READ | unix.PROT_WRITE)
}

func (r *region) protect(prot int) error {
	if err := unix.Mprotect(r.pages, prot); err != nil {
		return goerrors.Wrap(err, ErrCodeSecureAlloc, fmt.Sprintf("mprotect(%#x) failed on secure memory", prot))
	}
	return nil
}

// release wipes the data pages and returns the mapping to the kernel. Safe to call twice.
func (r *region) release() {
	if r.released {
		return
	}
	r.released = true

	if unix.Mprotect(r.pages, unix.PROT_READ|unix.PROT_WRITE) == nil {
		clearBuffer(r.pages)
	}
	if r.locked {
		_ = unix.Munlock(r.pages)
	}
	_ = unix.Munmap(r.mapping)
	r.mapping, r.pages, r.data = nil, nil, nil
}
