// memory_linux.go: Core dump exclusion for secure memory on Linux.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build linux

package subkey

import "golang.org/x/sys/unix"

func excludeFromCoreDump(pages []byte) {
	_ = unix.Madvise(pages, unix.MADV_DONTDUMP)
}
