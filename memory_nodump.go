// memory_nodump.go: Core dump exclusion is Linux only.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build unix && !linux

package subkey

func excludeFromCoreDump([]byte) {}
