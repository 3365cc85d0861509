// errors.go: Error codes for subkey derivation and secure buffers.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	goerrors "github.com/agilira/go-errors"
)

// Error codes returned by this package. Every error carries exactly one of them
// and can be tested with goerrors.HasCode or the Is* helpers below.
const (
	// ErrCodeOutputLength is returned when the output buffer length is outside the
	// supported bound or the context buffer does not have the fixed context size.
	// Both conditions share this code for compatibility with libsodium-based callers.
	ErrCodeOutputLength = "SUBKEY_OUTPUT_LENGTH"

	// ErrCodePrimitiveFailure is returned when the derivation primitive rejects
	// inputs that passed validation, e.g. a parent key of the wrong size.
	ErrCodePrimitiveFailure = "SUBKEY_PRIMITIVE_FAILURE"

	// ErrCodeBufferAlias is returned when the output buffer is also passed as the
	// parent or context buffer.
	ErrCodeBufferAlias = "SUBKEY_BUFFER_ALIAS"

	// ErrCodeBufferFreed is returned when a nil or freed buffer is locked.
	ErrCodeBufferFreed = "SUBKEY_BUFFER_FREED"

	// ErrCodeSecureAlloc is returned for invalid secure buffer sizes and for
	// mmap or mprotect failures.
	ErrCodeSecureAlloc = "SUBKEY_SECURE_ALLOC"

	// ErrCodeRandom is returned when the entropy source fails.
	ErrCodeRandom = "SUBKEY_RANDOM"

	// ErrCodeUnknownPrimitive is returned by registry lookups of unregistered names.
	ErrCodeUnknownPrimitive = "SUBKEY_UNKNOWN_PRIMITIVE"

	// ErrCodeRegistry is returned for invalid or duplicate registrations and
	// primitives that fail the registration self-test.
	ErrCodeRegistry = "SUBKEY_REGISTRY"

	// ErrCodeDecode is returned when hex or base64 key material cannot be decoded.
	ErrCodeDecode = "SUBKEY_DECODE"

	// ErrCodePlugin is returned when an out-of-process primitive cannot be reached
	// or answers with a malformed response.
	ErrCodePlugin = "SUBKEY_PLUGIN"
)

// IsOutputLength reports whether err was caused by an invalid output or context length.
func IsOutputLength(err error) bool {
	return err != nil && goerrors.HasCode(err, ErrCodeOutputLength)
}

// IsPrimitiveFailure reports whether err was raised by the derivation primitive itself.
func IsPrimitiveFailure(err error) bool {
	return err != nil && goerrors.HasCode(err, ErrCodePrimitiveFailure)
}
