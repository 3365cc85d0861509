// Package subkey derives deterministic subkeys from a single parent key.
//
// A subkey is a function of the parent key, a 64-bit index and an 8-byte context
// tag. The same inputs always reproduce the same subkey, and subkeys for different
// indices or contexts are computationally independent, so per-session, per-purpose
// or per-peer keys can be regenerated on demand instead of being stored.
//
// The package provides:
//   - Derive, compatible bit for bit with libsodium's crypto_kdf_derive_from_key
//   - SecBuf, fixed-size buffers with scoped read and write views, backed by
//     mlock'ed, guard-paged, mprotect'ed memory when allocated with NewSecure
//   - pluggable derivation primitives (BLAKE2b, HKDF-SHA256) and a Registry to
//     select them by name
//   - helpers to load, encode, fingerprint and wipe key material
//
// # Quick Start
//
//	parent, err := subkey.NewSecure(subkey.KeyBytes)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer parent.Free()
//	if err := subkey.RandomFill(parent); err != nil {
//		log.Fatal(err)
//	}
//
//	context := subkey.NewInsecure(subkey.ContextBytes)
//	w, _ := context.WriteLock()
//	copy(w.Bytes(), "app-v1  ")
//	w.Release()
//
//	sessionKey, err := subkey.NewSecure(32)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sessionKey.Free()
//
//	if err := subkey.Derive(sessionKey, 42, context, parent); err != nil {
//		log.Fatal(err)
//	}
//
// # Buffer Contract
//
// Derive validates before touching secret material: the output must be between
// BytesMin and BytesMax bytes and the context exactly ContextBytes bytes, otherwise
// an ErrCodeOutputLength error is returned and no buffer is modified. The parent key
// must be KeyBytes long; this is enforced by the primitive and reported as
// ErrCodePrimitiveFailure.
//
// During derivation the output is write-locked and the parent and context are
// read-locked. Locks on several buffers are always taken in allocation order and
// released on every path, so concurrent derivations that share buffers neither
// deadlock nor observe partial output.
//
// # Choosing a Primitive
//
// The default construction is keyed BLAKE2b as in libsodium. HKDF-SHA256 is
// available for deployments that mandate HKDF; it yields different keys.
//
//	registry := subkey.NewDefaultRegistry()
//	deriver, err := registry.Deriver(subkey.HKDFPrimitiveName, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = deriver.Derive(sessionKey, 42, context, parent)
//
// # Memory Hygiene
//
// Secure buffers keep their bytes in locked, guard-paged memory that is
// inaccessible while no view is held and wiped by Free. The package itself never
// retains the parent key outside a view: pooled scratch buffers and staged output
// are zeroed before reuse.
//
// The hash implementations are a limit. BLAKE2b (github.com/minio/blake2b-simd)
// copies the key into its digest state and HMAC inside HKDF (golang.org/x/crypto/hkdf)
// derives padded key blocks; both live on the Go heap for the duration of one
// derivation and are not wiped, because neither library exposes its state.
// Deployments that must rule this out entirely should keep the parent in an HSM
// behind a PluginPrimitive with a configured KeyID; the parent buffer passed to
// Derive is then only a placeholder and the real key never enters this process.
//
// # Errors
//
// All errors are github.com/agilira/go-errors values carrying one of the ErrCode*
// constants. Use IsOutputLength, IsPrimitiveFailure or goerrors.HasCode to inspect them.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package subkey
