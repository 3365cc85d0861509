// keyutils_test.go: Test cases for key utilities.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey_test

import (
	"crypto/rand"
	"strings"
	"testing"

	goerrors "github.com/agilira/go-errors"

	"github.com/agilira/subkey"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, subkey.KeyBytes)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand.Read() error: %v", err)
	}
	return key
}

func TestKeyBase64RoundTrip(t *testing.T) {
	key := randomKey(t)
	defer subkey.Zeroize(key) // Zero-out sensitive test data

	b64 := subkey.KeyToBase64(key)
	restored, err := subkey.KeyFromBase64(b64)
	if err != nil {
		t.Fatalf("KeyFromBase64() error: %v", err)
	}
	defer subkey.Zeroize(restored)
	if string(key) != string(restored) {
		t.Errorf("Base64 round-trip failed: expected %x, got %x", key, restored)
	}

	// Trailing newlines from files and pipes are tolerated.
	restored2, err := subkey.KeyFromBase64(b64 + "\n")
	if err != nil {
		t.Fatalf("KeyFromBase64() with newline error: %v", err)
	}
	if string(key) != string(restored2) {
		t.Error("Base64 decoding with surrounding whitespace changed the key")
	}

	_, err = subkey.KeyFromBase64("not-base64!!")
	if err == nil {
		t.Fatal("Expected error for invalid base64 input")
	}
	if !goerrors.HasCode(err, subkey.ErrCodeDecode) {
		t.Errorf("Expected %s, got %v", subkey.ErrCodeDecode, err)
	}
}

func TestKeyHexRoundTrip(t *testing.T) {
	key := randomKey(t)
	hexStr := subkey.KeyToHex(key)
	if hexStr != strings.ToLower(hexStr) {
		t.Errorf("KeyToHex should produce lowercase output, got %s", hexStr)
	}

	restored, err := subkey.KeyFromHex(strings.ToUpper(hexStr))
	if err != nil {
		t.Fatalf("KeyFromHex() error: %v", err)
	}
	if string(key) != string(restored) {
		t.Errorf("Hex round-trip failed: expected %x, got %x", key, restored)
	}

	_, err = subkey.KeyFromHex("nothex!!")
	if !goerrors.HasCode(err, subkey.ErrCodeDecode) {
		t.Errorf("Expected %s for invalid hex input, got %v", subkey.ErrCodeDecode, err)
	}
	_, err = subkey.KeyFromHex("abc")
	if err == nil {
		t.Error("Expected error for odd-length hex input")
	}
}

func TestZeroize(t *testing.T) {
	key := []byte("sensitive-data")
	subkey.Zeroize(key)
	for _, b := range key {
		if b != 0 {
			t.Error("Zeroize failed: found non-zero byte")
		}
	}
	subkey.Zeroize(nil)
}

func TestFingerprint(t *testing.T) {
	fingerprint := func(key []byte) string {
		t.Helper()
		buf := subkey.NewInsecure(len(key))
		w, err := buf.WriteLock()
		if err != nil {
			t.Fatalf("WriteLock() error: %v", err)
		}
		copy(w.Bytes(), key)
		w.Release()

		r, err := buf.ReadLock()
		if err != nil {
			t.Fatalf("ReadLock() error: %v", err)
		}
		defer r.Release()
		return subkey.Fingerprint(r)
	}

	fp1 := fingerprint([]byte("key-one-123456789012345678901234"))
	fp2 := fingerprint([]byte("key-two-123456789012345678901234"))
	if fp1 == fp2 {
		t.Error("Expected different fingerprints for different keys")
	}
	if len(fp1) != 16 {
		t.Errorf("Expected 16 hex characters, got %q", fp1)
	}
	if fp1 != fingerprint([]byte("key-one-123456789012345678901234")) {
		t.Error("Fingerprint is not stable")
	}
	if subkey.Fingerprint(nil) != "" {
		t.Error("Expected empty fingerprint for nil view")
	}
	if fingerprint(nil) != "" {
		t.Error("Expected empty fingerprint for empty key")
	}
}

func TestLoadSecure(t *testing.T) {
	raw := randomKey(t)
	want := append([]byte(nil), raw...)

	buf, err := subkey.LoadSecure(raw)
	if err != nil {
		t.Fatalf("LoadSecure() error: %v", err)
	}
	defer buf.Free()

	for _, b := range raw {
		if b != 0 {
			t.Fatal("LoadSecure must zeroize its source")
		}
	}
	if !buf.IsSecure() {
		t.Error("LoadSecure must return a secure buffer")
	}

	r, err := buf.ReadLock()
	if err != nil {
		t.Fatalf("ReadLock() error: %v", err)
	}
	defer r.Release()
	if string(r.Bytes()) != string(want) {
		t.Error("LoadSecure did not copy the key")
	}
}

func TestLoadSecure_Empty(t *testing.T) {
	_, err := subkey.LoadSecure(nil)
	if !goerrors.HasCode(err, subkey.ErrCodeSecureAlloc) {
		t.Errorf("Expected %s for empty key, got %v", subkey.ErrCodeSecureAlloc, err)
	}
}
