// derive.go: Subkey derivation from a parent key, an index and a context tag.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"fmt"
	"log/slog"

	goerrors "github.com/agilira/go-errors"
)

// DeriverConfig configures a Deriver.
//
// A nil config is valid and yields a silent Deriver.
type DeriverConfig struct {
	// Logger receives validation and primitive failures. Key material, context
	// bytes and derived bytes are never logged. If nil, nothing is logged.
	Logger *slog.Logger `json:"-"`
}

// Deriver derives subkeys with one fixed Primitive.
//
// A Deriver holds no mutable state and is safe for concurrent use. Calls on
// independent buffers never contend; calls sharing a buffer are serialized by
// that buffer's views.
type Deriver struct {
	primitive Primitive
	logger    *slog.Logger
}

// defaultDeriver backs the package-level Derive. It is never mutated.
var defaultDeriver = &Deriver{
	primitive: Blake2bPrimitive{},
	logger:    slog.New(slog.DiscardHandler),
}

// NewDeriver creates a Deriver using p. A nil p selects Blake2bPrimitive.
func NewDeriver(p Primitive, config *DeriverConfig) (*Deriver, error) {
	if p == nil {
		p = Blake2bPrimitive{}
	}
	if p.BytesMin() <= 0 || p.BytesMin() > p.BytesMax() || p.ContextBytes() <= 0 || p.KeyBytes() <= 0 {
		return nil, goerrors.New(ErrCodeRegistry,
			fmt.Sprintf("primitive %q reports inconsistent sizes", p.Name()))
	}

	logger := slog.New(slog.DiscardHandler)
	if config != nil && config.Logger != nil {
		logger = config.Logger
	}

	return &Deriver{primitive: p, logger: logger}, nil
}

// Primitive returns the primitive used by d.
func (d *Deriver) Primitive() Primitive {
	return d.primitive
}

// Derive derives len(out) bytes from parent, index and context into out using the
// libsodium-compatible BLAKE2b construction.
//
// out must be BytesMin to BytesMax bytes long, context exactly ContextBytes and
// parent KeyBytes. Length violations for out or context fail with
// ErrCodeOutputLength before parent is touched. On any error out is left as it was.
//
// Example:
//
//	parent, _ := subkey.NewSecure(subkey.KeyBytes)
//	_ = subkey.RandomFill(parent)
//	ctx := subkey.NewInsecure(subkey.ContextBytes)
//	w, _ := ctx.WriteLock()
//	copy(w.Bytes(), "app-v1  ")
//	w.Release()
//
//	out, _ := subkey.NewSecure(32)
//	if err := subkey.Derive(out, 1, ctx, parent); err != nil {
//		log.Fatal(err)
//	}
func Derive(out *SecBuf, index uint64, context, parent *SecBuf) error {
	return defaultDeriver.Derive(out, index, context, parent)
}

// Derive derives len(out) bytes from parent, index and context into out with d's
// primitive. See the package-level Derive for the buffer contract.
func (d *Deriver) Derive(out *SecBuf, index uint64, context, parent *SecBuf) error {
	if err := d.validate(out, context); err != nil {
		d.logger.Debug("subkey derivation rejected",
			"primitive", d.primitive.Name(),
			"out_len", out.Len(),
			"context_len", context.Len(),
			"error", err)
		return err
	}

	if parent == nil {
		return goerrors.New(ErrCodePrimitiveFailure, "parent key buffer is nil")
	}
	if out == parent || out == context {
		return goerrors.New(ErrCodeBufferAlias, "output buffer must not be the parent or context buffer")
	}

	views, err := acquireViews(writeLock(out), readLock(context), readLock(parent))
	if err != nil {
		return err
	}
	defer views.release()

	err = d.primitive.DeriveFromKey(
		views.writer(out).Bytes(),
		index,
		views.reader(context).Bytes(),
		views.reader(parent).Bytes(),
	)
	if err == nil {
		return nil
	}

	d.logger.Error("subkey primitive failed",
		"primitive", d.primitive.Name(),
		"out_len", out.Len(),
		"parent_len", parent.Len(),
		"error", err)

	if IsOutputLength(err) || IsPrimitiveFailure(err) {
		return err
	}
	return goerrors.Wrap(err, ErrCodePrimitiveFailure, fmt.Sprintf("%s derivation failed", d.primitive.Name()))
}

// validate checks out and context lengths under read views and releases them
// before returning. It never writes to either buffer.
func (d *Deriver) validate(out, context *SecBuf) error {
	views, err := acquireViews(readLock(out), readLock(context))
	if err != nil {
		return err
	}
	defer views.release()

	o := views.reader(out).Len()
	if o < d.primitive.BytesMin() || o > d.primitive.BytesMax() {
		return goerrors.New(ErrCodeOutputLength,
			fmt.Sprintf("invalid 'out' buffer length: %d (must be between %d and %d)", o, d.primitive.BytesMin(), d.primitive.BytesMax()))
	}

	c := views.reader(context).Len()
	if c != d.primitive.ContextBytes() {
		return goerrors.New(ErrCodeOutputLength,
			fmt.Sprintf("context must be a buffer of length %d, got %d", d.primitive.ContextBytes(), c))
	}
	return nil
}
