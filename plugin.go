// plugin.go: Primitives hosted out of process through go-plugins.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/agilira/go-errors"
	goplugins "github.com/agilira/go-plugins"
)

// PluginOperationDerive is the PrimitiveRequest operation for a derivation.
const PluginOperationDerive = "derive"

// DefaultPluginTimeout bounds a single plugin derivation when no timeout is configured.
const DefaultPluginTimeout = 5 * time.Second

// primitiveExecutor is the part of the go-plugins manager a PluginPrimitive needs.
type primitiveExecutor interface {
	Execute(ctx context.Context, pluginName string, request PrimitiveRequest) (PrimitiveResponse, error)
}

var _ primitiveExecutor = (*goplugins.Manager[PrimitiveRequest, PrimitiveResponse])(nil)

// PluginPrimitiveConfig configures a PluginPrimitive.
type PluginPrimitiveConfig struct {
	// KeyID names the parent key held by the plugin. If empty, the Fingerprint of
	// the parent passed to DeriveFromKey is sent instead, so a plugin holding the
	// same key can find it without the key ever crossing the process boundary.
	KeyID string `json:"key_id"`

	// Timeout bounds each derivation. Zero selects DefaultPluginTimeout.
	Timeout time.Duration `json:"timeout"`
}

// PluginPrimitive is a Primitive whose derivations run in a go-plugins plugin,
// for example one fronting an HSM. It uses the standard sizes of this package.
//
// The parent key bytes are never sent; only a key identifier, the index, the
// context and the requested length are.
type PluginPrimitive struct {
	executor   primitiveExecutor
	pluginName string
	keyID      string
	timeout    time.Duration
}

// NewPluginPrimitive returns a Primitive that calls pluginName through manager.
func NewPluginPrimitive(manager *goplugins.Manager[PrimitiveRequest, PrimitiveResponse], pluginName string, config *PluginPrimitiveConfig) (*PluginPrimitive, error) {
	if manager == nil {
		return nil, goerrors.New(ErrCodePlugin, "plugin manager cannot be nil")
	}
	return newPluginPrimitive(manager, pluginName, config)
}

func newPluginPrimitive(executor primitiveExecutor, pluginName string, config *PluginPrimitiveConfig) (*PluginPrimitive, error) {
	if pluginName == "" {
		return nil, goerrors.New(ErrCodePlugin, "plugin name cannot be empty")
	}
	if config == nil {
		config = &PluginPrimitiveConfig{}
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultPluginTimeout
	}
	return &PluginPrimitive{
		executor:   executor,
		pluginName: pluginName,
		keyID:      config.KeyID,
		timeout:    timeout,
	}, nil
}

// Name returns the name of the plugin serving the derivations.
func (p *PluginPrimitive) Name() string { return p.pluginName }

// KeyBytes returns KeyBytes.
func (p *PluginPrimitive) KeyBytes() int { return KeyBytes }

// ContextBytes returns ContextBytes.
func (p *PluginPrimitive) ContextBytes() int { return ContextBytes }

// BytesMin returns BytesMin.
func (p *PluginPrimitive) BytesMin() int { return BytesMin }

// BytesMax returns BytesMax.
func (p *PluginPrimitive) BytesMax() int { return BytesMax }

// DeriveFromKey implements Primitive by sending a PrimitiveRequest to the plugin.
// out is written only when the plugin returns a subkey of exactly len(out) bytes.
func (p *PluginPrimitive) DeriveFromKey(out []byte, index uint64, tag, key []byte) error {
	if err := checkBoundary(p, out, tag, key); err != nil {
		return err
	}

	keyID := p.keyID
	if keyID == "" {
		keyID = fingerprintBytes(key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	resp, err := p.executor.Execute(ctx, p.pluginName, PrimitiveRequest{
		Operation: PluginOperationDerive,
		KeyID:     keyID,
		Index:     index,
		Context:   append([]byte(nil), tag...),
		Length:    len(out),
	})
	defer Zeroize(resp.Subkey)
	if err != nil {
		return goerrors.Wrap(err, ErrCodePlugin, fmt.Sprintf("plugin %q derivation failed", p.pluginName))
	}
	if !resp.Success {
		return goerrors.New(ErrCodePrimitiveFailure, fmt.Sprintf("plugin %q rejected derivation: %s", p.pluginName, resp.Error))
	}
	if len(resp.Subkey) != len(out) {
		return goerrors.New(ErrCodePlugin,
			fmt.Sprintf("plugin %q returned %d bytes, want %d", p.pluginName, len(resp.Subkey), len(out)))
	}

	copy(out, resp.Subkey)
	return nil
}
