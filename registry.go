// registry.go: Named registry of derivation primitives.
//
// The registry lets applications pick the derivation construction by name (for
// example from configuration) and plug in their own primitives. Every primitive is
// self-tested before it is accepted. Out-of-process primitives can be hosted
// through github.com/agilira/go-plugins using PrimitiveRequest/PrimitiveResponse
// as wire types.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package subkey

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	goerrors "github.com/agilira/go-errors"
	goplugins "github.com/agilira/go-plugins"
	"github.com/agilira/go-timecache"
)

// PrimitiveInfo describes a registered primitive.
type PrimitiveInfo struct {
	Name         string    `json:"name"`
	KeyBytes     int       `json:"key_bytes"`
	ContextBytes int       `json:"context_bytes"`
	BytesMin     int       `json:"bytes_min"`
	BytesMax     int       `json:"bytes_max"`
	Default      bool      `json:"default"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RegistryConfig configures a Registry. Zero values select the defaults.
type RegistryConfig struct {
	// DefaultPrimitive names the primitive returned for an empty name. If empty,
	// the first registered primitive becomes the default.
	DefaultPrimitive string `json:"default_primitive"`

	// SkipSelfTest disables the registration self-test. Only for primitives that
	// are expensive to call, e.g. remote ones.
	SkipSelfTest bool `json:"skip_self_test"`

	// Logger receives registration events. If nil, nothing is logged.
	Logger *slog.Logger `json:"-"`
}

// PrimitiveRequest is sent to an out-of-process primitive plugin. The parent key
// stays inside the plugin and is referenced by KeyID.
type PrimitiveRequest struct {
	Operation string `json:"operation"` // "derive"
	KeyID     string `json:"key_id"`
	Index     uint64 `json:"index"`
	Context   []byte `json:"context"`
	Length    int    `json:"length"`
}

// PrimitiveResponse is returned by an out-of-process primitive plugin.
type PrimitiveResponse struct {
	Success  bool              `json:"success"`
	Subkey   []byte            `json:"subkey"`
	Error    string            `json:"error"`
	Metadata map[string]string `json:"metadata"`
}

type registeredPrimitive struct {
	primitive    Primitive
	registeredAt time.Time
}

// Registry maps names to primitives. It is safe for concurrent use.
type Registry struct {
	mu               sync.RWMutex
	pluginManager    *goplugins.Manager[PrimitiveRequest, PrimitiveResponse]
	primitives       map[string]registeredPrimitive
	defaultPrimitive string
	config           *RegistryConfig
	logger           *slog.Logger
}

// NewRegistry creates an empty registry. pluginManager may be nil.
func NewRegistry(config *RegistryConfig, pluginManager *goplugins.Manager[PrimitiveRequest, PrimitiveResponse]) (*Registry, error) {
	if config == nil {
		config = &RegistryConfig{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Registry{
		pluginManager: pluginManager,
		primitives:    make(map[string]registeredPrimitive),
		config:        config,
		logger:        logger,
	}, nil
}

// NewDefaultRegistry returns a registry holding Blake2bPrimitive (the default) and
// HKDFPrimitive.
func NewDefaultRegistry() *Registry {
	r, _ := NewRegistry(&RegistryConfig{DefaultPrimitive: Blake2bPrimitiveName}, nil)
	// Built-ins are known good; skip the self-test to keep construction cheap.
	r.add(Blake2bPrimitiveName, Blake2bPrimitive{})
	r.add(HKDFPrimitiveName, HKDFPrimitive{})
	return r
}

// RegisterPrimitive self-tests p and registers it under name.
func (r *Registry) RegisterPrimitive(name string, p Primitive) error {
	if name == "" {
		return goerrors.New(ErrCodeRegistry, "primitive name cannot be empty")
	}
	if p == nil {
		return goerrors.New(ErrCodeRegistry, "primitive cannot be nil")
	}

	r.mu.RLock()
	_, exists := r.primitives[name]
	r.mu.RUnlock()
	if exists {
		return goerrors.New(ErrCodeRegistry, fmt.Sprintf("primitive %q already registered", name))
	}

	if !r.config.SkipSelfTest {
		if err := selfTest(p); err != nil {
			r.logger.Warn("primitive rejected", "name", name, "error", err)
			return goerrors.Wrap(err, ErrCodeRegistry, fmt.Sprintf("primitive %q failed self-test", name))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.primitives[name]; exists {
		return goerrors.New(ErrCodeRegistry, fmt.Sprintf("primitive %q already registered", name))
	}
	r.addLocked(name, p)
	r.logger.Info("primitive registered", "name", name, "default", r.defaultPrimitive == name)
	return nil
}

// RegisterPlugin registers the go-plugins plugin pluginName as a primitive under
// name. The registry must have been created with a plugin manager. Plugins are
// self-tested like any other primitive unless RegistryConfig.SkipSelfTest is set.
func (r *Registry) RegisterPlugin(name, pluginName string, config *PluginPrimitiveConfig) error {
	if r.pluginManager == nil {
		return goerrors.New(ErrCodeRegistry, "registry has no plugin manager")
	}
	p, err := NewPluginPrimitive(r.pluginManager, pluginName, config)
	if err != nil {
		return err
	}
	return r.RegisterPrimitive(name, p)
}

func (r *Registry) add(name string, p Primitive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(name, p)
}

func (r *Registry) addLocked(name string, p Primitive) {
	r.primitives[name] = registeredPrimitive{
		primitive:    p,
		registeredAt: timecache.CachedTime().UTC(),
	}
	if r.defaultPrimitive == "" || r.config.DefaultPrimitive == name {
		r.defaultPrimitive = name
	}
}

// Primitive returns the primitive registered under name. An empty name returns
// the default primitive.
func (r *Registry) Primitive(name string) (Primitive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultPrimitive
	}

	entry, exists := r.primitives[name]
	if !exists {
		return nil, goerrors.New(ErrCodeUnknownPrimitive, fmt.Sprintf("unknown primitive %q", name))
	}
	return entry.primitive, nil
}

// Deriver returns a Deriver for the primitive registered under name.
func (r *Registry) Deriver(name string, config *DeriverConfig) (*Deriver, error) {
	p, err := r.Primitive(name)
	if err != nil {
		return nil, err
	}
	return NewDeriver(p, config)
}

// DefaultPrimitive returns the name of the default primitive, or "" if the
// registry is empty.
func (r *Registry) DefaultPrimitive() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultPrimitive
}

// Primitives lists the registered primitives sorted by name.
func (r *Registry) Primitives() []PrimitiveInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]PrimitiveInfo, 0, len(r.primitives))
	for name, entry := range r.primitives {
		p := entry.primitive
		infos = append(infos, PrimitiveInfo{
			Name:         name,
			KeyBytes:     p.KeyBytes(),
			ContextBytes: p.ContextBytes(),
			BytesMin:     p.BytesMin(),
			BytesMax:     p.BytesMax(),
			Default:      name == r.defaultPrimitive,
			RegisteredAt: entry.registeredAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// PluginManager returns the go-plugins manager hosting out-of-process primitives,
// or nil.
func (r *Registry) PluginManager() *goplugins.Manager[PrimitiveRequest, PrimitiveResponse] {
	return r.pluginManager
}

// selfTest checks that p is deterministic, sensitive to index and context, and
// rejects an undersized output without touching it.
func selfTest(p Primitive) error {
	return selfTestWith(p, rand.Reader)
}

func selfTestWith(p Primitive, src io.Reader) error {
	if p.BytesMin() <= 0 || p.BytesMin() > p.BytesMax() || p.ContextBytes() <= 0 || p.KeyBytes() <= 0 {
		return goerrors.New(ErrCodePrimitiveFailure, "primitive reports inconsistent sizes")
	}

	key := make([]byte, p.KeyBytes())
	defer Zeroize(key)
	context := make([]byte, p.ContextBytes())
	if _, err := io.ReadFull(src, key); err != nil {
		return goerrors.Wrap(err, ErrCodeRandom, "failed to generate self-test key")
	}
	if _, err := io.ReadFull(src, context); err != nil {
		return goerrors.Wrap(err, ErrCodeRandom, "failed to generate self-test context")
	}

	n := p.BytesMin()
	first := make([]byte, n)
	second := make([]byte, n)
	otherIndex := make([]byte, n)
	otherContext := make([]byte, n)
	defer func() {
		Zeroize(first)
		Zeroize(second)
		Zeroize(otherIndex)
		Zeroize(otherContext)
	}()

	if err := p.DeriveFromKey(first, 1, context, key); err != nil {
		return goerrors.Wrap(err, ErrCodePrimitiveFailure, "self-test derivation failed")
	}
	if err := p.DeriveFromKey(second, 1, context, key); err != nil {
		return goerrors.Wrap(err, ErrCodePrimitiveFailure, "self-test derivation failed")
	}
	if !bytes.Equal(first, second) {
		return goerrors.New(ErrCodePrimitiveFailure, "primitive is not deterministic")
	}

	if err := p.DeriveFromKey(otherIndex, 2, context, key); err != nil {
		return goerrors.Wrap(err, ErrCodePrimitiveFailure, "self-test derivation failed")
	}
	if bytes.Equal(first, otherIndex) {
		return goerrors.New(ErrCodePrimitiveFailure, "primitive ignores the index")
	}

	context[0] ^= 0xff
	if err := p.DeriveFromKey(otherContext, 1, context, key); err != nil {
		return goerrors.Wrap(err, ErrCodePrimitiveFailure, "self-test derivation failed")
	}
	if bytes.Equal(first, otherContext) {
		return goerrors.New(ErrCodePrimitiveFailure, "primitive ignores the context")
	}

	short := make([]byte, n-1)
	if err := p.DeriveFromKey(short, 1, context, key); err == nil {
		return goerrors.New(ErrCodePrimitiveFailure, "primitive accepts an output shorter than its minimum")
	}
	for _, b := range short {
		if b != 0 {
			return goerrors.New(ErrCodePrimitiveFailure, "primitive wrote into a rejected output")
		}
	}
	return nil
}
