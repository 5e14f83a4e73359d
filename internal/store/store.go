// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package store provides the generic string-keyed persistence the host
// side builds on: a KV interface with pluggable backends, the persisted
// installed-extension set, and the note document store.
package store

import (
	"context"
	"sync"

	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// KV is a generic string-keyed byte store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config selects and locates a storage backend.
type Config struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// Factory creates a KV for a backend. Path is backend-specific (a file
// path for sqlite, ignored by memory).
type Factory func(path string) (KV, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// RegisterBackend registers a factory for a named storage backend.
// Backend files call this from init(). Goroutine-safe.
func RegisterBackend(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg Config) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// Open creates the configured KV backend.
func Open(cfg Config) (KV, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, inkerr.Errorf(inkerr.CodeStoreBackendUnsupported,
			"unsupported storage backend: %q", backend)
	}

	kv, err := factory(cfg.Path)
	if err != nil {
		return nil, inkerr.Wrapf(err, inkerr.CodeStoreOpenFailure,
			"opening %s store", backend)
	}
	return kv, nil
}

// Backends returns the registered backend names.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
