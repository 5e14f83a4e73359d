// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package lifecycle drives extensions through install, load, activate,
// deactivate, unload, and uninstall. The Manager owns the manifest table
// and the installed set, and is the sole host-side caller of the
// transport.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/inkwell-notes/inkwell/internal/contribution"
	"github.com/inkwell-notes/inkwell/internal/store"
	"github.com/inkwell-notes/inkwell/internal/transport"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
	"github.com/inkwell-notes/inkwell/pkg/manifest"
)

// Caller issues correlated calls across the isolation boundary.
// *transport.Transport is the production implementation.
type Caller interface {
	Call(ctx context.Context, msg transport.Message) (transport.Response, error)
}

// Manager tracks per-extension lifecycle state on the host side.
type Manager struct {
	calls         Caller
	installed     *store.InstalledStore
	contributions *contribution.Registry
	logger        *slog.Logger

	mu        sync.Mutex
	manifests map[string]*manifest.Manifest
	loaded    map[string]bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager.
func NewManager(calls Caller, installed *store.InstalledStore, contributions *contribution.Registry, opts ...Option) *Manager {
	m := &Manager{
		calls:         calls,
		installed:     installed,
		contributions: contributions,
		logger:        slog.Default(),
		manifests:     make(map[string]*manifest.Manifest),
		loaded:        make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddManifest makes a fetched manifest available for install. Manifests
// are immutable once fetched; re-adding an id replaces the old snapshot.
func (m *Manager) AddManifest(mf *manifest.Manifest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests[mf.ID] = mf
}

// SetManifests replaces the available-manifest table, e.g. after a
// registry refresh.
func (m *Manager) SetManifests(manifests map[string]*manifest.Manifest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests = make(map[string]*manifest.Manifest, len(manifests))
	for id, mf := range manifests {
		m.manifests[id] = mf
	}
}

// Manifest returns the available manifest for id.
func (m *Manager) Manifest(id string) (*manifest.Manifest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mf, ok := m.manifests[id]
	return mf, ok
}

// Available returns the ids of all fetched manifests.
func (m *Manager) Available() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.manifests))
	for id := range m.manifests {
		ids = append(ids, id)
	}
	return ids
}

// Installed returns the persisted installed-extension ids in
// installation order.
func (m *Manager) Installed(ctx context.Context) ([]string, error) {
	return m.installed.List(ctx)
}

// IsLoaded reports whether id is in the host-side loaded set.
func (m *Manager) IsLoaded(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded[id]
}

// Install adds id to the installed set, then loads and activates it.
// Requires a fetched manifest. Adding an already-installed id is
// idempotent.
func (m *Manager) Install(ctx context.Context, id string) error {
	if _, ok := m.Manifest(id); !ok {
		return inkerr.Errorf(inkerr.CodeLifecycleManifestNotFound,
			"no manifest fetched for extension %q", id)
	}

	if err := m.installed.Add(ctx, id); err != nil {
		return err
	}
	if err := m.Load(ctx, id); err != nil {
		return err
	}
	return m.Activate(ctx, id)
}

// Load sends loadPlugin for id unless it is already loaded; a loaded id
// returns immediately with no transport call.
func (m *Manager) Load(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.loaded[id] {
		m.mu.Unlock()
		return nil
	}
	mf, ok := m.manifests[id]
	m.mu.Unlock()
	if !ok {
		return inkerr.Errorf(inkerr.CodeLifecycleManifestNotFound,
			"no manifest fetched for extension %q", id)
	}

	_, err := m.calls.Call(ctx, transport.LoadPlugin{
		PluginID:    id,
		EntryURL:    mf.Main,
		Permissions: mf.Permissions,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.loaded[id] = true
	m.mu.Unlock()
	return nil
}

// Activate sends activatePlugin with the manifest's declared commands,
// then registers the manifest's contributions. A hook failure on the
// isolated side is logged, never propagated: optional lifecycle hooks do
// not fail the overall operation.
func (m *Manager) Activate(ctx context.Context, id string) error {
	mf, ok := m.Manifest(id)
	if !ok {
		return inkerr.Errorf(inkerr.CodeLifecycleManifestNotFound,
			"no manifest fetched for extension %q", id)
	}

	var commands []transport.CommandSpec
	if mf.Contributes != nil {
		for _, cmd := range mf.Contributes.Commands {
			commands = append(commands, transport.CommandSpec{
				ID:          cmd.ID,
				HandlerName: cmd.HandlerName,
			})
		}
	}

	if _, err := m.calls.Call(ctx, transport.ActivatePlugin{PluginID: id, Commands: commands}); err != nil {
		m.logger.Warn("extension activation hook failed", "extension", id, "error", err)
	}

	m.contributions.AddManifest(mf)
	return nil
}

// Deactivate sends deactivatePlugin (hook errors swallowed, as with
// Activate) and prunes the extension's contributions.
func (m *Manager) Deactivate(ctx context.Context, id string) error {
	if _, err := m.calls.Call(ctx, transport.DeactivatePlugin{PluginID: id}); err != nil {
		m.logger.Warn("extension deactivation hook failed", "extension", id, "error", err)
	}

	m.contributions.RemoveOwner(id)
	return nil
}

// Unload sends unloadPlugin and drops id from the loaded set.
func (m *Manager) Unload(ctx context.Context, id string) error {
	if _, err := m.calls.Call(ctx, transport.UnloadPlugin{PluginID: id}); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.loaded, id)
	m.mu.Unlock()
	return nil
}

// Uninstall deactivates and unloads id if it is loaded, then removes it
// from the installed set. Uninstalling an extension that was never
// installed is a safe no-op: the installed set is unchanged and no
// transport messages are sent.
func (m *Manager) Uninstall(ctx context.Context, id string) error {
	if m.IsLoaded(id) {
		if err := m.Deactivate(ctx, id); err != nil {
			return err
		}
		if err := m.Unload(ctx, id); err != nil {
			return err
		}
	}
	return m.installed.Remove(ctx, id)
}

// LoadInstalled loads and activates every id in the installed set,
// best-effort: one id failing is logged and does not abort the rest.
// Installed ids with no fetched manifest are skipped.
func (m *Manager) LoadInstalled(ctx context.Context) error {
	ids, err := m.installed.List(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if _, ok := m.Manifest(id); !ok {
			m.logger.Warn("installed extension has no fetched manifest, skipping", "extension", id)
			continue
		}
		if err := m.Load(ctx, id); err != nil {
			m.logger.Warn("loading installed extension failed", "extension", id, "error", err)
			continue
		}
		if err := m.Activate(ctx, id); err != nil {
			m.logger.Warn("activating installed extension failed", "extension", id, "error", err)
		}
	}
	return nil
}
