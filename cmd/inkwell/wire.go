// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/inkwell-notes/inkwell/internal/config"
	"github.com/inkwell-notes/inkwell/internal/contribution"
	"github.com/inkwell-notes/inkwell/internal/extension/builtin"
	"github.com/inkwell-notes/inkwell/internal/host"
	"github.com/inkwell-notes/inkwell/internal/host/jsmod"
	"github.com/inkwell-notes/inkwell/internal/host/native"
	"github.com/inkwell-notes/inkwell/internal/host/wasmmod"
	"github.com/inkwell-notes/inkwell/internal/lifecycle"
	"github.com/inkwell-notes/inkwell/internal/registry"
	"github.com/inkwell-notes/inkwell/internal/store"
	"github.com/inkwell-notes/inkwell/internal/transport"
)

// app bundles every assembled subsystem.
type app struct {
	cfg           *config.Config
	logger        *slog.Logger
	kv            store.KV
	installed     *store.InstalledStore
	notes         *store.NoteStore
	transport     *transport.Transport
	manager       *lifecycle.Manager
	contributions *contribution.Registry
	resolver      *contribution.Resolver
	wasmLoader    *wasmmod.Loader
}

// buildApp assembles the full host-side stack: storage, the extension
// host behind an in-process pipe, the lifecycle manager, and the slot
// resolver. Registry manifests are fetched when a registry URL is
// configured; bundled extensions are always available.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	kv, err := store.Open(store.Config{Backend: cfg.Storage.Backend, Path: cfg.Storage.Path})
	if err != nil {
		return nil, err
	}

	nativeRegistry := native.NewRegistry()

	wasmLoader, err := wasmmod.NewLoader(ctx, wasmmod.WithLogger(logger))
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	mux := host.NewLoaderMux()
	mux.RegisterScheme(native.Scheme, nativeRegistry)
	mux.RegisterExtension(".js", jsmod.NewLoader(jsmod.WithLogger(logger)))
	mux.RegisterExtension(".wasm", wasmLoader)

	surface := host.NewSurface()
	h := host.New(mux, surface, host.WithHostLogger(logger))

	tr := transport.New(transport.NewPipe(h),
		transport.WithCallTimeout(cfg.Transport.CallTimeout),
		transport.WithLogger(logger))

	contributions := contribution.NewRegistry()
	installed := store.NewInstalledStore(kv)
	manager := lifecycle.NewManager(tr, installed, contributions, lifecycle.WithLogger(logger))

	builtin.Seed(nativeRegistry, manager)
	notes := store.NewNoteStore(kv)
	registerHostSurface(surface, notes)

	if cfg.Registry.URL != "" {
		client := registry.NewClient(cfg.Registry.URL, registry.WithLogger(logger))
		manifests, err := client.FetchAll(ctx)
		if err != nil {
			logger.Warn("registry fetch failed, continuing with bundled extensions", "error", err)
		} else {
			for _, mf := range manifests {
				manager.AddManifest(mf)
			}
		}
	}

	return &app{
		cfg:           cfg,
		logger:        logger,
		kv:            kv,
		installed:     installed,
		notes:         notes,
		transport:     tr,
		manager:       manager,
		contributions: contributions,
		resolver:      cfg.Resolver(),
		wasmLoader:    wasmLoader,
	}, nil
}

// registerHostSurface exposes the note store to extensions behind
// capability gates.
func registerHostSurface(surface *host.Surface, notes *store.NoteStore) {
	surface.Register("text.analyze.getContent", "text.analyze",
		func(ctx context.Context, args map[string]any) (any, error) {
			noteID, _ := args["noteId"].(string)
			note, err := notes.Get(ctx, noteID)
			if err != nil {
				return nil, err
			}
			return note.Content, nil
		})

	surface.Register("text.transform.replaceContent", "text.transform",
		func(ctx context.Context, args map[string]any) (any, error) {
			noteID, _ := args["noteId"].(string)
			content, _ := args["content"].(string)
			note, err := notes.UpdateContent(ctx, noteID, content)
			if err != nil {
				return nil, err
			}
			return map[string]any{"noteId": note.ID, "updatedAt": note.UpdatedAt}, nil
		})
}

// close releases the app's resources in dependency order.
func (a *app) close(ctx context.Context) {
	if err := a.transport.Close(); err != nil {
		a.logger.Warn("closing transport", "error", err)
	}
	if err := a.wasmLoader.Close(ctx); err != nil {
		a.logger.Warn("closing wasm runtime", "error", err)
	}
	if err := a.kv.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}
