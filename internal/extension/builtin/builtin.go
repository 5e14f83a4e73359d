// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package builtin

import (
	"github.com/inkwell-notes/inkwell/internal/host/native"
	"github.com/inkwell-notes/inkwell/internal/lifecycle"
	"github.com/inkwell-notes/inkwell/pkg/manifest"
)

// Register adds every bundled extension's factory to the native loader
// registry.
func Register(registry *native.Registry) {
	registry.Register("word-counter", NewWordCounter)
	registry.Register("markdown", NewMarkdown)
	registry.Register("tag-manager", NewTagManager)
}

// Manifests returns the bundled extensions' manifests.
func Manifests() []*manifest.Manifest {
	return []*manifest.Manifest{
		WordCounterManifest(),
		MarkdownManifest(),
		TagManagerManifest(),
	}
}

// Seed registers the bundled factories and makes their manifests
// available to the lifecycle manager.
func Seed(registry *native.Registry, manager *lifecycle.Manager) {
	Register(registry)
	for _, mf := range Manifests() {
		manager.AddManifest(mf)
	}
}
