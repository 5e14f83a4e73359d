// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package builtin ships the extensions bundled with Inkwell. They run
// through the native loader and see the same capability-scoped API as
// any third-party extension.
package builtin

import (
	"context"
	"strings"

	"github.com/inkwell-notes/inkwell/internal/host"
	"github.com/inkwell-notes/inkwell/internal/host/native"
	"github.com/inkwell-notes/inkwell/pkg/manifest"
)

// WordCounterID is the word-counter extension's id.
const WordCounterID = "word-counter-plugin"

// WordCounterManifest describes the word-counter extension.
func WordCounterManifest() *manifest.Manifest {
	return &manifest.Manifest{
		ID:          WordCounterID,
		Name:        "Word Counter",
		Version:     "1.0.0",
		Main:        "builtin:word-counter",
		Permissions: []string{"text.analyze"},
		Contributes: &manifest.Contributions{
			Panels: []manifest.Panel{
				{ID: "word-counter-stats", Title: "Statistics", ViewType: "preview.stats", Priority: 5, Command: "count"},
			},
			StatusBar: []manifest.StatusBarItem{
				{ID: "word-counter-status", Text: "0 words", Command: "count", Priority: 10},
			},
			Commands: []manifest.Command{
				{ID: "count", Title: "Count Words", HandlerName: "count"},
			},
		},
	}
}

// NewWordCounter creates the word-counter module. It recomputes its
// statistics on every content.changed broadcast.
func NewWordCounter() host.Handle {
	return &native.Module{
		ActivateFunc: func(_ context.Context, api *host.API) error {
			api.RegisterEvent("content.changed", countStats)
			return nil
		},
		Handlers: map[string]host.HandlerFunc{
			"count": countStats,
		},
	}
}

func countStats(_ context.Context, data map[string]any) (any, error) {
	content, _ := data["content"].(string)
	return map[string]any{
		"words":              countWords(content),
		"characters":         len([]rune(content)),
		"charactersNoSpaces": countNonSpace(content),
		"lines":              countLines(content),
		"paragraphs":         countParagraphs(content),
	}, nil
}

func countWords(content string) int {
	return len(strings.Fields(content))
}

func countNonSpace(content string) int {
	n := 0
	for _, r := range content {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			n++
		}
	}
	return n
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

func countParagraphs(content string) int {
	n := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) != "" {
			n++
		}
	}
	return n
}
