// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package builtin

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"
	gmext "github.com/yuin/goldmark/extension"

	"github.com/inkwell-notes/inkwell/internal/host"
	"github.com/inkwell-notes/inkwell/internal/host/native"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
	"github.com/inkwell-notes/inkwell/pkg/manifest"
)

// MarkdownID is the markdown-preview extension's id.
const MarkdownID = "markdown-plugin"

// MarkdownManifest describes the markdown-preview extension.
func MarkdownManifest() *manifest.Manifest {
	return &manifest.Manifest{
		ID:          MarkdownID,
		Name:        "Markdown Preview",
		Version:     "1.0.0",
		Main:        "builtin:markdown",
		Permissions: []string{"text.analyze"},
		Contributes: &manifest.Contributions{
			Panels: []manifest.Panel{
				{ID: "markdown-preview", Title: "Preview", ViewType: "preview.main", Priority: 10, Command: "markdown.render"},
			},
			Commands: []manifest.Command{
				{ID: "markdown.render", Title: "Render Markdown", HandlerName: "render"},
			},
		},
	}
}

// NewMarkdown creates the markdown-preview module.
func NewMarkdown() host.Handle {
	md := goldmark.New(goldmark.WithExtensions(gmext.GFM))

	return &native.Module{
		Handlers: map[string]host.HandlerFunc{
			"render": func(_ context.Context, data map[string]any) (any, error) {
				content, _ := data["content"].(string)

				var buf bytes.Buffer
				if err := md.Convert([]byte(content), &buf); err != nil {
					return nil, inkerr.Wrap(err, inkerr.CodeHostHandlerFailure,
						"rendering markdown")
				}
				return map[string]any{"html": buf.String()}, nil
			},
		},
	}
}
