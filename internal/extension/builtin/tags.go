// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package builtin

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/inkwell-notes/inkwell/internal/host"
	"github.com/inkwell-notes/inkwell/internal/host/native"
	"github.com/inkwell-notes/inkwell/pkg/manifest"
)

// TagManagerID is the tag-manager extension's id.
const TagManagerID = "tag-manager-plugin"

var tagRe = regexp.MustCompile(`#([a-zA-Z][a-zA-Z0-9_-]*)`)

// TagManagerManifest describes the tag-manager extension.
func TagManagerManifest() *manifest.Manifest {
	return &manifest.Manifest{
		ID:          TagManagerID,
		Name:        "Tag Manager",
		Version:     "1.0.0",
		Main:        "builtin:tag-manager",
		Permissions: []string{"text.analyze"},
		Contributes: &manifest.Contributions{
			Panels: []manifest.Panel{
				{ID: "tag-list", Title: "Tags", ViewType: "sidebar.tags", Priority: 5, Command: "tags.extract"},
			},
			Commands: []manifest.Command{
				{ID: "tags.extract", Title: "Extract Tags", HandlerName: "extract"},
				{ID: "tags.highlight", Title: "Highlight Tags", HandlerName: "highlight"},
			},
		},
	}
}

// NewTagManager creates the tag-manager module. Tags are #hashtags in
// note content, reported lowercase, deduplicated, and sorted.
func NewTagManager() host.Handle {
	return &native.Module{
		Handlers: map[string]host.HandlerFunc{
			"extract": func(_ context.Context, data map[string]any) (any, error) {
				content, _ := data["content"].(string)
				return map[string]any{"tags": extractTags(content)}, nil
			},
			"highlight": func(_ context.Context, data map[string]any) (any, error) {
				content, _ := data["content"].(string)
				highlighted := tagRe.ReplaceAllString(content, `<span class="tag">$0</span>`)
				return map[string]any{"content": highlighted}, nil
			},
		},
	}
}

func extractTags(content string) []string {
	seen := make(map[string]struct{})
	for _, match := range tagRe.FindAllStringSubmatch(content, -1) {
		seen[strings.ToLower(match[1])] = struct{}{}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
