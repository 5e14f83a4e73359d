// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-notes/inkwell/internal/host"
)

func handler(t *testing.T, h host.Handle, name string) host.HandlerFunc {
	t.Helper()

	fn, ok := h.Handler(name)
	require.True(t, ok, "handler %q", name)
	return fn
}

func TestWordCounter_Stats(t *testing.T) {
	count := handler(t, NewWordCounter(), "count")

	result, err := count(context.Background(), map[string]any{
		"content": "first line here\n\nsecond paragraph",
	})
	require.NoError(t, err)

	stats := result.(map[string]any)
	assert.Equal(t, 5, stats["words"])
	assert.Equal(t, 33, stats["characters"])
	assert.Equal(t, 28, stats["charactersNoSpaces"])
	assert.Equal(t, 3, stats["lines"])
	assert.Equal(t, 2, stats["paragraphs"])
}

func TestWordCounter_EmptyContent(t *testing.T) {
	count := handler(t, NewWordCounter(), "count")

	result, err := count(context.Background(), map[string]any{"content": ""})
	require.NoError(t, err)

	stats := result.(map[string]any)
	assert.Equal(t, 0, stats["words"])
	assert.Equal(t, 0, stats["lines"])
	assert.Equal(t, 0, stats["paragraphs"])
}

func TestWordCounter_ThreeWords(t *testing.T) {
	count := handler(t, NewWordCounter(), "count")

	result, err := count(context.Background(), map[string]any{"content": "a b c"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.(map[string]any)["words"])
}

func TestMarkdown_Render(t *testing.T) {
	render := handler(t, NewMarkdown(), "render")

	result, err := render(context.Background(), map[string]any{
		"content": "# Title\n\nSome *emphasis* and a [link](https://example.com).",
	})
	require.NoError(t, err)

	html := result.(map[string]any)["html"].(string)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<em>emphasis</em>")
	assert.Contains(t, html, `<a href="https://example.com">link</a>`)
}

func TestMarkdown_GFMTable(t *testing.T) {
	render := handler(t, NewMarkdown(), "render")

	result, err := render(context.Background(), map[string]any{
		"content": "| a | b |\n|---|---|\n| 1 | 2 |",
	})
	require.NoError(t, err)
	assert.Contains(t, result.(map[string]any)["html"].(string), "<table>")
}

func TestTagManager_ExtractSortedUnique(t *testing.T) {
	extract := handler(t, NewTagManager(), "extract")

	result, err := extract(context.Background(), map[string]any{
		"content": "notes on #Go and #testing, more #go and #API-design",
	})
	require.NoError(t, err)

	tags := result.(map[string]any)["tags"].([]string)
	assert.Equal(t, []string{"api-design", "go", "testing"}, tags)
}

func TestTagManager_Highlight(t *testing.T) {
	highlight := handler(t, NewTagManager(), "highlight")

	result, err := highlight(context.Background(), map[string]any{
		"content": "about #go today",
	})
	require.NoError(t, err)

	content := result.(map[string]any)["content"].(string)
	assert.Equal(t, `about <span class="tag">#go</span> today`, content)
}

func TestManifests_AllValid(t *testing.T) {
	for _, mf := range Manifests() {
		assert.NoError(t, mf.Validate(), "manifest %s", mf.ID)
	}
}
