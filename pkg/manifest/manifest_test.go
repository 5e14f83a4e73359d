// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package manifest_test

import (
	"testing"

	"github.com/inkwell-notes/inkwell/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
  "id": "word-counter-plugin",
  "name": "Word Counter",
  "version": "0.1.0",
  "main": "builtin:word-counter",
  "permissions": ["text.analyze"],
  "contributes": {
    "panels": [
      {"id": "p1", "title": "Stats", "viewType": "preview.stats", "priority": 5, "command": "count"}
    ],
    "statusBar": [
      {"id": "sb1", "text": "0 words", "command": "count", "priority": 1}
    ],
    "commands": [
      {"id": "count", "title": "Count Words", "handlerName": "count"}
    ]
  }
}`

func TestParseJSON_Valid(t *testing.T) {
	m, err := manifest.ParseJSON([]byte(validJSON))
	require.NoError(t, err)

	assert.Equal(t, "word-counter-plugin", m.ID)
	assert.Equal(t, "Word Counter", m.Name)
	assert.Equal(t, "0.1.0", m.Version)
	assert.Equal(t, "builtin:word-counter", m.Main)
	assert.Equal(t, []string{"text.analyze"}, m.Permissions)

	require.NotNil(t, m.Contributes)
	require.Len(t, m.Contributes.Panels, 1)
	assert.Equal(t, "preview.stats", m.Contributes.Panels[0].ViewType)
	assert.Equal(t, 5, m.Contributes.Panels[0].Priority)
	require.Len(t, m.Contributes.Commands, 1)
	assert.Equal(t, "count", m.Contributes.Commands[0].HandlerName)
}

func TestParseYAML_Valid(t *testing.T) {
	yaml := `
id: markdown-renderer
name: Markdown Renderer
version: 1.2.0
main: extensions/markdown.wasm
permissions:
  - text.read
contributes:
  panels:
    - id: md
      title: Preview
      viewType: preview.main
      priority: 10
      command: render
  commands:
    - id: render
      title: Render Markdown
      handlerName: render
`
	m, err := manifest.ParseYAML([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, "markdown-renderer", m.ID)
	assert.Equal(t, 10, m.Contributes.Panels[0].Priority)
}

func TestParseJSON_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing id", `{"name":"x","version":"1.0.0","main":"m.js","permissions":[],"contributes":{}}`},
		{"missing name", `{"id":"x","version":"1.0.0","main":"m.js","permissions":[],"contributes":{}}`},
		{"missing version", `{"id":"x","name":"x","main":"m.js","permissions":[],"contributes":{}}`},
		{"missing main", `{"id":"x","name":"x","version":"1.0.0","permissions":[],"contributes":{}}`},
		{"missing permissions", `{"id":"x","name":"x","version":"1.0.0","main":"m.js","contributes":{}}`},
		{"missing contributes", `{"id":"x","name":"x","version":"1.0.0","main":"m.js","permissions":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manifest.ParseJSON([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestParseJSON_EmptyPermissionsIsValid(t *testing.T) {
	m, err := manifest.ParseJSON([]byte(
		`{"id":"x","name":"x","version":"1.0.0","main":"m.js","permissions":[],"contributes":{}}`))
	require.NoError(t, err)
	assert.Empty(t, m.Permissions)
}

func TestValidate_BadVersion(t *testing.T) {
	for _, v := range []string{"latest", "1.0", "v1.0.0", "01.0.0"} {
		t.Run(v, func(t *testing.T) {
			m := &manifest.Manifest{
				ID: "x", Name: "x", Version: v, Main: "m.js",
				Permissions: []string{}, Contributes: &manifest.Contributions{},
			}
			assert.Error(t, m.Validate())
		})
	}
}

func TestValidate_BadPermission(t *testing.T) {
	for _, p := range []string{"", "text..analyze", ".text", "text analyze"} {
		m := &manifest.Manifest{
			ID: "x", Name: "x", Version: "1.0.0", Main: "m.js",
			Permissions: []string{p}, Contributes: &manifest.Contributions{},
		}
		assert.Error(t, m.Validate(), "permission %q should be rejected", p)
	}
}

func TestValidate_BadContributions(t *testing.T) {
	base := func() *manifest.Manifest {
		return &manifest.Manifest{
			ID: "x", Name: "x", Version: "1.0.0", Main: "m.js",
			Permissions: []string{}, Contributes: &manifest.Contributions{},
		}
	}

	m := base()
	m.Contributes.Panels = []manifest.Panel{{ID: "p", Title: "t"}}
	assert.Error(t, m.Validate(), "panel without viewType")

	m = base()
	m.Contributes.Commands = []manifest.Command{{ID: "c", Title: "t"}}
	assert.Error(t, m.Validate(), "command without handlerName")

	m = base()
	m.Contributes.StatusBar = []manifest.StatusBarItem{{Text: "t"}}
	assert.Error(t, m.Validate(), "status bar item without id")
}
