// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package manifest defines the public extension manifest model. A manifest
// declares an extension's identity, the capabilities it requests, and the
// UI contributions it makes. Manifests are fetched as JSON from a registry
// or read as YAML from a local extension directory.
package manifest

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Manifest describes a single extension. It is immutable once fetched:
// invalid manifests are rejected at parse time and never stored.
type Manifest struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Version     string            `json:"version" yaml:"version"`
	Main        string            `json:"main" yaml:"main"`
	Permissions []string          `json:"permissions" yaml:"permissions"`
	Contributes *Contributions    `json:"contributes" yaml:"contributes"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Contributions lists the extension-point entries an extension declares.
type Contributions struct {
	Panels    []Panel         `json:"panels,omitempty" yaml:"panels,omitempty"`
	StatusBar []StatusBarItem `json:"statusBar,omitempty" yaml:"statusBar,omitempty"`
	Commands  []Command       `json:"commands,omitempty" yaml:"commands,omitempty"`
}

// Panel is a declared panel contribution. ViewType is the extension-point
// key the panel renders into.
type Panel struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	ViewType string `json:"viewType" yaml:"viewType"`
	Priority int    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Command  string `json:"command,omitempty" yaml:"command,omitempty"`
}

// StatusBarItem is a declared status bar contribution.
type StatusBarItem struct {
	ID       string `json:"id" yaml:"id"`
	Text     string `json:"text" yaml:"text"`
	Command  string `json:"command,omitempty" yaml:"command,omitempty"`
	Priority int    `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Command is a declared command. HandlerName names the module function
// that services the command; it must exist on the loaded module.
type Command struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	HandlerName string `json:"handlerName" yaml:"handlerName"`
}

// ParseJSON decodes and validates a JSON manifest.
func ParseJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errParse(err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseYAML decodes and validates a YAML manifest.
func ParseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errParse(err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
