// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/inkwell-notes/inkwell/internal/contribution"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// Config is the top-level Inkwell configuration.
type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	Registry  RegistryConfig        `mapstructure:"registry"`
	Storage   StorageConfig         `mapstructure:"storage"`
	Transport TransportConfig       `mapstructure:"transport"`
	Slots     map[string]SlotConfig `mapstructure:"slots"`
}

// ServerConfig controls how Inkwell listens for connections.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// RegistryConfig points at the extension registry index.
type RegistryConfig struct {
	URL string `mapstructure:"url"`
}

// StorageConfig selects and locates the storage backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// TransportConfig bounds calls across the isolation boundary.
type TransportConfig struct {
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// SlotConfig is the conflict-resolution policy for one extension point.
type SlotConfig struct {
	Mode   string `mapstructure:"mode"`
	Layout string `mapstructure:"layout"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix INKWELL_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8750")
	v.SetDefault("registry.url", "")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "inkwell.db")
	v.SetDefault("transport.call_timeout", "10s")
	v.SetDefault("slots", map[string]SlotConfig{
		"preview.main":             {Mode: string(contribution.ModeTabs)},
		"preview.stats":            {Mode: string(contribution.ModeMultiple), Layout: string(contribution.LayoutVertical)},
		contribution.StatusBarSlot: {Mode: string(contribution.ModeMultiple), Layout: string(contribution.LayoutHorizontal)},
	})

	// Environment
	v.SetEnvPrefix("INKWELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, inkerr.Errorf(inkerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, inkerr.Errorf(inkerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, inkerr.Errorf(inkerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors, collecting all
// issues rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateTransport()...)
	errs = append(errs, c.validateSlots()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	host, port, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, inkerr.Errorf(inkerr.CodeConfigValidateInvalidValue,
			"config: server.listen must be host:port, got %q", c.Server.Listen))
		return errs
	}
	if host == "" {
		errs = append(errs, inkerr.Errorf(inkerr.CodeConfigValidateInvalidValue,
			"config: server.listen host must not be empty"))
	}
	if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, inkerr.Errorf(inkerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be 1-65535, got %q", port))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if c.Storage.Backend != "" && !validBackends[c.Storage.Backend] {
		errs = append(errs, inkerr.Errorf(inkerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite, memory], got %q", c.Storage.Backend))
	}
	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		errs = append(errs, inkerr.Errorf(inkerr.CodeConfigValidateInvalidValue,
			"config: storage.path must be set for the %q backend", c.Storage.Backend))
	}

	return errs
}

func (c *Config) validateTransport() []error {
	var errs []error

	if c.Transport.CallTimeout <= 0 {
		errs = append(errs, inkerr.Errorf(inkerr.CodeConfigValidateInvalidValue,
			"config: transport.call_timeout must be positive, got %s", c.Transport.CallTimeout))
	}

	return errs
}

func (c *Config) validateSlots() []error {
	var errs []error

	for slot, sc := range c.Slots {
		if !contribution.Mode(sc.Mode).Valid() {
			errs = append(errs, inkerr.Errorf(inkerr.CodeConfigValidateInvalidValue,
				"config: slots.%s.mode must be one of [exclusive-priority, multiplexed-tabs, simultaneous-multiple], got %q",
				slot, sc.Mode))
		}
		if sc.Layout != "" && sc.Layout != string(contribution.LayoutVertical) && sc.Layout != string(contribution.LayoutHorizontal) {
			errs = append(errs, inkerr.Errorf(inkerr.CodeConfigValidateInvalidValue,
				"config: slots.%s.layout must be vertical or horizontal, got %q", slot, sc.Layout))
		}
	}

	return errs
}

// Resolver builds a slot resolver from the configured policies.
func (c *Config) Resolver() *contribution.Resolver {
	resolver := contribution.NewResolver()
	for slot, sc := range c.Slots {
		resolver.SetPolicy(slot, contribution.Policy{
			Mode:   contribution.Mode(sc.Mode),
			Layout: contribution.Layout(sc.Layout),
		})
	}
	return resolver
}
