// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package registry fetches the extension index and manifests from a
// static registry host. Manifests failing validation are discarded; an
// invalid manifest never enters the lifecycle manager.
package registry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
	"github.com/inkwell-notes/inkwell/pkg/manifest"
)

// maxBodyBytes caps index and manifest response bodies.
const maxBodyBytes = 4 << 20

// Entry is one extension listed in the registry index.
type Entry struct {
	ID          string `json:"id"`
	ManifestURL string `json:"manifestUrl"`
}

// Index is the registry's top-level listing.
type Index struct {
	Plugins []Entry `json:"plugins"`
}

// Client fetches from one registry base URL.
type Client struct {
	registryURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a registry client for registryURL.
func NewClient(registryURL string, opts ...Option) *Client {
	c := &Client{
		registryURL: registryURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchIndex retrieves the registry's extension listing.
func (c *Client) FetchIndex(ctx context.Context) (*Index, error) {
	var index Index
	if err := c.getJSON(ctx, c.registryURL, &index); err != nil {
		return nil, err
	}
	return &index, nil
}

// FetchManifest retrieves and validates one manifest. Manifests missing
// required fields are rejected, not returned.
func (c *Client) FetchManifest(ctx context.Context, manifestURL string) (*manifest.Manifest, error) {
	body, err := c.get(ctx, manifestURL)
	if err != nil {
		return nil, err
	}

	m, err := manifest.ParseJSON(body)
	if err != nil {
		return nil, inkerr.Wrapf(err, inkerr.CodeRegistryManifestInvalid,
			"manifest at %s rejected", manifestURL)
	}
	return m, nil
}

// FetchAll retrieves the index and every listed manifest, skipping
// entries whose manifest fails to fetch or validate. Invalid entries are
// logged and excluded from availability, never fatal.
func (c *Client) FetchAll(ctx context.Context) (map[string]*manifest.Manifest, error) {
	index, err := c.FetchIndex(ctx)
	if err != nil {
		return nil, err
	}

	manifests := make(map[string]*manifest.Manifest, len(index.Plugins))
	for _, entry := range index.Plugins {
		m, err := c.FetchManifest(ctx, entry.ManifestURL)
		if err != nil {
			c.logger.Warn("skipping registry entry",
				"extension", entry.ID, "manifest_url", entry.ManifestURL, "error", err)
			continue
		}
		if m.ID != entry.ID {
			c.logger.Warn("skipping registry entry with mismatched manifest id",
				"extension", entry.ID, "manifest_id", m.ID)
			continue
		}
		manifests[m.ID] = m
	}
	return manifests, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, inkerr.Wrapf(err, inkerr.CodeRegistryFetchFailure,
			"building request for %s", url)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, inkerr.Wrapf(err, inkerr.CodeRegistryFetchFailure,
			"fetching %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, inkerr.Errorf(inkerr.CodeRegistryFetchFailure,
			"fetching %s: status %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, inkerr.Wrapf(err, inkerr.CodeRegistryFetchFailure,
			"reading %s", url)
	}
	if len(body) > maxBodyBytes {
		return nil, inkerr.Errorf(inkerr.CodeRegistryFetchFailure,
			"response from %s exceeds %d bytes", url, maxBodyBytes)
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return inkerr.Wrapf(err, inkerr.CodeRegistryDecodeInvalid,
			"decoding response from %s", url)
	}
	return nil
}
