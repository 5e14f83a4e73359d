// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package wasmmod

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// maxModuleBytes caps how much module source is read from a remote entry.
const maxModuleBytes = 64 << 20

// fetchEntry reads module bytes from a file path, file:// URL, or
// http(s):// URL.
func fetchEntry(ctx context.Context, entryURL string) ([]byte, error) {
	u, err := url.Parse(entryURL)
	if err != nil || u.Scheme == "" || u.Scheme == "file" {
		path := entryURL
		if u != nil && u.Scheme == "file" {
			path = u.Path
		}
		return os.ReadFile(path)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported entry scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %s", entryURL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxModuleBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxModuleBytes {
		return nil, fmt.Errorf("module at %s exceeds %d bytes", entryURL, maxModuleBytes)
	}
	if len(data) < 4 || string(data[:4]) != "\x00asm" {
		// Compile would fail anyway; failing here gives a clearer message.
		return nil, fmt.Errorf("entry %s is not a wasm binary", entryURL)
	}
	return data, nil
}
