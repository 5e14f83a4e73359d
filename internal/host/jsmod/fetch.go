// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package jsmod

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// maxScriptBytes caps how much script source is read from a remote entry.
const maxScriptBytes = 16 << 20

// fetchSource reads script source from a file path, file:// URL, or
// http(s):// URL.
func fetchSource(ctx context.Context, entryURL string) ([]byte, error) {
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

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxScriptBytes {
		return nil, fmt.Errorf("script at %s exceeds %d bytes", entryURL, maxScriptBytes)
	}
	return data, nil
}
