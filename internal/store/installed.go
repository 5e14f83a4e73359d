// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package store

import (
	"context"
	"encoding/json"

	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// installedKey is the single KV key the installed-extension list lives
// under.
const installedKey = "inkwell.extensions.installed"

// InstalledStore persists the ordered set of installed extension ids, the
// source of truth for which extensions auto-load on host start.
type InstalledStore struct {
	kv KV
}

// NewInstalledStore wraps kv.
func NewInstalledStore(kv KV) *InstalledStore {
	return &InstalledStore{kv: kv}
}

// List returns the installed ids in installation order.
func (s *InstalledStore) List(ctx context.Context) ([]string, error) {
	raw, ok, err := s.kv.Get(ctx, installedKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, inkerr.Wrap(err, inkerr.CodeStoreDecodeInvalid,
			"decoding installed extension list")
	}
	return ids, nil
}

// Contains reports whether id is installed.
func (s *InstalledStore) Contains(ctx context.Context, id string) (bool, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, existing := range ids {
		if existing == id {
			return true, nil
		}
	}
	return false, nil
}

// Add appends id to the installed set. Adding an already-installed id is
// a no-op that preserves the original order.
func (s *InstalledStore) Add(ctx context.Context, id string) error {
	ids, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return s.write(ctx, append(ids, id))
}

// Remove deletes id from the installed set. Removing an absent id is a
// no-op.
func (s *InstalledStore) Remove(ctx context.Context, id string) error {
	ids, err := s.List(ctx)
	if err != nil {
		return err
	}

	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}
	return s.write(ctx, kept)
}

func (s *InstalledStore) write(ctx context.Context, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return inkerr.Wrap(err, inkerr.CodeStoreWriteFailure,
			"encoding installed extension list")
	}
	return s.kv.Set(ctx, installedKey, raw)
}
