// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-notes/inkwell/internal/store"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

func TestOpen_UnsupportedBackend(t *testing.T) {
	_, err := store.Open(store.Config{Backend: "etcd"})
	require.Error(t, err)
	assert.True(t, inkerr.HasCode(err, inkerr.CodeStoreBackendUnsupported))
}

func TestOpen_MemoryBackend(t *testing.T) {
	kv, err := store.Open(store.Config{Backend: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	ctx := context.Background()
	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "k", []byte("v")))
	value, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, ok, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstalledStore_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	installed := store.NewInstalledStore(store.NewMemoryKV())

	require.NoError(t, installed.Add(ctx, "word-counter-plugin"))
	require.NoError(t, installed.Add(ctx, "markdown-plugin"))
	require.NoError(t, installed.Add(ctx, "word-counter-plugin"))

	ids, err := installed.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"word-counter-plugin", "markdown-plugin"}, ids)

	ok, err := installed.Contains(ctx, "word-counter-plugin")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInstalledStore_RemoveAbsentIsNoOp(t *testing.T) {
	ctx := context.Background()
	installed := store.NewInstalledStore(store.NewMemoryKV())

	require.NoError(t, installed.Add(ctx, "a"))
	require.NoError(t, installed.Remove(ctx, "never-installed"))

	ids, err := installed.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	require.NoError(t, installed.Remove(ctx, "a"))
	ids, err = installed.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestNoteStore_CRUD(t *testing.T) {
	ctx := context.Background()
	notes := store.NewNoteStore(store.NewMemoryKV())

	created, err := notes.Create(ctx, "Meeting notes", "agenda")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := notes.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meeting notes", got.Title)

	updated, err := notes.UpdateContent(ctx, created.ID, "agenda plus minutes")
	require.NoError(t, err)
	assert.Equal(t, "agenda plus minutes", updated.Content)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	require.NoError(t, notes.Delete(ctx, created.ID))
	_, err = notes.Get(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, inkerr.IsNotFound(err))
}

func TestNoteStore_UpdateMissingNote(t *testing.T) {
	notes := store.NewNoteStore(store.NewMemoryKV())

	_, err := notes.UpdateContent(context.Background(), "ghost", "content")
	require.Error(t, err)
	assert.True(t, inkerr.HasCode(err, inkerr.CodeStoreNoteNotFound))
}

func TestSQLiteKV_RoundTrip(t *testing.T) {
	kv, err := store.Open(store.Config{Backend: "sqlite", Path: t.TempDir() + "/inkwell.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "k", []byte("v1")))
	require.NoError(t, kv.Set(ctx, "k", []byte("v2")))

	value, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), value)
}
