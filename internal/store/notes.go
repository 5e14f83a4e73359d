// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// notesKey is the single KV key the note list lives under.
const notesKey = "inkwell.notes"

// Note is one persisted note document.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteStore persists note documents as a list under one KV key.
type NoteStore struct {
	kv KV
}

// NewNoteStore wraps kv.
func NewNoteStore(kv KV) *NoteStore {
	return &NoteStore{kv: kv}
}

// List returns all notes in creation order.
func (s *NoteStore) List(ctx context.Context) ([]Note, error) {
	raw, ok, err := s.kv.Get(ctx, notesKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var notes []Note
	if err := json.Unmarshal(raw, &notes); err != nil {
		return nil, inkerr.Wrap(err, inkerr.CodeStoreDecodeInvalid,
			"decoding note list")
	}
	return notes, nil
}

// Get returns the note with the given id.
func (s *NoteStore) Get(ctx context.Context, id string) (Note, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return Note{}, err
	}
	for _, note := range notes {
		if note.ID == id {
			return note, nil
		}
	}
	return Note{}, inkerr.Errorf(inkerr.CodeStoreNoteNotFound, "note %q not found", id)
}

// Create stores a new note and returns it with a generated id and
// timestamps.
func (s *NoteStore) Create(ctx context.Context, title, content string) (Note, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return Note{}, err
	}

	now := time.Now().UTC()
	note := Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(ctx, append(notes, note)); err != nil {
		return Note{}, err
	}
	return note, nil
}

// UpdateContent replaces a note's content and bumps its updated
// timestamp.
func (s *NoteStore) UpdateContent(ctx context.Context, id, content string) (Note, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return Note{}, err
	}

	for i := range notes {
		if notes[i].ID != id {
			continue
		}
		notes[i].Content = content
		notes[i].UpdatedAt = time.Now().UTC()
		if err := s.write(ctx, notes); err != nil {
			return Note{}, err
		}
		return notes[i], nil
	}
	return Note{}, inkerr.Errorf(inkerr.CodeStoreNoteNotFound, "note %q not found", id)
}

// Delete removes the note with the given id.
func (s *NoteStore) Delete(ctx context.Context, id string) error {
	notes, err := s.List(ctx)
	if err != nil {
		return err
	}

	kept := notes[:0]
	for _, note := range notes {
		if note.ID != id {
			kept = append(kept, note)
		}
	}
	if len(kept) == len(notes) {
		return inkerr.Errorf(inkerr.CodeStoreNoteNotFound, "note %q not found", id)
	}
	return s.write(ctx, kept)
}

func (s *NoteStore) write(ctx context.Context, notes []Note) error {
	raw, err := json.Marshal(notes)
	if err != nil {
		return inkerr.Wrap(err, inkerr.CodeStoreWriteFailure, "encoding note list")
	}
	return s.kv.Set(ctx, notesKey, raw)
}
