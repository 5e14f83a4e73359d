// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-notes/inkwell/internal/transport"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
	"github.com/inkwell-notes/inkwell/pkg/manifest"
)

func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/notes", func(r chi.Router) {
			r.Get("/", s.listNotes)
			r.Post("/", s.createNote)
			r.Get("/{id}", s.getNote)
			r.Put("/{id}/content", s.updateNoteContent)
			r.Delete("/{id}", s.deleteNote)
		})

		r.Route("/extensions", func(r chi.Router) {
			r.Get("/", s.listExtensions)
			r.Post("/{id}/install", s.installExtension)
			r.Delete("/{id}", s.uninstallExtension)
		})

		r.Get("/slots", s.listSlots)
		r.Get("/slots/{slot}", s.resolveSlot)

		r.Post("/commands/{id}", s.executeCommand)
	})
}

// --- notes ---

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.services.Notes.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

type createNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := s.readJSON(w, r, &req); err != nil {
		return
	}
	if req.Title == "" {
		s.writeError(w, inkerr.New(inkerr.CodeServerRequestInvalid, "title is required"))
		return
	}

	note, err := s.services.Notes.Create(r.Context(), req.Title, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, note)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.services.Notes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, note)
}

type updateContentRequest struct {
	Content string `json:"content"`
}

// updateNoteContent persists the new content and broadcasts
// content.changed to subscribed extensions, returning their per-extension
// results alongside the updated note.
func (s *Server) updateNoteContent(w http.ResponseWriter, r *http.Request) {
	var req updateContentRequest
	if err := s.readJSON(w, r, &req); err != nil {
		return
	}

	note, err := s.services.Notes.UpdateContent(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp, err := s.services.Calls.Call(r.Context(), transport.EmitEvent{
		Event: "content.changed",
		Data:  map[string]any{"noteId": note.ID, "content": note.Content},
	})
	if err != nil {
		// The note is saved; a broadcast failure degrades to an empty
		// result set rather than failing the write.
		s.logger.Warn("content.changed broadcast failed", "note", note.ID, "error", err)
		s.writeJSON(w, http.StatusOK, map[string]any{"note": note, "extensions": map[string]any{}})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"note": note, "extensions": resp.Result})
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Notes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- extensions ---

type extensionSummary struct {
	Manifest  *manifest.Manifest `json:"manifest"`
	Installed bool               `json:"installed"`
	Loaded    bool               `json:"loaded"`
}

func (s *Server) listExtensions(w http.ResponseWriter, r *http.Request) {
	installed, err := s.services.Lifecycle.Installed(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	installedSet := make(map[string]bool, len(installed))
	for _, id := range installed {
		installedSet[id] = true
	}

	ids := s.services.Lifecycle.Available()
	sort.Strings(ids)

	summaries := make([]extensionSummary, 0, len(ids))
	for _, id := range ids {
		mf, ok := s.services.Lifecycle.Manifest(id)
		if !ok {
			continue
		}
		summaries = append(summaries, extensionSummary{
			Manifest:  mf,
			Installed: installedSet[id],
			Loaded:    s.services.Lifecycle.IsLoaded(id),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"extensions": summaries})
}

func (s *Server) installExtension(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.services.Lifecycle.Install(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "installed"})
}

func (s *Server) uninstallExtension(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.services.Lifecycle.Uninstall(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "uninstalled"})
}

// --- slots ---

func (s *Server) listSlots(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"slots": s.services.Contributions.Slots()})
}

func (s *Server) resolveSlot(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	resolution := s.services.Resolver.Resolve(slot, s.services.Contributions)
	s.writeJSON(w, http.StatusOK, resolution)
}

// --- commands ---

type executeCommandRequest struct {
	Data map[string]any `json:"data"`
}

func (s *Server) executeCommand(w http.ResponseWriter, r *http.Request) {
	var req executeCommandRequest
	if r.ContentLength != 0 {
		if err := s.readJSON(w, r, &req); err != nil {
			return
		}
	}

	resp, err := s.services.Calls.Call(r.Context(), transport.ExecuteCommand{
		CommandID: chi.URLParam(r, "id"),
		Data:      req.Data,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"result": resp.Result})
}

// --- helpers ---

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		err = inkerr.Wrap(err, inkerr.CodeServerRequestInvalid, "decoding request body")
		s.writeError(w, err)
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := inkerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}

	code := inkerr.CodeOf(err)
	if code == "" {
		code = inkerr.CodeServerInternalFailure
	}
	s.writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}
