package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"relay/internal/valuetag"
)

type ValueTagHandler struct {
	Sessions
}

func (h *ValueTagHandler) List(w http.ResponseWriter, r *http.Request) {
	s := h.load(w, r)
	if s == nil {
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		if err := s.ValueTags.Fetch(r.Context()); err != nil {
			writeError(w, h.logger(), err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":   s.ValueTags.Tags(),
		"loading": s.ValueTags.Loading(),
	})
}

func (h *ValueTagHandler) Grouped(w http.ResponseWriter, r *http.Request) {
	s := h.load(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, s.ValueTags.Grouped())
}

func (h *ValueTagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var d valuetag.Draft
	if !decode(w, r, &d) {
		return
	}
	s := h.load(w, r)
	if s == nil {
		return
	}
	t, err := s.ValueTags.Create(r.Context(), d)
	if err != nil {
		writeError(w, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *ValueTagHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p valuetag.Patch
	if !decode(w, r, &p) {
		return
	}
	s := h.load(w, r)
	if s == nil {
		return
	}
	t, err := s.ValueTags.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *ValueTagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := h.load(w, r)
	if s == nil {
		return
	}
	if err := s.ValueTags.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
