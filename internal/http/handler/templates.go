package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"relay/internal/template"
)

type TemplateHandler struct {
	Sessions
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	s := h.load(w, r)
	if s == nil {
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		if err := s.Templates.Fetch(r.Context()); err != nil {
			writeError(w, h.logger(), err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":   s.Templates.Templates(),
		"loading": s.Templates.Loading(),
	})
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var d template.Draft
	if !decode(w, r, &d) {
		return
	}
	s := h.load(w, r)
	if s == nil {
		return
	}
	t, err := s.Templates.Create(r.Context(), d)
	if err != nil {
		writeError(w, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p template.Patch
	if !decode(w, r, &p) {
		return
	}
	s := h.load(w, r)
	if s == nil {
		return
	}
	t, err := s.Templates.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := h.load(w, r)
	if s == nil {
		return
	}
	if err := s.Templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
