package handler

import "net/http"

type PointsHandler struct {
	Sessions
}

func (h *PointsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := h.load(w, r)
	if s == nil {
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		if err := s.Points.FetchUserPoints(r.Context()); err != nil {
			writeError(w, h.logger(), err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.Points.Points())
}

func (h *PointsHandler) History(w http.ResponseWriter, r *http.Request) {
	s := h.load(w, r)
	if s == nil {
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		if err := s.Points.FetchHistory(r.Context()); err != nil {
			writeError(w, h.logger(), err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":   s.Points.History(),
		"loading": s.Points.Loading(),
	})
}
