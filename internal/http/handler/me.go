package handler

import (
	"net/http"

	"relay/internal/auth"
)

type MeHandler struct {
	Auth *auth.Service
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	p, err := h.Auth.Profile(r.Context(), uid)
	if err != nil {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": uid,
		"profile": p,
	})
}
