package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"relay/internal/apperr"
	"relay/internal/auth"
	"relay/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps the apperr taxonomy onto status codes. Forbidden, not-found and
// conflict are checked before remote since a remote failure can carry any of them as its cause.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrUnauthenticated):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, apperr.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, apperr.ErrConflict):
		http.Error(w, "conflict", http.StatusConflict)
	case errors.Is(err, apperr.ErrRemote):
		http.Error(w, "upstream error", http.StatusBadGateway)
	default:
		log.Error("request failed", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

// Sessions resolves the caller's session.
type Sessions struct {
	Registry *session.Registry
	Log      *zap.Logger
}

func (h Sessions) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func (h Sessions) session(ctx context.Context) (*session.Session, error) {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	return h.Registry.Get(ctx, uid)
}

// load returns the caller's session or writes the error and returns nil.
func (h Sessions) load(w http.ResponseWriter, r *http.Request) *session.Session {
	s, err := h.session(r.Context())
	if err != nil {
		writeError(w, h.logger(), err)
		return nil
	}
	return s
}
