package handler

import (
	"errors"
	"net/http"
	"strings"

	"relay/internal/apperr"
	"relay/internal/auth"
)

type AuthHandler struct {
	Svc *auth.Service
	JWT *auth.JWT
}

type registerReq struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decode(w, r, &req) {
		return
	}

	u, err := h.Svc.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
	})
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	case errors.Is(err, apperr.ErrConflict):
		http.Error(w, "email already used", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.issue(w, http.StatusCreated, u.ID)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	u, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.issue(w, http.StatusOK, u.ID)
}

func (h *AuthHandler) issue(w http.ResponseWriter, status int, userID string) {
	token, err := h.JWT.Sign(userID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, map[string]any{"token": token})
}
