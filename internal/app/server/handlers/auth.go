package handlers

import (
	"concord/internal/core/domain"
	"concord/internal/core/services"
	"concord/internal/platform/logger"
	"encoding/json"
	"errors"
	"net/http"
)

type AuthHandler struct {
	userSvc  *services.UserService
	tokenSvc *services.TokenService
}

func NewAuthHandler(u *services.UserService, t *services.TokenService) *AuthHandler {
	return &AuthHandler{userSvc: u, tokenSvc: t}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.ErrorContext(r.Context(), "auth handler - register failed", "username", req.Username, "err", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}
	token, err := h.tokenSvc.GenerateToken(user.ID.String())
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - generate token failed", "user_id", user.ID.String())
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"token":    token,
		"user_id":  user.ID,
		"username": user.Username,
	})
	log.InfoContext(r.Context(), "auth handler - register success", "user_id", user.ID.String())
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		log.WarnContext(r.Context(), "auth handler - login rejected", "username", req.Username)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, err := h.tokenSvc.GenerateToken(user.ID.String())
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - generate token failed", "user_id", user.ID.String())
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"token":    token,
		"user_id":  user.ID,
		"username": user.Username,
	})
	log.InfoContext(r.Context(), "auth handler - login success", "user_id", user.ID.String())
}
