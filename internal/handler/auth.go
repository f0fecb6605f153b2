// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/Esscraye/conformit/internal/auth"
	"github.com/Esscraye/conformit/internal/middleware"
	"github.com/Esscraye/conformit/internal/model"
	"github.com/Esscraye/conformit/internal/store"
	"github.com/Esscraye/conformit/pkg/logger"
)

// AuthHandler handles login, registration and the who-am-i endpoint.
type AuthHandler struct {
	users  *store.UserStore
	tokens *auth.TokenService
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *store.UserStore, tokens *auth.TokenService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		logger: log,
	}
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Info("login failed",
			zap.String("username", store.NormalizeEmail(req.Username)),
			zap.String("remote_addr", r.RemoteAddr),
		)
		writeModelError(w, err)
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateFullName(req.FullName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		writeModelError(w, err)
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

// CurrentUser handles GET /user
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetUserEmail(r.Context())

	record, err := h.users.Lookup(r.Context(), email)
	if err != nil {
		writeModelError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record.Public())
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *model.User) {
	token, _, err := h.tokens.Issue(user.Email)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	writeJSON(w, status, model.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        *user,
	})
}
