package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/taskhouse/internal/auth"
	"github.com/dukerupert/taskhouse/internal/middleware"
	"github.com/dukerupert/taskhouse/internal/store"
)

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	sessionTTL   time.Duration
	logger       *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, ttl time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		sessionStore: ss,
		sessionTTL:   ttl,
		logger:       logger,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.userStore.Create(r.Context(), req.Username, req.Password)
	if err != nil {
		writeStoreError(w, h.logger, "failed to create user", err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.userStore.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Error("authenticate", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	sess, err := h.sessionStore.Create(r.Context(), user.ID, h.sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})

	h.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
		"user":       user,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.FromContext(r.Context())
	if ok {
		if err := h.sessionStore.Delete(r.Context(), s.SessionID); err != nil {
			h.logger.Error("delete session", "error", err, "session_id", s.SessionID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
