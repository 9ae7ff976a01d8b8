package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/taskhouse/internal/auth"
	"github.com/dukerupert/taskhouse/internal/model"
)

const SessionCookieName = "taskhouse_session"

// SessionFinder resolves a session token. A nil session means the token is
// unknown or expired.
type SessionFinder interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// SessionToken returns the token from the session cookie or, failing that,
// an "Authorization: Bearer" header.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// RequireAuth validates the session token and stores the acting user in the
// request context. Unauthenticated requests get a JSON 401.
func RequireAuth(sessions SessionFinder, users UserFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(r.Context(), token)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByID(r.Context(), sess.UserID)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}

			ctx := auth.WithSession(r.Context(), auth.Session{
				UserID:    user.ID,
				Username:  user.Username,
				SessionID: sess.ID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
