// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Esscraye/conformit/internal/auth"
	"github.com/Esscraye/conformit/internal/model"
	"github.com/Esscraye/conformit/internal/store"
	"github.com/Esscraye/conformit/pkg/metrics"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// UserEmailKey is the context key for the authenticated user's email.
	UserEmailKey ContextKey = "user_email"
)

// Auth creates bearer-token authentication middleware. A token is only
// honoured when its signature and expiry check out AND its subject still
// matches a registered user.
func Auth(tokens *auth.TokenService, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				metrics.AuthFailuresTotal.WithLabelValues("missing_header").Inc()
				unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				metrics.AuthFailuresTotal.WithLabelValues("bad_header").Inc()
				unauthorized(w, "invalid authorization header format")
				return
			}

			subject, err := tokens.Validate(parts[1])
			if err != nil {
				metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
				unauthorized(w, "invalid token")
				return
			}

			if _, err := users.Lookup(r.Context(), subject); err != nil {
				if errors.Is(err, model.ErrNotFound) {
					metrics.AuthFailuresTotal.WithLabelValues("unknown_subject").Inc()
					unauthorized(w, "invalid token")
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error":"service unavailable"}`))
				return
			}

			ctx := context.WithValue(r.Context(), UserEmailKey, store.NormalizeEmail(subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

// GetUserEmail gets the authenticated user's email from context.
func GetUserEmail(ctx context.Context) string {
	if v := ctx.Value(UserEmailKey); v != nil {
		return v.(string)
	}
	return ""
}
