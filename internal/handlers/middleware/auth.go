// internal/handlers/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/pkg/logger"
)

// TokenAuthenticator resolves bearer tokens into users
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Authenticate requires a valid bearer token and stores the user id in the request context
func Authenticate(auth TokenAuthenticator, slogger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrAuthExpired) {
					writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				slogger.ErrorContext(r.Context(), "token lookup failed",
					slog.String("error", err.Error()))
				writeAuthError(w, http.StatusInternalServerError, "authentication unavailable")
				return
			}

			ctx := context.WithValue(r.Context(), logger.ContextKeyUserID, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user id set by Authenticate
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(logger.ContextKeyUserID).(int64)
	return id, ok && id > 0
}

// WithUserID returns a context carrying an authenticated user id
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, logger.ContextKeyUserID, userID)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="cart"`)
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
