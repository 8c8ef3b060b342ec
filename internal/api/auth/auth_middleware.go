package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kodbank/kodbank/internal/api"
)

type contextKey string

const UsernameKey contextKey = "username"

// TokenFromRequest extracts the bearer token: the jwt cookie is the
// primary transport, an Authorization header the fallback.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("jwt"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
		return ""
	}
	return headerParts[1]
}

// Authenticate is middleware guarding protected routes. It verifies the
// request token through the auth service and adds the owning username to
// the request context.
func Authenticate(logger *slog.Logger, authService AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			token := TokenFromRequest(r)

			username, err := authService.VerifyRequestToken(ctx, token)
			if err != nil {
				l.WarnContext(ctx, "Request token rejected", slog.Any("error", err))
				switch {
				case errors.Is(err, api.ErrTokenMissing):
					api.DomainErrorResponse(w, r, err, "No token provided")
				case errors.Is(err, api.ErrTokenExpired):
					api.DomainErrorResponse(w, r, err, "Invalid or expired token")
				default:
					api.DomainErrorResponse(w, r, err, "Invalid or expired token")
				}
				return
			}

			ctx = context.WithValue(ctx, UsernameKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUsernameFromContext returns the username set by Authenticate.
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}
