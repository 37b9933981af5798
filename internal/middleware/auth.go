package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/elvisOC/P10/internal/apperr"
	"github.com/elvisOC/P10/internal/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

// RequireAuth validates the bearer access token and injects the user id
// into the request context. A missing or bad token is a 401.
func RequireAuth(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				apperr.Write(w, apperr.Authentication("not authenticated"))
				return
			}

			userID, _, err := tokens.Parse(tokenStr)
			if err != nil {
				apperr.Write(w, apperr.Authentication("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("access_token"); err == nil {
		return c.Value
	}
	return ""
}

// UserID returns the authenticated user id injected by RequireAuth.
func UserID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

// WithUserID returns a context carrying the given user id. Used by
// tests to call handlers without the middleware.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}
