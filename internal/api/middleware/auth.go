package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/video-stream/subbot/internal/auth"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

// TokenValidator verifies bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// AuthMiddleware rejects requests without a valid bearer token for a chat user
func AuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				unauthorized(w, "invalid authorization format")
				return
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

func GetClaims(r *http.Request) *auth.Claims {
	claims, ok := r.Context().Value(UserClaimsKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// UserID returns the authenticated chat user, or 0 outside AuthMiddleware
func UserID(r *http.Request) int64 {
	if c := GetClaims(r); c != nil {
		return c.UserID
	}
	return 0
}
