package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/danzhq/claimgate/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// AccountContextKey is the key for storing account claims in context
	AccountContextKey contextKey = "account"
)

// Middleware validates JWT tokens and injects account claims into context
func Middleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromRequest(tm, r)
			if !ok {
				http.Error(w, "invalid or missing token", http.StatusUnauthorized)
				return
			}

			// Reject refresh tokens for API access (they should only be used with /auth/refresh)
			if claims.Type == "refresh" {
				http.Error(w, "refresh tokens cannot be used for API access", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AccountContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalMiddleware injects account claims when a valid token is present but
// lets unauthenticated requests through. The session endpoint uses it to report
// {ready, authenticated} without turning away anonymous callers.
func OptionalMiddleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := claimsFromRequest(tm, r); ok && claims.Type != "refresh" {
				ctx := context.WithValue(r.Context(), AccountContextKey, claims)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func claimsFromRequest(tm *TokenManager, r *http.Request) (*models.TokenClaims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := tm.ValidateToken(parts[1])
	if err != nil {
		return nil, false
	}

	return claims, true
}

// GetAccountFromContext extracts account claims from request context
func GetAccountFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(AccountContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
