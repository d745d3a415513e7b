// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/danielhkuo/votedesk/auth"
)

type claimsKey struct{}

// TokenValidator checks a bearer token and returns its claims
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// BearerToken returns the token from an "Authorization: Bearer" header
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithClaims stores claims in ctx
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims RequireRole stored for this request
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

// RequireRole rejects requests without a valid bearer token (401) or whose
// token role is not listed (403).
func RequireRole(v TokenValidator, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				ErrorResponse(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}

			claims, err := v.Validate(token)
			if err != nil {
				slog.Warn("Rejected bearer token", "error", err, "path", r.URL.Path)
				ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if !slices.Contains(roles, claims.Role) {
				ErrorResponse(w, http.StatusForbidden, "Insufficient role")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
