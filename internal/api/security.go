package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/lianamed/pharmacy-api/internal/domain/user"
)

// claimsKey is the context key for the authenticated user's claims.
type claimsKey struct{}

// claimsFrom extracts the verified claims from the context, if any.
func claimsFrom(ctx context.Context) (*user.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*user.Claims)
	return c, ok
}

// userIDFrom returns the authenticated user id, or "" for a guest.
func userIDFrom(ctx context.Context) string {
	if c, ok := claimsFrom(ctx); ok {
		return c.Subject
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// requireAuth rejects requests without a valid bearer token.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := h.auth.VerifyToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalAuth attaches claims when a valid token is present and lets
// everything else through as a guest. A present-but-invalid token is still
// rejected so a customer with an expired session doesn't silently fall back
// to the guest cart.
func (h *Handler) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := h.auth.VerifyToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a route group to the given roles. It assumes requireAuth
// already ran.
func (h *Handler) requireRole(roles ...user.Role) func(http.Handler) http.Handler {
	allowed := make(map[user.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFrom(r.Context())
			if !ok || !allowed[claims.Role] {
				respondError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
