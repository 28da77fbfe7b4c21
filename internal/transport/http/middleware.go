package http

import (
	"context"
	"net/http"

	"fleet-insight/internal/auth"
)

type scopeKey struct{}

// AgencyScope returns the agency the request's API key is scoped to, or
// auth.ScopeAll for unscoped keys. Empty outside an authenticated request.
func AgencyScope(ctx context.Context) string {
	scope, _ := ctx.Value(scopeKey{}).(string)
	return scope
}

type AuthMiddleware struct {
	auth *auth.Authenticator
}

func NewAuthMiddleware(a *auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: a}
}

// Wrap rejects requests without a valid X-API-Key and records the key's
// agency scope on the request context for downstream enforcement.
func (m *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "missing X-API-Key header")
			return
		}

		agency, ok := m.auth.Authorize(r.Context(), apiKey)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		ctx := context.WithValue(r.Context(), scopeKey{}, agency)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
