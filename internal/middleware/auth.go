package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/imageshare/service/internal/auth"
	"github.com/imageshare/service/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// PrincipalKey is the context key naming who authorized the request:
// "api-key" for the shared secret, or the subject of a bearer token.
const PrincipalKey contextKey = "principal"

// APIKeyHeader carries the shared secret. X-API-Key is accepted as an alias.
const APIKeyHeader = "api-key"

// RequireAPIKey returns middleware that lets a request through only when it
// presents the shared secret, or, if allowBearer is set, a valid bearer token
// issued by the gate.
func RequireAPIKey(gate *auth.Gate, allowBearer bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				key = r.Header.Get("X-API-Key")
			}
			if key != "" {
				if !gate.Authorize(key) {
					response.Unauthorized(w, "Invalid or missing API key")
					return
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), PrincipalKey, "api-key")))
				return
			}

			if allowBearer {
				if token, ok := bearerToken(r); ok {
					sub, valid := gate.AuthorizeBearer(token)
					if !valid {
						response.Unauthorized(w, "invalid or expired token")
						return
					}
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), PrincipalKey, sub)))
					return
				}
			}

			response.Unauthorized(w, "Invalid or missing API key")
		})
	}
}

// Principal returns who authorized the request, or "" for unguarded routes.
func Principal(ctx context.Context) string {
	p, _ := ctx.Value(PrincipalKey).(string)
	return p
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
