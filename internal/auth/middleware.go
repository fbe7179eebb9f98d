package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// errNoToken means the request carried no usable Authorization header.
var errNoToken = errors.New("auth: no bearer token")

// contextKey is an unexported type for context keys in this package.
// Only this package can create a key of this type, so no other package
// can read or shadow the claims value.
type contextKey string

const claimsKey contextKey = "claims"

// RequireAuth enforces bearer-token authentication on protected routes.
//
// Per-request state machine: no Authorization header → 401; header
// present but token invalid or expired → 401; valid token → decoded
// Claims stored in the request context and the chain continues. The
// wrapped handler is never invoked on rejection, and nothing is retried
// server-side — an expired session means the client logs in again.
//
// The 401 body is the standard envelope so API clients can parse every
// failure the same way.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := claimsFromRequest(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success":false,"message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the authenticated identity placed in the
// context by RequireAuth. The second return is false for anonymous
// requests (routes not behind RequireAuth).
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// claimsFromRequest extracts and verifies the bearer token.
func claimsFromRequest(r *http.Request, tokens *TokenService) (*Claims, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, errNoToken
	}

	return tokens.Verify(token)
}
