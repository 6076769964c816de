// Package middleware provides net/http middleware over an authcore
// engine: a permissive authentication gate that attaches the caller's
// identity to the request context, and strict guards that reject
// requests lacking a role.
//
// The gate never rejects. Absent, malformed, and invalid bearer tokens
// all downgrade the request to anonymous and pass it along; route-level
// guards decide what anonymous may reach. Expiry mid-session therefore
// shows up as a silent downgrade, not an error page.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dinely/authcore/token"
)

// Authenticator validates bearer tokens for the gate. *authcore.Engine
// satisfies it.
type Authenticator interface {
	AuthenticateToken(tokenString string) (*token.Claims, error)
}

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	Subject string
	Roles   []string
	Claims  *token.Claims
}

// HasRole reports whether the identity's role snapshot contains name.
func (id Identity) HasRole(name string) bool {
	for _, r := range id.Roles {
		if r == name {
			return true
		}
	}
	return false
}

type contextKey struct{}

// FromContext returns the identity attached by [Authenticate]. ok is
// false for anonymous requests.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// WithIdentity attaches an identity to ctx. Exported for handler tests.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Authenticate builds the gate middleware. It inspects the
// Authorization header once per request; a valid bearer token yields an
// [Identity] in the context, anything else leaves the request anonymous.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r.Header.Get("Authorization"))

			claims, err := auth.AuthenticateToken(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			id := Identity{
				Subject: claims.Subject(),
				Roles:   append([]string(nil), claims.Roles...),
				Claims:  claims,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// bearerToken extracts the credential from an Authorization header
// value. The scheme comparison is case-insensitive per RFC 7235; any
// other shape yields the empty string.
func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Require rejects anonymous requests with 401. Place it after
// [Authenticate] on routes that need any signed-in caller.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose identity lacks the named role:
// 401 when anonymous, 403 when authenticated without the role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !id.HasRole(role) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
