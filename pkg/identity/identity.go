// Package identity resolves the acting user for a request from a configured
// HTTP header. When no header is configured, or the header is absent on the
// request, the actor is the literal "Anonymous".
package identity

import (
	"context"
	"net/http"
	"os"
	"strings"
)

// Anonymous is the actor recorded when no identity can be resolved.
const Anonymous = "Anonymous"

// userCtxKey is an unexported type used as the context key for the username.
type userCtxKey struct{}

// HeaderFromEnv returns the identity header name from AUTH_HEADER.
// An empty value disables identity resolution entirely.
func HeaderFromEnv() string {
	return os.Getenv("AUTH_HEADER")
}

// WithUser returns a new context with the given username attached.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// UserFromContext retrieves the username from the context, falling back to
// Anonymous when none is set.
func UserFromContext(ctx context.Context) string {
	if user, ok := ctx.Value(userCtxKey{}).(string); ok && user != "" {
		return user
	}
	return Anonymous
}

// Middleware returns HTTP middleware that resolves the actor once per request
// from the given header and stores it in the request context.
func Middleware(headerName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := Anonymous
			if headerName != "" {
				if v := strings.TrimSpace(r.Header.Get(headerName)); v != "" {
					user = v
				}
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
