// Package request carries per-request values: the authenticated user and the
// client IP used for rate limiting and audit logs.
package request

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/astralume/astral-api/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// UserContextKey returns the context key under which the user is stored.
// Exposed so tests can inject non-user values.
func UserContextKey() contextKey { return userContextKey }

// ClientIP returns the originating client address. Proxy headers win over
// RemoteAddr: first X-Forwarded-For entry, then X-Real-IP. RemoteAddr has its
// port stripped so the same client keys the same rate limit bucket across
// connections.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, or nil for anonymous
// requests.
func UserFromContext(r *http.Request) *models.User {
	u, _ := r.Context().Value(userContextKey).(*models.User)
	return u
}
