// Package request holds per-request identity helpers shared by middleware
// and handlers.
package request

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/benvon/study-planner/internal/models"
	"github.com/google/uuid"
)

// UserIDHeader identifies the calling student. It is trusted as-is; there
// is no credential check behind it.
const UserIDHeader = "X-User-ID"

var (
	// ErrMissingUserID is returned when the request carries no X-User-ID
	ErrMissingUserID = errors.New("X-User-ID header is required")
	// ErrInvalidUserID is returned when X-User-ID is not a non-nil UUID
	ErrInvalidUserID = errors.New("X-User-ID must be a UUID")
)

type contextKey struct{}

// UserID parses the caller's ID from the X-User-ID header
func UserID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if raw == "" {
		return uuid.Nil, ErrMissingUserID
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidUserID
	}
	return id, nil
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address without its port
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

// WithUser attaches the resolved user to ctx
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the user attached by the user-context middleware,
// or nil
func UserFromContext(r *http.Request) *models.User {
	u, _ := r.Context().Value(contextKey{}).(*models.User)
	return u
}
