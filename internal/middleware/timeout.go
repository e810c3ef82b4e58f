package middleware

import (
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds a request. Chat requests wait on the AI
// provider, so this is generous.
const DefaultRequestTimeout = 30 * time.Second

// Timeout cancels the request context after timeout and answers 503
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, `{"success":false,"error":"Service Unavailable","message":"Request timed out"}`)
	}
}
