package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
	}{
		{name: "GET request", method: http.MethodGet, path: "/healthz", handlerStatus: http.StatusOK},
		{name: "POST request", method: http.MethodPost, path: "/api/v1/tasks", handlerStatus: http.StatusCreated},
		{name: "404 request", method: http.MethodGet, path: "/notfound", handlerStatus: http.StatusNotFound},
		{name: "implicit 200", method: http.MethodGet, path: "/version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.InfoLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.handlerStatus != 0 {
					w.WriteHeader(tt.handlerStatus)
				}
				_, _ = w.Write([]byte("ok"))
			})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			RequestID(Logging(zap.New(core))(handler)).ServeHTTP(w, req)

			want := tt.handlerStatus
			if want == 0 {
				want = http.StatusOK
			}
			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("Expected one http_request entry, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["status_code"] != int64(want) {
				t.Errorf("Expected logged status %d, got %v", want, fields["status_code"])
			}
			if fields["path"] != tt.path {
				t.Errorf("Expected logged path %s, got %v", tt.path, fields["path"])
			}
			if fields["request_id"] != w.Header().Get(RequestIDHeader) {
				t.Errorf("Expected logged request ID to match response header, got %v", fields["request_id"])
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	incoming := uuid.NewString()
	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{name: "generated when missing"},
		{name: "reused when valid", header: incoming, reuse: true},
		{name: "replaced when malformed", header: "abc\ninjected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			RequestID(handler).ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("Expected UUID request ID, got %q", got)
			}
			if seen != got {
				t.Errorf("Expected context ID %q to match header %q", seen, got)
			}
			if tt.reuse && got != incoming {
				t.Errorf("Expected incoming ID %s to be reused, got %s", incoming, got)
			}
		})
	}
}

func TestAudit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status  int
		message string
	}{
		{status: http.StatusUnauthorized, message: "security_event"},
		{status: http.StatusTooManyRequests, message: "rate_limit_violation"},
		{status: http.StatusOK},
	}

	for _, tt := range tests {
		core, logs := observer.New(zapcore.WarnLevel)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
		Audit(zap.New(core))(handler).ServeHTTP(httptest.NewRecorder(), req)

		if tt.message == "" {
			if logs.Len() != 0 {
				t.Errorf("Expected no audit entry for %d, got %d", tt.status, logs.Len())
			}
			continue
		}
		if logs.FilterMessage(tt.message).Len() != 1 {
			t.Errorf("Expected %s for status %d", tt.message, tt.status)
		}
	}
}
