package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthChecker(t *testing.T) {
	t.Parallel()

	healthy := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name         string
		query        string
		checks       map[string]CheckFunc
		expectStatus int
		expectHealth string
		expectChecks map[string]string
	}{
		{
			name:         "basic mode skips checks",
			query:        "",
			checks:       map[string]CheckFunc{"database": failing},
			expectStatus: http.StatusOK,
			expectHealth: "healthy",
		},
		{
			name:         "extended mode all healthy",
			query:        "?mode=extended",
			checks:       map[string]CheckFunc{"database": healthy, "redis": healthy},
			expectStatus: http.StatusOK,
			expectHealth: "healthy",
			expectChecks: map[string]string{"database": "healthy", "redis": "healthy"},
		},
		{
			name:         "extended mode with unconfigured queue",
			query:        "?mode=extended",
			checks:       map[string]CheckFunc{"database": healthy, "rabbitmq": nil},
			expectStatus: http.StatusOK,
			expectHealth: "healthy",
			expectChecks: map[string]string{"database": "healthy", "rabbitmq": "not configured"},
		},
		{
			name:         "extended mode with failing database",
			query:        "?mode=extended",
			checks:       map[string]CheckFunc{"database": failing, "redis": healthy},
			expectStatus: http.StatusServiceUnavailable,
			expectHealth: "unhealthy",
			expectChecks: map[string]string{"database": "unhealthy: connection refused", "redis": "healthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker()
			for name, check := range tt.checks {
				h.AddCheck(name, check)
			}

			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz"+tt.query, nil))

			if w.Code != tt.expectStatus {
				t.Errorf("Expected status %d, got %d", tt.expectStatus, w.Code)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.expectHealth {
				t.Errorf("Expected status %q, got %q", tt.expectHealth, resp.Status)
			}
			if len(resp.Checks) != len(tt.expectChecks) {
				t.Fatalf("Expected %d checks, got %d", len(tt.expectChecks), len(resp.Checks))
			}
			for name, want := range tt.expectChecks {
				if got := resp.Checks[name]; got != want {
					t.Errorf("Expected check[%s] = %q, got %q", name, want, got)
				}
			}
		})
	}
}
