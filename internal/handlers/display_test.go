package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDisplayHandler(t *testing.T) {
	t.Parallel()

	h := NewDisplayHandler()

	tests := []struct {
		name          string
		handler       http.HandlerFunc
		path          string
		expectStatus  int
		expectDisplay string
	}{
		{name: "afternoon", handler: h.Time, path: "/display/time?t=14:05", expectStatus: http.StatusOK, expectDisplay: "2:05 PM"},
		{name: "midnight", handler: h.Time, path: "/display/time?t=00:00", expectStatus: http.StatusOK, expectDisplay: "12:00 AM"},
		{name: "noon", handler: h.Time, path: "/display/time?t=12:30", expectStatus: http.StatusOK, expectDisplay: "12:30 PM"},
		{name: "bad time", handler: h.Time, path: "/display/time?t=24:00", expectStatus: http.StatusBadRequest},
		{name: "missing time", handler: h.Time, path: "/display/time", expectStatus: http.StatusBadRequest},
		{name: "long date", handler: h.Date, path: "/display/date?d=2025-12-05", expectStatus: http.StatusOK, expectDisplay: "Friday, December 5, 2025"},
		{name: "bad date", handler: h.Date, path: "/display/date?d=2025-02-30", expectStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.expectStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectStatus, w.Code)
			}
			if tt.expectStatus != http.StatusOK {
				return
			}
			var resp DisplayResponse
			decodeData(t, w, &resp)
			if resp.Display != tt.expectDisplay {
				t.Errorf("Expected display %q, got %q", tt.expectDisplay, resp.Display)
			}
		})
	}
}
