package ai

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExtractAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		err           error
		wantNil       bool
		wantPermanent bool
		wantRetry     time.Duration
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "unrelated error", err: errors.New("connection reset"), wantNil: true},
		{
			name:      "plain 429",
			err:       errors.New("POST /chat/completions: 429 Too Many Requests"),
			wantRetry: 60 * time.Second,
		},
		{
			name:          "quota exhausted",
			err:           errors.New(`429 {"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}`),
			wantPermanent: true,
			wantRetry:     time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			apiErr := ExtractAPIError(tt.err)
			if tt.wantNil {
				if apiErr != nil {
					t.Errorf("Expected nil, got %v", apiErr)
				}
				return
			}
			if apiErr == nil {
				t.Fatal("Expected APIError, got nil")
			}
			if apiErr.IsPermanent != tt.wantPermanent {
				t.Errorf("Expected IsPermanent %v, got %v", tt.wantPermanent, apiErr.IsPermanent)
			}
			if apiErr.RetryAfter == nil || *apiErr.RetryAfter != tt.wantRetry {
				t.Errorf("Expected RetryAfter %v, got %v", tt.wantRetry, apiErr.RetryAfter)
			}
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	t.Parallel()

	rateLimited := fmt.Errorf("failed to chat: %w", &APIError{StatusCode: 429})
	quota := fmt.Errorf("failed to chat: %w", &APIError{StatusCode: 429, IsPermanent: true})

	if !errors.Is(rateLimited, ErrRateLimited) || errors.Is(rateLimited, ErrQuotaExceeded) {
		t.Error("Expected rate limit error to match ErrRateLimited only")
	}
	if !errors.Is(quota, ErrQuotaExceeded) || errors.Is(quota, ErrRateLimited) {
		t.Error("Expected quota error to match ErrQuotaExceeded only")
	}
}

func TestGetRetryDelay(t *testing.T) {
	t.Parallel()

	generic := errors.New("upstream timeout")
	rateLimited := &APIError{StatusCode: 429}
	quota := &APIError{StatusCode: 429, IsPermanent: true}

	tests := []struct {
		name    string
		err     error
		attempt int
		want    time.Duration
	}{
		{"generic first attempt", generic, 0, 5 * time.Second},
		{"generic third attempt", generic, 2, 20 * time.Second},
		{"generic capped", generic, 50, 5 * time.Minute},
		{"negative attempt", generic, -3, 5 * time.Second},
		{"rate limit first attempt", rateLimited, 0, 60 * time.Second},
		{"rate limit capped", rateLimited, 8, 15 * time.Minute},
		{"quota first attempt", quota, 0, time.Hour},
		{"quota capped", quota, 10, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetRetryDelay(tt.err, tt.attempt); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSanitizeAPIKey(t *testing.T) {
	t.Parallel()

	if got := SanitizeAPIKey("sk-1234567890abcd"); got != "sk-1"+RedactedValue+"abcd" {
		t.Errorf("Unexpected sanitized key: %s", got)
	}
	if got := SanitizeAPIKey("short"); got != RedactedValue {
		t.Errorf("Expected short key to be fully redacted, got %s", got)
	}
}
