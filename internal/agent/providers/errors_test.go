package providers

import (
	"errors"
	"testing"
)

func TestTransportReasonRetryable(t *testing.T) {
	tests := []struct {
		reason   TransportReason
		expected bool
	}{
		{ReasonRateLimit, true},
		{ReasonTimeout, true},
		{ReasonServerError, true},
		{ReasonAuth, false},
		{ReasonInvalid, false},
		{ReasonUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			if got := tt.reason.Retryable(); got != tt.expected {
				t.Errorf("TransportReason(%q).Retryable() = %v, want %v", tt.reason, got, tt.expected)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected TransportReason
	}{
		{"nil error", nil, ReasonUnknown},
		{"timeout", errors.New("request timeout"), ReasonTimeout},
		{"deadline exceeded", errors.New("context deadline exceeded"), ReasonTimeout},
		{"rate limit", errors.New("rate limit exceeded"), ReasonRateLimit},
		{"too many requests", errors.New("too many requests"), ReasonRateLimit},
		{"429 status", errors.New("HTTP 429"), ReasonRateLimit},
		{"unauthorized", errors.New("unauthorized"), ReasonAuth},
		{"invalid api key", errors.New("invalid api key"), ReasonAuth},
		{"400 status", errors.New("HTTP 400 invalid request"), ReasonInvalid},
		{"server error", errors.New("internal server error"), ReasonServerError},
		{"500 status", errors.New("HTTP 500"), ReasonServerError},
		{"unknown", errors.New("something went wrong"), ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(errors.New("rate limit exceeded")) {
		t.Error("rate limit error should be retryable")
	}
	if IsRetryable(errors.New("unauthorized")) {
		t.Error("auth error should not be retryable")
	}
	if !IsRetryable(errors.New("request timeout")) {
		t.Error("timeout error should be retryable")
	}
}
