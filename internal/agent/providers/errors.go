// Package providers implements the LLM wire client the agent loop calls
// into, kept separate from package agent so its retry/backoff shape can be
// reused without pulling the loop's dependencies into it.
package providers

import "strings"

// TransportReason classifies a failed completion call. There is exactly
// one upstream here (a single OpenAI-compatible proxy), so this is a
// narrow taxonomy covering only what the loop actually needs to decide:
// retry, or surface an error.
type TransportReason string

const (
	ReasonRateLimit   TransportReason = "rate_limit"
	ReasonAuth        TransportReason = "auth"
	ReasonTimeout     TransportReason = "timeout"
	ReasonServerError TransportReason = "server_error"
	ReasonInvalid     TransportReason = "invalid_request"
	ReasonUnknown     TransportReason = "unknown"
)

// Retryable reports whether a call classified with this reason is worth
// retrying with backoff.
func (r TransportReason) Retryable() bool {
	switch r {
	case ReasonRateLimit, ReasonTimeout, ReasonServerError:
		return true
	default:
		return false
	}
}

// ClassifyError inspects an error's text and maps it to a TransportReason.
func ClassifyError(err error) TransportReason {
	if err == nil {
		return ReasonUnknown
	}
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context deadline"):
		return ReasonTimeout
	case strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429"):
		return ReasonRateLimit
	case strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "invalid api key") ||
		strings.Contains(errStr, "authentication") ||
		strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403"):
		return ReasonAuth
	case strings.Contains(errStr, "400") || strings.Contains(errStr, "invalid request"):
		return ReasonInvalid
	case strings.Contains(errStr, "internal server") ||
		strings.Contains(errStr, "server error") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504"):
		return ReasonServerError
	default:
		return ReasonUnknown
	}
}

// IsRetryable is a convenience wrapper over ClassifyError(err).Retryable().
func IsRetryable(err error) bool {
	return ClassifyError(err).Retryable()
}
