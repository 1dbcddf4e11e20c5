package agent

import "fmt"

// TransportError wraps a failed LLM call: the loop returns its message
// verbatim as the turn's final text rather than treating it as a Go
// error the caller must unwrap.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("LLM request failed: %s", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }
