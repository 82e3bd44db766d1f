package ai

import "fmt"

// UnavailableError means the upstream LLM could not be reached or answered
// with a non-2xx status. It is never retried automatically; the HTTP layer
// maps it to 503. It is deliberately distinct from malformed output, which
// degrades to empty content instead of failing.
type UnavailableError struct {
	Reason     string
	StatusCode int // upstream status when known, 0 otherwise
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ai upstream unavailable (status %d): %s", e.StatusCode, e.Reason)
	}
	return "ai upstream unavailable: " + e.Reason
}
