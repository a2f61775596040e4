package llm

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a backend failure carrying the HTTP status reported by the
// provider. Providers should wrap SDK errors into APIError so callers can
// distinguish authentication and rate-limit failures from everything else.
type APIError struct {
	// Status is the HTTP status code reported by the backend (0 if unknown).
	Status int

	// Message is the human-readable error text from the backend.
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("llm: %s", e.Message)
	}
	return fmt.Sprintf("llm: status %d: %s", e.Status, e.Message)
}

// StatusOf extracts an HTTP status code from err. It unwraps APIError values
// first; failing that, it scans the error text for well-known markers. Returns
// 0 when no status can be determined.
//
// The text scan exists because some SDKs surface backend failures as opaque
// formatted errors rather than typed values.
func StatusOf(err error) int {
	if err == nil {
		return 0
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "authentication"):
		return 401
	case strings.Contains(msg, "403") || strings.Contains(msg, "forbidden"):
		return 403
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "quota"):
		return 429
	}
	return 0
}
