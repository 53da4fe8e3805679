package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured is returned before any network I/O when the provider lacks an API key or base URL
	ErrNotConfigured = errors.New("LLM provider is not configured: an API key and base URL are required")
	// ErrStreamTruncated is returned when a stream ends without the [DONE] terminator
	ErrStreamTruncated = errors.New("stream ended before the [DONE] terminator")
)

// ProviderRequestError is returned when the provider answers with a non-2xx status
type ProviderRequestError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ProviderRequestError) Error() string {
	msg := fmt.Sprintf("API request failed: %d %s", e.StatusCode, e.Status)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}
