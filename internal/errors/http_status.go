package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// RetryableStatusCodes are the statuses the catalogue site uses for rate limiting
// and anti-bot challenges. 418 is what the site sends when it suspects a scraper.
var RetryableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusTeapot:             true,
	http.StatusServiceUnavailable: true,
}

// HTTPStatusError represents a response with a non-success status code
type HTTPStatusError struct {
	StatusCode int
	URL        string
	// Snippet holds the first bytes of the response body, if any
	Snippet string
}

func (e *HTTPStatusError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Snippet)
	}
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Retryable reports whether the status indicates transient blocking.
func (e *HTTPStatusError) Retryable() bool {
	return RetryableStatusCodes[e.StatusCode]
}

// NewHTTPStatusError creates a new HTTPStatusError
func NewHTTPStatusError(statusCode int, url, snippet string) *HTTPStatusError {
	return &HTTPStatusError{StatusCode: statusCode, URL: url, Snippet: snippet}
}

// IsHTTPStatusError checks if error is an HTTPStatusError
func IsHTTPStatusError(err error) bool {
	var statusErr *HTTPStatusError
	return stdErrors.As(err, &statusErr)
}

// StatusCode returns the HTTP status carried by err, or 0 if there is none.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if stdErrors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// IsRetryable reports whether err (even when wrapped) is a rate-limit or
// anti-bot response worth backing off from.
func IsRetryable(err error) bool {
	var statusErr *HTTPStatusError
	if stdErrors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return false
}
