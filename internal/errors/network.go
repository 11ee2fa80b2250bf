package errors

import (
	stdErrors "errors"
	"fmt"
)

// NetworkError is a connection, DNS or timeout failure that produced no HTTP response.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError wraps err as a NetworkError for the given URL.
func NewNetworkError(url string, err error) *NetworkError {
	return &NetworkError{URL: url, Err: err}
}

// IsNetworkError checks if error is a NetworkError
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return stdErrors.As(err, &netErr)
}
