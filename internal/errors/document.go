package errors

import (
	stdErrors "errors"
	"fmt"
)

// ParseError represents a document whose structure could not be read.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse %s: %v", e.What, e.Err)
	}
	return fmt.Sprintf("failed to parse %s", e.What)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(what string, err error) *ParseError {
	return &ParseError{What: what, Err: err}
}

// IsParseError checks if error is a ParseError
func IsParseError(err error) bool {
	var parseErr *ParseError
	return stdErrors.As(err, &parseErr)
}

// ValidationError disqualifies a single candidate edition (title mismatch,
// publication year out of range). It never fails the whole query.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError checks if error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return stdErrors.As(err, &validationErr)
}
