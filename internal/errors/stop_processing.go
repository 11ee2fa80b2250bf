package errors

import "errors"

// ErrSkipped is returned when the operator chooses to skip the current title.
var ErrSkipped = errors.New("skipped by user")

// StopProcessingError is returned when the operator ends the whole batch from
// the candidate picker.
type StopProcessingError struct {
	Reason string
}

func (e *StopProcessingError) Error() string {
	return e.Reason
}

// NewStopProcessingError creates a StopProcessingError with the provided reason.
func NewStopProcessingError(reason string) *StopProcessingError {
	return &StopProcessingError{Reason: reason}
}

// IsStopProcessingError reports whether err is a StopProcessingError (even when wrapped).
func IsStopProcessingError(err error) bool {
	var stopErr *StopProcessingError
	return errors.As(err, &stopErr)
}

// IsSkipped reports whether err carries ErrSkipped.
func IsSkipped(err error) bool {
	return errors.Is(err, ErrSkipped)
}
