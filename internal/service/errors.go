package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the schedule entry or job does not exist.
	ErrNotFound = errors.New("schedule entry not found")

	// ErrInvalidState means an administrative edit targeted an entry that
	// has already left the state the edit requires.
	ErrInvalidState = errors.New("schedule entry is not in an editable state")
)

// ValidationError reports malformed create/edit input: a bad time format, a
// missing required field, or an unknown platform alias. Surfaced to API
// callers as a client error and never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
