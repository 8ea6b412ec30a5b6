package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput reports a missing or non-positive session identifier.
	ErrInvalidInput = errors.New("invalid session identifier")

	// ErrNoSession is returned by operations that need an active session.
	ErrNoSession = errors.New("no active session")

	// ErrAlreadyAbandoned is returned by Complete when the session was
	// abandoned. Completion and abandonment are mutually exclusive.
	ErrAlreadyAbandoned = errors.New("session already abandoned")

	// ErrAbandonInProgress is returned while an abandonment call for the
	// session is still in flight.
	ErrAbandonInProgress = errors.New("abandonment in progress")

	// ErrAdvisoryUnavailable wraps any failure to obtain a penalty advisory.
	// Callers degrade to a generic confirmation.
	ErrAdvisoryUnavailable = errors.New("penalty advisory unavailable")
)

// ValidateID returns ErrInvalidInput unless id is a usable session identifier.
func ValidateID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInput, id)
	}
	return nil
}
