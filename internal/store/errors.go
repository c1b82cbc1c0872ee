package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyExists indicates a session with the same participant id is
	// already stored.
	ErrAlreadyExists = errors.New("session already exists")
)

// NotFoundError wraps ErrNotFound with the participant that was looked up.
type NotFoundError struct {
	Participant string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.Participant)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
