package services

import (
	"errors"
	"fmt"
)

var (
	// ErrRefreshInProgress is returned when a bulk refresh is requested while one is running
	ErrRefreshInProgress = errors.New("price refresh already in progress")

	// ErrIndexOutOfRange is returned by Delete when the row index no longer exists
	ErrIndexOutOfRange = errors.New("row index out of range")

	// ErrNotFound is returned for identifiers that are not in the loaded collection
	ErrNotFound = errors.New("minifigure not found")
)

// ValidationError is a user input problem detected before any backend call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RemoteCallError wraps any failure talking to the minifigure backend.
// Not found, server errors and unreachable hosts are all reported the same way.
type RemoteCallError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *RemoteCallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRemote reports whether err is a RemoteCallError
func IsRemote(err error) bool {
	var re *RemoteCallError
	return errors.As(err, &re)
}
