package errors

import "errors"

var (
	ErrNotFound = errors.New("time slot not found")

	ErrInvalidID = errors.New("invalid time slot ID format")

	// ErrStatusConflict means a conditional status update matched no document:
	// the slot is missing or not in the expected current status.
	ErrStatusConflict = errors.New("time slot not in expected status")
)
