package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for login throttle failure conditions
var (
	// Validation gate rejections
	ErrEmptyIdentifier = errors.New("identifier is required")
	ErrEmptyPassword   = errors.New("password is required")
	ErrLocked          = errors.New("identifier is temporarily locked")

	// Submission lifecycle
	ErrSubmitInProgress = errors.New("submission already in progress")

	// Storage
	ErrCorruptEntry = errors.New("corrupt storage entry")
)

// LockedError carries the remaining lockout time for a locked identifier
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s (%s remaining)", ErrLocked.Error(), e.Remaining.Round(time.Second))
}

func (e *LockedError) Unwrap() error {
	return ErrLocked
}
