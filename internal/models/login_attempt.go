package models

import "time"

// AttemptRecord is the persisted failure bookkeeping for one identifier
type AttemptRecord struct {
	Identifier   string     `json:"-"`
	FailureCount int        `json:"failureCount"`
	LockoutUntil *time.Time `json:"-"`
}

// IsLockedAt reports whether the record's lockout is still in effect at now
func (r AttemptRecord) IsLockedAt(now time.Time) bool {
	return r.LockoutUntil != nil && now.Before(*r.LockoutUntil)
}

// LockoutStatus is the result of a lockout check for an identifier
type LockoutStatus struct {
	Locked    bool          `json:"locked"`
	Remaining time.Duration `json:"-"`
}

// RemainingMillis returns the remaining lockout in whole milliseconds
func (s LockoutStatus) RemainingMillis() int64 {
	if !s.Locked || s.Remaining <= 0 {
		return 0
	}
	return s.Remaining.Milliseconds()
}
