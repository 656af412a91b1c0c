// Package gate holds the synchronous pre-submit checks. Rules run in a fixed
// order and the first failing rule decides the result.
package gate

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BradenHooton/loginguard/internal/models"
)

// Kind classifies a gate result
type Kind int

const (
	OK Kind = iota
	EmptyIdentifier
	EmptyPassword
	Locked
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case EmptyIdentifier:
		return "empty_identifier"
	case EmptyPassword:
		return "empty_password"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// Result is the outcome of Validate. Focus names the field that should
// receive focus, or is empty when focus must not change.
type Result struct {
	Kind      Kind
	Focus     models.Field
	Remaining time.Duration
}

// OK reports whether the submission may proceed
func (r Result) OK() bool {
	return r.Kind == OK
}

// Err returns the rejection as an error, or nil for OK
func (r Result) Err() error {
	switch r.Kind {
	case EmptyIdentifier:
		return models.ErrEmptyIdentifier
	case EmptyPassword:
		return models.ErrEmptyPassword
	case Locked:
		return &models.LockedError{Remaining: r.Remaining}
	default:
		return nil
	}
}

// RemainingMillis returns the lockout remainder in milliseconds
func (r Result) RemainingMillis() int64 {
	return r.Remaining.Milliseconds()
}

// LockoutChecker is the read side of the attempt ledger
type LockoutChecker interface {
	CheckLockoutAt(ctx context.Context, identifier string, now time.Time) models.LockoutStatus
}

var validate = validator.New()

// Gate runs the required-field and lockout rules
type Gate struct {
	lockouts LockoutChecker
}

// New creates a Gate that consults lockouts for rule 3
func New(lockouts LockoutChecker) *Gate {
	return &Gate{lockouts: lockouts}
}

// Validate checks raw, untrimmed form values. It has no side effects.
func (g *Gate) Validate(ctx context.Context, identifier, password string, now time.Time) Result {
	if !present(identifier) {
		return Result{Kind: EmptyIdentifier, Focus: models.FieldIdentifier}
	}
	if !present(password) {
		return Result{Kind: EmptyPassword, Focus: models.FieldPassword}
	}

	if status := g.lockouts.CheckLockoutAt(ctx, identifier, now); status.Locked {
		return Result{Kind: Locked, Remaining: status.Remaining}
	}

	return Result{Kind: OK}
}

func present(value string) bool {
	return validate.Var(strings.TrimSpace(value), "required") == nil
}
