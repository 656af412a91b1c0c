package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/loginguard/internal/gate"
	"github.com/BradenHooton/loginguard/internal/models"
)

// stubLockouts reports a fixed lockout for one identifier and counts calls
type stubLockouts struct {
	locked    string
	remaining time.Duration
	calls     int
}

func (s *stubLockouts) CheckLockoutAt(_ context.Context, identifier string, _ time.Time) models.LockoutStatus {
	s.calls++
	if identifier == s.locked {
		return models.LockoutStatus{Locked: true, Remaining: s.remaining}
	}
	return models.LockoutStatus{}
}

func TestValidate_RuleOrder(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	lockouts := &stubLockouts{locked: "locked@x.io", remaining: 200 * time.Second}
	g := gate.New(lockouts)

	tests := []struct {
		name       string
		identifier string
		password   string
		kind       gate.Kind
		focus      models.Field
		err        error
	}{
		{"both empty reports identifier", "", "", gate.EmptyIdentifier, models.FieldIdentifier, models.ErrEmptyIdentifier},
		{"whitespace identifier", "   ", "pw", gate.EmptyIdentifier, models.FieldIdentifier, models.ErrEmptyIdentifier},
		{"empty password", "alice@x.io", "", gate.EmptyPassword, models.FieldPassword, models.ErrEmptyPassword},
		{"whitespace password", "alice@x.io", " \t", gate.EmptyPassword, models.FieldPassword, models.ErrEmptyPassword},
		{"empty password beats lockout", "locked@x.io", "", gate.EmptyPassword, models.FieldPassword, models.ErrEmptyPassword},
		{"locked", "locked@x.io", "pw", gate.Locked, "", models.ErrLocked},
		{"ok", "alice@x.io", "pw", gate.OK, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := g.Validate(context.Background(), tt.identifier, tt.password, now)

			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.focus, res.Focus)
			if tt.err == nil {
				assert.True(t, res.OK())
				assert.NoError(t, res.Err())
			} else {
				assert.False(t, res.OK())
				assert.ErrorIs(t, res.Err(), tt.err)
			}
		})
	}
}

func TestValidate_LockedCarriesRemaining(t *testing.T) {
	lockouts := &stubLockouts{locked: "alice@x.io", remaining: 200 * time.Second}
	res := gate.New(lockouts).Validate(context.Background(), "alice@x.io", "pw", time.Now())

	assert.Equal(t, gate.Locked, res.Kind)
	assert.Equal(t, int64(200000), res.RemainingMillis())

	var locked *models.LockedError
	assert.True(t, errors.As(res.Err(), &locked))
	assert.Equal(t, 200*time.Second, locked.Remaining)
}

func TestValidate_SkipsLockoutCheckForEmptyFields(t *testing.T) {
	lockouts := &stubLockouts{}
	g := gate.New(lockouts)

	g.Validate(context.Background(), "", "pw", time.Now())
	g.Validate(context.Background(), "alice", "", time.Now())
	assert.Equal(t, 0, lockouts.calls)

	g.Validate(context.Background(), "alice", "pw", time.Now())
	assert.Equal(t, 1, lockouts.calls)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ok", gate.OK.String())
	assert.Equal(t, "empty_identifier", gate.EmptyIdentifier.String())
	assert.Equal(t, "empty_password", gate.EmptyPassword.String())
	assert.Equal(t, "locked", gate.Locked.String())
}
