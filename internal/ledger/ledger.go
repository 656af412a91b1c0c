// Package ledger tracks consecutive failed login attempts per identifier and
// derives a temporary lockout from them. It is an advisory UX throttle: every
// storage problem is treated as "no record".
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/loginguard/internal/kvstore"
	"github.com/BradenHooton/loginguard/internal/models"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
)

const (
	DefaultThreshold       = 5
	DefaultLockoutDuration = 5 * time.Minute
	DefaultRecordTTL       = 30 * time.Minute
	DefaultKeyPrefix       = "lg_"
)

// Config holds the throttle parameters
type Config struct {
	Threshold       int
	LockoutDuration time.Duration
	RecordTTL       time.Duration
	KeyPrefix       string
	Now             func() time.Time
}

// Ledger persists AttemptRecords through a kvstore.Store
type Ledger struct {
	store  kvstore.Store
	config Config
	logger *slog.Logger
}

type storedRecord struct {
	FailureCount int    `json:"failureCount"`
	LockoutUntil *int64 `json:"lockoutUntil,omitempty"`
}

// New creates a Ledger. Zero config values fall back to the defaults.
func New(store kvstore.Store, config Config, logger *slog.Logger) *Ledger {
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = DefaultLockoutDuration
	}
	if config.RecordTTL <= 0 {
		config.RecordTTL = DefaultRecordTTL
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Ledger{store: store, config: config, logger: logger}
}

// Now returns the ledger's current time
func (l *Ledger) Now() time.Time {
	return l.config.Now()
}

// RecordOutcome updates the record for identifier after an authentication attempt.
// Success clears the record. A failure increments the count and starts the
// lockout once the threshold is reached; failures during an active lockout do
// not extend it, and the first failure after a lockout expires starts a new count.
func (l *Ledger) RecordOutcome(ctx context.Context, identifier string, succeeded bool) (models.AttemptRecord, error) {
	key := AttemptKey(l.config.KeyPrefix, identifier)

	if succeeded {
		if err := l.store.Delete(ctx, key); err != nil {
			return models.AttemptRecord{Identifier: identifier}, fmt.Errorf("clear attempt record: %w", err)
		}
		return models.AttemptRecord{Identifier: identifier}, nil
	}

	now := l.config.Now()
	rec, _ := l.Record(ctx, identifier)

	if rec.IsLockedAt(now) {
		return rec, nil
	}
	if rec.LockoutUntil != nil {
		rec = models.AttemptRecord{Identifier: identifier}
	}

	rec.FailureCount++
	if rec.FailureCount >= l.config.Threshold {
		until := now.Add(l.config.LockoutDuration)
		rec.LockoutUntil = &until
	}

	if err := l.save(ctx, key, rec); err != nil {
		return rec, fmt.Errorf("save attempt record: %w", err)
	}
	return rec, nil
}

// CheckLockout reports whether identifier is locked at the ledger's current time
func (l *Ledger) CheckLockout(ctx context.Context, identifier string) models.LockoutStatus {
	return l.CheckLockoutAt(ctx, identifier, l.config.Now())
}

// CheckLockoutAt reports whether identifier is locked at now. It never writes.
func (l *Ledger) CheckLockoutAt(ctx context.Context, identifier string, now time.Time) models.LockoutStatus {
	rec, ok := l.Record(ctx, identifier)
	if !ok || !rec.IsLockedAt(now) {
		return models.LockoutStatus{}
	}
	return models.LockoutStatus{Locked: true, Remaining: rec.LockoutUntil.Sub(now)}
}

// Record loads the stored record for identifier. Missing, unreadable and
// corrupt records all report ok=false.
func (l *Ledger) Record(ctx context.Context, identifier string) (models.AttemptRecord, bool) {
	key := AttemptKey(l.config.KeyPrefix, identifier)
	empty := models.AttemptRecord{Identifier: identifier}

	raw, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("attempt record unreadable, treating as absent",
			pkglogger.IdentifierAttr(identifier),
			slog.Any("error", err))
		return empty, false
	}
	if !ok {
		return empty, false
	}

	var stored storedRecord
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || stored.FailureCount < 0 {
		l.logger.Warn("discarding corrupt attempt record",
			pkglogger.IdentifierAttr(identifier),
			slog.Any("error", err))
		return empty, false
	}

	rec := models.AttemptRecord{Identifier: identifier, FailureCount: stored.FailureCount}
	if stored.LockoutUntil != nil {
		until := time.UnixMilli(*stored.LockoutUntil)
		rec.LockoutUntil = &until
	}
	return rec, true
}

func (l *Ledger) save(ctx context.Context, key string, rec models.AttemptRecord) error {
	stored := storedRecord{FailureCount: rec.FailureCount}
	if rec.LockoutUntil != nil {
		ms := rec.LockoutUntil.UnixMilli()
		stored.LockoutUntil = &ms
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	ttl := l.config.RecordTTL
	if ttl < l.config.LockoutDuration {
		ttl = l.config.LockoutDuration
	}
	return l.store.Set(ctx, key, string(data), ttl)
}
