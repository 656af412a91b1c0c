// Package kvstore provides the key-value capability the ledger and the
// remember-me preference persist through. Backends differ in where the data
// lives (browser cookies, process memory, postgres) but all honour a per-entry TTL.
package kvstore

import (
	"context"
	"time"
)

// Store is a string key-value store with per-entry expiry.
// Get returns ok=false for missing or expired entries.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Scoped prefixes every key with scope before delegating to the wrapped store.
// Server-side backends use it to keep one browser's entries apart from another's.
type Scoped struct {
	store Store
	scope string
}

// NewScoped wraps store so that all keys live under scope
func NewScoped(store Store, scope string) *Scoped {
	return &Scoped{store: store, scope: scope}
}

func (s *Scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.scope+key)
}

func (s *Scoped) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.store.Set(ctx, s.scope+key, value, ttl)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.scope+key)
}
