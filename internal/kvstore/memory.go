package kvstore

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory. Entries are lost on restart.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore creates a MemoryStore that purges expired entries every cleanupInterval
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, ErrCorrupt(key)
	}
	return s, true, nil
}

// Set stores value under key. A non-positive ttl keeps the entry until deleted.
func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	m.c.Set(key, value, ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

// Len returns the number of entries, including expired ones not yet purged
func (m *MemoryStore) Len() int {
	return m.c.ItemCount()
}
