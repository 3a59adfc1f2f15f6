package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemoryCacheSize bounds the number of entries NewMemoryCache keeps when
// size is not positive.
const DefaultMemoryCacheSize = 1024

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is a process-local Cache used when no Redis address is configured.
// It is a bounded LRU whose entries expire after the TTL given at construction.
// A Set with a shorter expiration is also honoured.
type MemoryCache struct {
	entries *expirable.LRU[string, memoryEntry]
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache holding at most size entries, each
// living at most ttl. A ttl of zero or less means entries only leave through
// LRU eviction or an explicit expiration on Set.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	return &MemoryCache{
		entries: expirable.NewLRU[string, memoryEntry](size, nil, ttl),
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	e, ok := m.entries.Get(key)
	if !ok {
		return "", ErrMiss
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.entries.Remove(key)
		return "", ErrMiss
	}
	return e.value, nil
}

// Set stores the value's string form. Zero expiration falls back to the cache TTL.
func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}
	e := memoryEntry{value: s}
	if expiration > 0 {
		e.expiresAt = m.now().Add(expiration)
	}
	m.entries.Add(key, e)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.entries.Remove(key)
	return nil
}

// Len reports how many entries are currently held.
func (m *MemoryCache) Len() int { return m.entries.Len() }

func (m *MemoryCache) Close() error {
	m.entries.Purge()
	return nil
}
