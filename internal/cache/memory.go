package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-passgate/passgate/internal/core"
)

var _ core.Cache[struct{}] = (*MemoryCache[struct{}])(nil)

// MemoryCache is the single-instance backend: a mutex-guarded map with
// lazy expiry at read time. There is no janitor; stale entries linger
// until read or overwritten, which is fine for the small key sets cached
// here (principals, two counters).
type MemoryCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry[T]
}

type memoryEntry[T any] struct {
	value   T
	expires time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{entries: make(map[string]memoryEntry[T])}
}

// Get returns the live value under key, or ErrCacheMiss when absent or
// past its expiry.
func (m *MemoryCache[T]) Get(ctx context.Context, key string) (T, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(entry.expires) {
		var zero T
		return zero, ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores value under key for ttl.
func (m *MemoryCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = memoryEntry[T]{value: value, expires: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Delete removes key.
func (m *MemoryCache[T]) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// GetWithFetch reads through the cache without fetch coalescing; two
// concurrent misses both hit the fetch function.
func (m *MemoryCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context, key string) (T, error),
) (T, error) {
	if value, err := m.Get(ctx, key); err == nil {
		return value, nil
	}

	value, err := fetch(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	_ = m.Set(ctx, key, value, ttl)
	return value, nil
}

// Health always succeeds; there is no backend to lose.
func (m *MemoryCache[T]) Health(ctx context.Context) error {
	return nil
}

// Close drops every entry.
func (m *MemoryCache[T]) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry[T])
	m.mu.Unlock()
	return nil
}
