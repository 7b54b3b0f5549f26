package core

import (
	"context"
	"time"
)

// Cache is a typed key-value cache. Backends include an in-process map and
// Redis; callers choose T per cached concern (user rows, counters).
type Cache[T any] interface {
	// Get returns the value under key, or the backend's cache-miss error
	// when the key is absent or expired.
	Get(ctx context.Context, key string) (T, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// GetWithFetch reads through the cache: on a miss it calls fetch,
	// stores the result for ttl and returns it. Backends may coalesce
	// concurrent fetches of the same key.
	GetWithFetch(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fetch func(ctx context.Context, key string) (T, error),
	) (T, error)

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
