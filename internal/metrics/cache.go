package metrics

import (
	"context"
	"time"

	"github.com/go-passgate/passgate/internal/core"
)

// CacheWrapper provides a read-through cache for the active session and
// token gauges. It queries the database on cache miss and updates the
// cache for subsequent requests via GetWithFetch.
type CacheWrapper struct {
	store core.MetricsStore
	cache core.Cache[int64]
}

// NewCacheWrapper creates a new cache wrapper for metrics.
func NewCacheWrapper(store core.MetricsStore, cache core.Cache[int64]) *CacheWrapper {
	return &CacheWrapper{
		store: store,
		cache: cache,
	}
}

// GetActiveSessionsCount retrieves the count of unexpired sessions.
func (m *CacheWrapper) GetActiveSessionsCount(
	ctx context.Context,
	ttl time.Duration,
) (int64, error) {
	return m.getCountWithCache(ctx, "sessions:active", ttl, m.store.CountActiveSessions)
}

// GetActiveTokensCount retrieves the count of active, unexpired bearer tokens.
func (m *CacheWrapper) GetActiveTokensCount(
	ctx context.Context,
	ttl time.Duration,
) (int64, error) {
	return m.getCountWithCache(ctx, "tokens:active", ttl, m.store.CountActiveTokens)
}

// getCountWithCache retrieves a count using the cache-aside pattern.
func (m *CacheWrapper) getCountWithCache(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func() (int64, error),
) (int64, error) {
	return m.cache.GetWithFetch(
		ctx,
		key,
		ttl,
		func(ctx context.Context, key string) (int64, error) {
			return fetchFunc()
		},
	)
}
