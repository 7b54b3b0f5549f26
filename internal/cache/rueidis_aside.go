package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-passgate/passgate/internal/core"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidisaside"
)

var _ core.Cache[int64] = (*RueidisAsideCache)(nil)

// RueidisAsideCache backs the active-session and active-token counters with
// rueidisaside: client-side caching with RESP3 invalidation, and
// single-flight fetches across instances.
type RueidisAsideCache struct {
	client    rueidisaside.CacheAsideClient
	keyPrefix string
	clientTTL time.Duration
}

// NewRueidisAsideCache connects with client-side caching enabled. clientTTL
// bounds how long a locally cached value survives; Redis pushes
// invalidations when the key changes before that.
func NewRueidisAsideCache(
	addr, password string,
	db int,
	keyPrefix string,
	clientTTL time.Duration,
) (*RueidisAsideCache, error) {
	client, err := rueidisaside.NewClient(rueidisaside.ClientOption{
		ClientOption: rueidis.ClientOption{
			InitAddress:       []string{addr},
			Password:          password,
			SelectDB:          db,
			DisableCache:      false,
			CacheSizeEachConn: 128 * 1024 * 1024,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rueidisaside client: %w", err)
	}

	return &RueidisAsideCache{
		client:    client,
		keyPrefix: keyPrefix,
		clientTTL: clientTTL,
	}, nil
}

func (r *RueidisAsideCache) key(k string) string {
	return r.keyPrefix + k
}

// Get returns the cached counter, ErrCacheMiss when the key is absent so
// the caller runs its own fetch-and-Set path.
func (r *RueidisAsideCache) Get(ctx context.Context, key string) (int64, error) {
	val, err := r.client.Get(
		ctx,
		r.clientTTL,
		r.key(key),
		func(ctx context.Context, key string) (string, error) {
			return "", ErrCacheMiss
		},
	)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if val == "" {
		return 0, ErrCacheMiss
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return n, nil
}

// GetWithFetch reads through the cache; on a miss rueidisaside runs fetch
// exactly once even under concurrent load and stores the result.
func (r *RueidisAsideCache) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context, key string) (int64, error),
) (int64, error) {
	val, err := r.client.Get(
		ctx,
		ttl,
		r.key(key),
		func(ctx context.Context, key string) (string, error) {
			n, err := fetch(ctx, key)
			if err != nil {
				return "", err
			}
			return strconv.FormatInt(n, 10), nil
		},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get with fetch: %w", err)
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return n, nil
}

// Set writes the counter with an expiry of ttl.
func (r *RueidisAsideCache) Set(
	ctx context.Context,
	key string,
	value int64,
	ttl time.Duration,
) error {
	cmd := r.client.Client().B().Set().
		Key(r.key(key)).
		Value(strconv.FormatInt(value, 10)).
		Ex(ttl).
		Build()
	if err := r.client.Client().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes key; connected clients get an invalidation push.
func (r *RueidisAsideCache) Delete(ctx context.Context, key string) error {
	cmd := r.client.Client().B().Del().Key(r.key(key)).Build()
	if err := r.client.Client().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Health pings Redis.
func (r *RueidisAsideCache) Health(ctx context.Context) error {
	cmd := r.client.Client().B().Ping().Build()
	if err := r.client.Client().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Close shuts down the Redis connection.
func (r *RueidisAsideCache) Close() error {
	r.client.Close()
	return nil
}
