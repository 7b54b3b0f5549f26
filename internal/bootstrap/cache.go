package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/go-passgate/passgate/internal/cache"
	"github.com/go-passgate/passgate/internal/config"
	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/metrics"
	"github.com/go-passgate/passgate/internal/models"
)

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) core.Recorder {
	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}
	return prometheusMetrics
}

// initializeMetricsCache initializes the gauge-count cache. Redis-backed
// with client-side caching when Redis is configured, in-process otherwise.
func initializeMetricsCache(
	ctx context.Context,
	cfg *config.Config,
) (core.Cache[int64], func() error, error) {
	if !cfg.MetricsEnabled {
		return nil, nil, nil
	}

	if cfg.RedisEnabled {
		c, err := cache.NewRueidisAsideCache(
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			"passgate:metrics:",
			cfg.CacheTTL,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis-aside metrics cache: %w", err)
		}
		log.Printf(
			"Metrics cache: redis-aside (addr=%s, db=%d, client_ttl=%s)",
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.CacheTTL,
		)
		return c, c.Close, nil
	}

	c := cache.NewMemoryCache[int64]()
	log.Println("Metrics cache: memory (single instance only)")
	return c, c.Close, nil
}

// initializeUserCache initializes the principal cache (always enabled,
// defaults to memory)
func initializeUserCache(
	ctx context.Context,
	cfg *config.Config,
) (core.Cache[models.User], func() error, error) {
	if cfg.RedisEnabled {
		c, err := cache.NewRueidisCache[models.User](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			"passgate:users:",
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis user cache: %w", err)
		}
		log.Printf("User cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c, c.Close, nil
	}

	c := cache.NewMemoryCache[models.User]()
	log.Println("User cache: memory (single instance only)")
	return c, c.Close, nil
}
