package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitStoreType selects the limiter's counter backend
type RateLimitStoreType string

const (
	RateLimitStoreMemory RateLimitStoreType = "memory"
	RateLimitStoreRedis  RateLimitStoreType = "redis"
)

// RateLimitConfig configures per-client-IP limiting on the
// credential-accepting endpoints.
type RateLimitConfig struct {
	// Rate in limiter format, e.g. "10-M" for ten requests per minute.
	Rate string

	CleanupInterval time.Duration

	// StoreType "memory" counts per instance; "redis" shares counters
	// across instances.
	StoreType RateLimitStoreType

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewRateLimiter builds the gin middleware for config
func NewRateLimiter(config RateLimitConfig) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(config.Rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", config.Rate, err)
	}

	store, err := newLimiterStore(config)
	if err != nil {
		return nil, err
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             "rate_limit_exceeded",
			"error_description": "Too many requests. Please try again later.",
		})
		c.Abort()
	})), nil
}

func newLimiterStore(config RateLimitConfig) (limiter.Store, error) {
	if config.StoreType != RateLimitStoreRedis {
		return memory.NewStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", config.RedisAddr, err)
	}

	store, err := limiterRedis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:          "ratelimit",
		CleanUpInterval: config.CleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis store: %w", err)
	}
	return store, nil
}

// NewMemoryRateLimiter builds a per-instance limiter
func NewMemoryRateLimiter(rate string) (gin.HandlerFunc, error) {
	return NewRateLimiter(RateLimitConfig{
		Rate:            rate,
		StoreType:       RateLimitStoreMemory,
		CleanupInterval: 5 * time.Minute,
	})
}

// NewRedisRateLimiter builds a limiter whose counters are shared across
// instances through Redis
func NewRedisRateLimiter(
	rate string,
	redisAddr, redisPassword string,
	redisDB int,
) (gin.HandlerFunc, error) {
	return NewRateLimiter(RateLimitConfig{
		Rate:            rate,
		StoreType:       RateLimitStoreRedis,
		RedisAddr:       redisAddr,
		RedisPassword:   redisPassword,
		RedisDB:         redisDB,
		CleanupInterval: 5 * time.Minute,
	})
}
