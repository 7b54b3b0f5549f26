package bootstrap

import (
	"log"

	"github.com/go-passgate/passgate/internal/config"
	"github.com/go-passgate/passgate/internal/middleware"

	"github.com/gin-gonic/gin"
)

// setupRateLimiting returns the per-IP limiter guarding the
// credential-accepting endpoints. A no-op middleware when disabled.
func setupRateLimiting(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimitEnabled {
		return func(c *gin.Context) { c.Next() }
	}

	if cfg.RedisEnabled {
		limiter, err := middleware.NewRedisRateLimiter(
			cfg.RateLimitRate,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
		)
		if err != nil {
			log.Fatalf("Failed to create Redis rate limiter: %v", err)
		}
		log.Printf("Rate limiting enabled (store: redis, rate: %s)", cfg.RateLimitRate)
		return limiter
	}

	limiter, err := middleware.NewMemoryRateLimiter(cfg.RateLimitRate)
	if err != nil {
		log.Fatalf("Failed to create rate limiter: %v", err)
	}
	log.Printf("Rate limiting enabled (store: memory, rate: %s)", cfg.RateLimitRate)
	return limiter
}
