package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.SessionSliding)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, TokenFormatOpaque, cfg.TokenFormat)
	assert.Equal(t, time.Duration(0), cfg.TokenTTL)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "passgate.db", cfg.DatabaseDSN)
	assert.Equal(t, AuthModeLocal, cfg.AuthMode)
	assert.True(t, cfg.OAuthAutoRegister)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, "10-M", cfg.RateLimitRate)
	assert.False(t, cfg.MetricsEnabled)
	assert.True(t, cfg.AuditEnabled)
	assert.Equal(t, 1000, cfg.AuditBufferSize)
	assert.Equal(t, 50, cfg.AuditBatchSize)
	assert.Equal(t, 5*time.Second, cfg.AuditFlushInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SESSION_SLIDING", "true")
	t.Setenv("TOKEN_FORMAT", "jwt")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("AUTH_MODE", "http_api")
	t.Setenv("HTTP_API_URL", "https://auth.example.com/verify")
	t.Setenv("RATE_LIMIT_RATE", "5-M")
	t.Setenv("AUDIT_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SessionSliding)
	assert.Equal(t, TokenFormatJWT, cfg.TokenFormat)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, AuthModeHTTPAPI, cfg.AuthMode)
	assert.Equal(t, "https://auth.example.com/verify", cfg.HTTPAPIURL)
	assert.Equal(t, "5-M", cfg.RateLimitRate)
	assert.False(t, cfg.AuditEnabled)
}

func TestLoadDatabaseDSN(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "host=localhost user=passgate dbname=passgate")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "host=localhost user=passgate dbname=passgate", cfg.DatabaseDSN)
}

func TestLoadSQLitePathFallback(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", "/data/passgate.db")

	cfg := Load()

	assert.Equal(t, "/data/passgate.db", cfg.DatabaseDSN)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "not-a-duration")
	t.Setenv("BCRYPT_COST", "not-a-number")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoadOAuthScopes(t *testing.T) {
	t.Setenv("GITHUB_SCOPES", "user:email, read:org")

	cfg := Load()

	assert.Equal(t, []string{"user:email", "read:org"}, cfg.GitHubOAuthScopes)
}
