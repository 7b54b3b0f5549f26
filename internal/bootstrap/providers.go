package bootstrap

import (
	"log"

	"github.com/go-passgate/passgate/internal/auth"
	"github.com/go-passgate/passgate/internal/client"
	"github.com/go-passgate/passgate/internal/config"
	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/token"
)

// initializeHTTPAPIAuthProvider builds the remote verification provider.
// Returns nil unless AUTH_MODE selects it.
func initializeHTTPAPIAuthProvider(cfg *config.Config) *auth.HTTPAPIAuthProvider {
	if cfg.AuthMode != config.AuthModeHTTPAPI {
		return nil
	}

	retryClient, err := client.CreateRetryClient(
		cfg.HTTPAPIAuthMode,
		cfg.HTTPAPIAuthSecret,
		cfg.HTTPAPITimeout,
		cfg.HTTPAPIInsecureSkipVerify,
		cfg.HTTPAPIMaxRetries,
		cfg.HTTPAPIRetryDelay,
		cfg.HTTPAPIMaxRetryDelay,
		cfg.HTTPAPIAuthHeader,
	)
	if err != nil {
		log.Fatalf("Failed to create HTTP API auth client: %v", err)
	}
	log.Printf("HTTP API authentication enabled: %s", cfg.HTTPAPIURL)
	return auth.NewHTTPAPIAuthProvider(cfg, retryClient)
}

// initializeTokenProvider selects the bearer token wire format
func initializeTokenProvider(cfg *config.Config) core.TokenProvider {
	switch cfg.TokenFormat {
	case config.TokenFormatJWT:
		log.Printf("Bearer token format: jwt (issuer: %s)", cfg.BaseURL)
		return token.NewJWTTokenProvider(cfg.JWTSecret, cfg.BaseURL)
	default:
		log.Printf("Bearer token format: opaque")
		return token.NewOpaqueTokenProvider()
	}
}
