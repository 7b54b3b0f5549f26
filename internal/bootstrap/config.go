package bootstrap

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-passgate/passgate/internal/config"
)

// validateAllConfiguration validates all configuration settings
func validateAllConfiguration(cfg *config.Config) {
	if err := validateAuthConfig(cfg); err != nil {
		log.Fatalf("Invalid authentication configuration: %v", err)
	}
	if err := validateTokenConfig(cfg); err != nil {
		log.Fatalf("Invalid token configuration: %v", err)
	}
	if err := validateSessionConfig(cfg); err != nil {
		log.Fatalf("Invalid session configuration: %v", err)
	}
}

// validateAuthConfig checks that required config is present for selected auth mode
func validateAuthConfig(cfg *config.Config) error {
	switch cfg.AuthMode {
	case config.AuthModeHTTPAPI:
		if cfg.HTTPAPIURL == "" {
			return errors.New("HTTP_API_URL is required when AUTH_MODE=http_api")
		}
	case config.AuthModeLocal:
		// No additional validation needed
	default:
		return fmt.Errorf("invalid AUTH_MODE: %s (must be: local, http_api)", cfg.AuthMode)
	}
	return nil
}

// validateTokenConfig checks that required config is present for the selected token format
func validateTokenConfig(cfg *config.Config) error {
	switch cfg.TokenFormat {
	case config.TokenFormatJWT:
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when TOKEN_FORMAT=jwt")
		}
	case config.TokenFormatOpaque:
		// No additional validation needed
	default:
		return fmt.Errorf("invalid TOKEN_FORMAT: %s (must be: opaque, jwt)", cfg.TokenFormat)
	}
	return nil
}

// validateSessionConfig checks session settings
func validateSessionConfig(cfg *config.Config) error {
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET must not be empty")
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	return nil
}
