package bootstrap

import (
	"github.com/go-passgate/passgate/internal/auth"
	"github.com/go-passgate/passgate/internal/config"
	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/services"
	"github.com/go-passgate/passgate/internal/store"
)

// initializeServices creates all business logic services
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	userCache core.Cache[models.User],
	prometheusMetrics core.Recorder,
) (*services.UserService, *services.SessionService, *services.TokenService) {
	// Initialize authentication providers
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	localProvider := auth.NewLocalAuthProvider(db, hasher)
	httpAPIProvider := initializeHTTPAPIAuthProvider(cfg)

	// Initialize token provider
	tokenProvider := initializeTokenProvider(cfg)

	// Initialize services
	userService := services.NewUserService(
		db,
		localProvider,
		httpAPIProvider,
		cfg.AuthMode,
		userCache,
		cfg.CacheTTL,
		prometheusMetrics,
	)
	sessionService := services.NewSessionService(
		db,
		cfg.SessionTTL,
		cfg.SessionSliding,
		prometheusMetrics,
	)
	tokenService := services.NewTokenService(
		db,
		tokenProvider,
		cfg.TokenTTL,
		prometheusMetrics,
	)

	return userService, sessionService, tokenService
}
