package bootstrap

import (
	"net/http"

	"github.com/go-passgate/passgate/internal/auth"
	"github.com/go-passgate/passgate/internal/config"
	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/handlers"
	"github.com/go-passgate/passgate/internal/middleware"
	"github.com/go-passgate/passgate/internal/services"
)

// handlerSet holds all HTTP handlers and the authentication gate
type handlerSet struct {
	auth    *handlers.AuthHandler
	token   *handlers.TokenHandler
	session *handlers.SessionHandler
	oauth   *handlers.OAuthHandler
	admin   *handlers.AdminHandler
	gate    *middleware.Gate
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	cfg *config.Config,
	userService *services.UserService,
	sessionService *services.SessionService,
	tokenService *services.TokenService,
	auditService *services.AuditService,
	oauthProviders map[string]*auth.OAuthProvider,
	oauthHTTPClient *http.Client,
	prometheusMetrics core.Recorder,
) handlerSet {
	return handlerSet{
		auth: handlers.NewAuthHandler(
			userService,
			sessionService,
			auditService,
			prometheusMetrics,
			cfg.BaseURL,
		),
		token: handlers.NewTokenHandler(
			userService,
			tokenService,
			auditService,
			prometheusMetrics,
		),
		session: handlers.NewSessionHandler(sessionService, auditService),
		admin: handlers.NewAdminHandler(
			userService,
			sessionService,
			tokenService,
			auditService,
		),
		oauth: handlers.NewOAuthHandler(
			oauthProviders,
			userService,
			sessionService,
			auditService,
			oauthHTTPClient,
			prometheusMetrics,
			cfg.BaseURL,
			cfg.OAuthAutoRegister,
		),
		gate: middleware.NewGate(sessionService, tokenService, userService),
	}
}
