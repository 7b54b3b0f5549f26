package bootstrap

import (
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/go-passgate/passgate/internal/auth"
	"github.com/go-passgate/passgate/internal/config"
	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/handlers"
	"github.com/go-passgate/passgate/internal/metrics"
	"github.com/go-passgate/passgate/internal/middleware"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/store"
	"github.com/go-passgate/passgate/internal/util"
	"github.com/go-passgate/passgate/internal/version"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	userCache core.Cache[models.User],
	h handlerSet,
	prometheusMetrics core.Recorder,
	oauthProviders map[string]*auth.OAuthProvider,
) *gin.Engine {
	r := gin.New()

	// Setup middleware
	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(util.IPMiddleware())

	// Setup session middleware
	setupSessionMiddleware(r, cfg)

	// Health check endpoint
	r.GET("/health", createHealthCheckHandler(db, userCache))

	// Setup metrics endpoint
	setupMetricsEndpoint(r, cfg)

	// Setup rate limiting
	loginLimiter := setupRateLimiting(cfg)

	// Setup all routes
	setupAllRoutes(r, h, loginLimiter, oauthProviders)

	// Log server startup info
	logServerStartup(cfg)

	return r
}

// setupSessionMiddleware configures the encrypted cookie carrying the
// opaque session value
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode, // Lax mode required for OAuth callbacks
	})
	r.Use(sessions.Sessions("passgate_session", sessionStore))
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(
	r *gin.Engine,
	h handlerSet,
	loginLimiter gin.HandlerFunc,
	oauthProviders map[string]*auth.OAuthProvider,
) {
	// Public routes
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": version.App,
			"version": version.String(),
		})
	})

	// Session channel: interactive sign-in and sign-out
	providerNames := make([]string, 0, len(oauthProviders))
	for name := range oauthProviders {
		providerNames = append(providerNames, name)
	}
	sort.Strings(providerNames)
	r.GET("/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":   "POST username and password to /login",
			"providers": providerNames,
		})
	})
	r.POST("/login", loginLimiter, h.auth.Login)
	// Logout resolves the caller first so the audit entry names the
	// principal; anonymous callers still pass through.
	r.GET("/logout", h.gate.Probe(), h.auth.Logout)
	r.POST("/logout", h.gate.Probe(), h.auth.Logout)

	// OAuth routes (public)
	setupOAuthRoutes(r, oauthProviders, h.oauth)

	// Token channel: programmatic sign-in (public, rate limited)
	r.POST("/api/signin", loginLimiter, h.token.SignIn)

	// Token channel: everything else requires a bearer token
	api := r.Group("/api")
	api.Use(h.gate.RequireToken())
	{
		api.GET("/me", h.token.Me)
		api.POST("/tokens", loginLimiter, h.token.IssueToken)
		api.GET("/tokens", h.token.ListTokens)
		api.DELETE("/tokens/:id", h.token.RevokeToken)
		api.DELETE("/tokens", h.token.RevokeAllTokens)
		api.POST("/signout", h.token.SignOut)

		// User administration, admin role only
		admin := api.Group("/admin", h.gate.RequireAdmin())
		{
			admin.GET("/users/:id", h.admin.GetUser)
			admin.POST("/users/:id/role", h.admin.SetUserRole)
			admin.DELETE("/users/:id", h.admin.DeleteUser)
		}
	}

	// Session channel: account routes (require login)
	account := r.Group("/account")
	account.Use(h.gate.RequireSession())
	{
		account.GET("/me", h.token.Me)
		account.GET("/sessions", h.session.ListSessions)
		account.POST("/sessions/:id/revoke", h.session.RevokeSession)
		account.POST("/sessions/revoke-all", h.session.RevokeAllSessions)
	}
}

// setupOAuthRoutes configures OAuth authentication routes
func setupOAuthRoutes(
	r *gin.Engine,
	providers map[string]*auth.OAuthProvider,
	handler *handlers.OAuthHandler,
) {
	switch {
	case len(providers) == 0:
		return
	default:
		oauthGroup := r.Group("/auth")
		oauthGroup.GET("/:provider", handler.LoginWithProvider)
		oauthGroup.GET("/:provider/callback", handler.OAuthCallback)
	}
}

// createHealthCheckHandler creates health check endpoint handler
func createHealthCheckHandler(
	db *store.Store,
	userCache core.Cache[models.User],
) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{
			"status":   "healthy",
			"database": "connected",
			"cache":    "connected",
		}
		healthy := true

		if err := db.Health(); err != nil {
			status["database"] = "disconnected"
			healthy = false
		}
		if userCache != nil {
			if err := userCache.Health(c.Request.Context()); err != nil {
				status["cache"] = "disconnected"
				healthy = false
			}
		}

		if !healthy {
			status["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("Authentication mode: %s", cfg.AuthMode)
	log.Printf("%s starting on %s", version.App, cfg.ServerAddr)
	log.Printf("Base URL: %s", cfg.BaseURL)
	log.Printf("Default user: admin (check logs for password if first run)")
}
