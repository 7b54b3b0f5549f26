package bootstrap

import (
	"context"
	"net/http"

	"github.com/go-passgate/passgate/internal/config"
	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/services"
	"github.com/go-passgate/passgate/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                 *store.Store
	MetricsRecorder    core.Recorder
	MetricsCache       core.Cache[int64]
	MetricsCacheCloser func() error
	UserCache          core.Cache[models.User]
	UserCacheCloser    func() error

	// Services
	AuditService   *services.AuditService
	UserService    *services.UserService
	SessionService *services.SessionService
	TokenService   *services.TokenService

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{
		Config: cfg,
	}

	// Phase 1: Validate configuration
	validateAllConfiguration(cfg)

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	app.initializeBusinessLayer()

	// Phase 4: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics and caches
func (app *Application) initializeInfrastructure() error {
	var err error
	ctx := context.Background()

	// Database
	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config)
	app.MetricsCache, app.MetricsCacheCloser, err = initializeMetricsCache(ctx, app.Config)
	if err != nil {
		return err
	}

	// Principal cache
	app.UserCache, app.UserCacheCloser, err = initializeUserCache(ctx, app.Config)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() {
	// Audit service (required by handlers)
	app.AuditService = services.NewAuditService(
		app.DB,
		app.Config.AuditEnabled,
		app.Config.AuditBufferSize,
		app.Config.AuditBatchSize,
		app.Config.AuditFlushInterval,
	)

	app.UserService, app.SessionService, app.TokenService = initializeServices(
		app.Config,
		app.DB,
		app.UserCache,
		app.MetricsRecorder,
	)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	// OAuth setup
	oauthProviders := initializeOAuthProviders(app.Config)
	logOAuthProvidersStatus(oauthProviders)
	oauthHTTPClient := createOAuthHTTPClient(app.Config)

	// Handlers
	app.HandlerSet = initializeHandlers(
		app.Config,
		app.UserService,
		app.SessionService,
		app.TokenService,
		app.AuditService,
		oauthProviders,
		oauthHTTPClient,
		app.MetricsRecorder,
	)

	// Router
	app.Router = setupRouter(
		app.Config,
		app.DB,
		app.UserCache,
		app.HandlerSet,
		app.MetricsRecorder,
		oauthProviders,
	)

	// HTTP Server
	app.Server = createHTTPServer(app.Config, app.Router)
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	// Add jobs
	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addAuditServiceShutdownJob(m, app.AuditService)
	addAuditLogCleanupJob(m, app.Config, app.AuditService)
	addExpirySweepJob(m, app.Config, app.SessionService, app.TokenService)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder, app.MetricsCache)
	addCacheCleanupJob(m, "metrics", app.MetricsCacheCloser)
	addCacheCleanupJob(m, "user", app.UserCacheCloser)

	// Wait for graceful shutdown
	<-m.Done()
}
