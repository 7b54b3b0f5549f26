package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-passgate/passgate/internal/config"
	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/metrics"
	"github.com/go-passgate/passgate/internal/services"
	"github.com/go-passgate/passgate/internal/store"

	"github.com/appleboy/graceful"
)

// expirySweepInterval is how often expired session and token rows are
// reclaimed. Lazy expiry at resolve time remains the correctness
// mechanism; the sweep only bounds table growth.
const expirySweepInterval = time.Hour

// createHTTPServer builds the http.Server with conservative timeouts
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob runs ListenAndServe until the manager cancels
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob drains in-flight requests on shutdown
func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addAuditServiceShutdownJob flushes buffered audit events on shutdown
func addAuditServiceShutdownJob(m *graceful.Manager, auditService *services.AuditService) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down audit service: %v", err)
			return err
		}
		return nil
	})
}

// addAuditLogCleanupJob prunes audit rows past the retention window once a day
func addAuditLogCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
) {
	if !cfg.AuditEnabled || cfg.AuditRetention <= 0 {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		// First pass at startup, then daily.
		runAuditCleanup(cfg, auditService)

		for {
			select {
			case <-ticker.C:
				runAuditCleanup(cfg, auditService)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func runAuditCleanup(cfg *config.Config, auditService *services.AuditService) {
	if deleted, err := auditService.CleanupOldLogs(cfg.AuditRetention); err != nil {
		log.Printf("Failed to cleanup old audit logs: %v", err)
	} else if deleted > 0 {
		log.Printf("Cleaned up %d old audit logs", deleted)
	}
}

// addExpirySweepJob adds the periodic reclaim of expired session and
// token rows
func addExpirySweepJob(
	m *graceful.Manager,
	cfg *config.Config,
	sessionService *services.SessionService,
	tokenService *services.TokenService,
) {
	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(expirySweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n, err := sessionService.Sweep(ctx); err != nil {
					log.Printf("Session sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("Swept %d expired sessions", n)
				}
				if n, err := tokenService.Sweep(ctx); err != nil {
					log.Printf("Token sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("Swept %d expired tokens", n)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addMetricsGaugeUpdateJob refreshes the active-session and active-token
// gauges through the cache-backed counter reads
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	prometheusMetrics core.Recorder,
	metricsCache core.Cache[int64],
) {
	if !cfg.MetricsEnabled || metricsCache == nil {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.CacheTTL)
		defer ticker.Stop()

		cacheWrapper := metrics.NewCacheWrapper(db, metricsCache)

		updateGaugeMetricsWithCache(ctx, cacheWrapper, prometheusMetrics, cfg.CacheTTL)

		for {
			select {
			case <-ticker.C:
				updateGaugeMetricsWithCache(ctx, cacheWrapper, prometheusMetrics, cfg.CacheTTL)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addCacheCleanupJob closes a cache backend on shutdown
func addCacheCleanupJob(m *graceful.Manager, name string, closer func() error) {
	if closer == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := closer(); err != nil {
			log.Printf("Error closing %s cache: %v", name, err)
		} else {
			log.Printf("%s cache closed", name)
		}
		return nil
	})
}

// errorLogger suppresses repeated gauge-read failures so a dead database
// does not flood the log
type errorLogger struct {
	lastErrorTimes  map[string]time.Time
	rateLimitWindow time.Duration
}

func newErrorLogger() *errorLogger {
	return &errorLogger{
		lastErrorTimes:  make(map[string]time.Time),
		rateLimitWindow: 5 * time.Minute,
	}
}

func (e *errorLogger) logIfNeeded(operation string, err error) {
	now := time.Now()
	lastTime, exists := e.lastErrorTimes[operation]

	if !exists || now.Sub(lastTime) >= e.rateLimitWindow {
		log.Printf("Database query failed for %s: %v (further errors will be suppressed for %v)",
			operation, err, e.rateLimitWindow)
		e.lastErrorTimes[operation] = now
	}
}

var gaugeErrorLogger = newErrorLogger()

// updateGaugeMetricsWithCache refreshes both gauges. Counter reads go
// through the cache so several instances scrape one database query.
func updateGaugeMetricsWithCache(
	ctx context.Context,
	cacheWrapper *metrics.CacheWrapper,
	m core.Recorder,
	cacheTTL time.Duration,
) {
	activeSessions, err := cacheWrapper.GetActiveSessionsCount(ctx, cacheTTL)
	if err != nil {
		m.RecordDatabaseQueryError("count_active_sessions")
		gaugeErrorLogger.logIfNeeded("count_active_sessions", err)
	} else {
		m.SetActiveSessionsCount(int(activeSessions))
	}

	activeTokens, err := cacheWrapper.GetActiveTokensCount(ctx, cacheTTL)
	if err != nil {
		m.RecordDatabaseQueryError("count_active_tokens")
		gaugeErrorLogger.logIfNeeded("count_active_tokens", err)
	} else {
		m.SetActiveTokensCount(int(activeTokens))
	}
}
