package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Credential verification
	RecordAuthAttempt(provider string, success bool, duration time.Duration)
	RecordLogin(authSource string, success bool)
	RecordLogout()
	RecordOAuthCallback(provider string, success bool)

	// Session lifecycle
	RecordSessionCreated(channel string)
	RecordSessionResolved(result string)
	RecordSessionRevoked(reason string)

	// Bearer tokens
	RecordTokenIssued(format string, duration time.Duration)
	RecordTokenValidation(result string, duration time.Duration)
	RecordTokenRevoked(reason string)

	// Gauge setters (for periodic updates)
	SetActiveSessionsCount(count int)
	SetActiveTokensCount(count int)

	// Database operations
	RecordDatabaseQueryError(operation string)
}

// MetricsStore defines the DB operations needed by the metrics CacheWrapper.
type MetricsStore interface {
	CountActiveSessions() (int64, error)
	CountActiveTokens() (int64, error)
}
