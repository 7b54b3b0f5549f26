package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Authentication - noop implementations
func (n *NoopMetrics) RecordAuthAttempt(provider string, success bool, duration time.Duration) {}
func (n *NoopMetrics) RecordLogin(authSource string, success bool)                             {}
func (n *NoopMetrics) RecordLogout()                                                           {}
func (n *NoopMetrics) RecordOAuthCallback(provider string, success bool)                       {}

// Session lifecycle - noop implementations
func (n *NoopMetrics) RecordSessionCreated(channel string)  {}
func (n *NoopMetrics) RecordSessionResolved(result string)  {}
func (n *NoopMetrics) RecordSessionRevoked(reason string)   {}

// Bearer tokens - noop implementations
func (n *NoopMetrics) RecordTokenIssued(format string, duration time.Duration)     {}
func (n *NoopMetrics) RecordTokenValidation(result string, duration time.Duration) {}
func (n *NoopMetrics) RecordTokenRevoked(reason string)                            {}

// Gauge Setters - noop implementations
func (n *NoopMetrics) SetActiveSessionsCount(count int) {}
func (n *NoopMetrics) SetActiveTokensCount(count int)   {}

// Database Operations - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
