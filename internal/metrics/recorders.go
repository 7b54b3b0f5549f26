package metrics

import "time"

const (
	resultSuccess = "success"
	resultError   = "error"
	resultFailure = "failure"
)

// RecordAuthAttempt records a credential verification attempt
func (m *Metrics) RecordAuthAttempt(provider string, success bool, duration time.Duration) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthAttemptsTotal.WithLabelValues(provider, result).Inc()
	m.AuthLoginDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordLogin records a login attempt
func (m *Metrics) RecordLogin(authSource string, success bool) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthLoginTotal.WithLabelValues(authSource, result).Inc()
}

// RecordLogout records a logout
func (m *Metrics) RecordLogout() {
	m.AuthLogoutTotal.Inc()
}

// RecordOAuthCallback records an OAuth callback
func (m *Metrics) RecordOAuthCallback(provider string, success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.AuthOAuthCallbackTotal.WithLabelValues(provider, result).Inc()
}

// RecordSessionCreated records session creation
func (m *Metrics) RecordSessionCreated(channel string) {
	m.SessionsCreatedTotal.WithLabelValues(channel).Inc()
	m.SessionsActive.Inc()
}

// RecordSessionResolved records a session resolve attempt
func (m *Metrics) RecordSessionResolved(result string) {
	m.SessionsResolvedTotal.WithLabelValues(result).Inc()
	if result == "expired" {
		m.SessionsActive.Dec()
	}
}

// RecordSessionRevoked records session revocation
func (m *Metrics) RecordSessionRevoked(reason string) {
	m.SessionsRevokedTotal.WithLabelValues(reason).Inc()
	m.SessionsActive.Dec()
}

// RecordTokenIssued records bearer token issuance
func (m *Metrics) RecordTokenIssued(format string, duration time.Duration) {
	m.TokensIssuedTotal.WithLabelValues(format).Inc()
	m.TokensActive.Inc()
	m.TokenGenerationDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// RecordTokenValidation records a bearer token validation attempt
func (m *Metrics) RecordTokenValidation(result string, duration time.Duration) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
	m.TokenValidationDuration.Observe(duration.Seconds())
}

// RecordTokenRevoked records bearer token revocation
func (m *Metrics) RecordTokenRevoked(reason string) {
	m.TokensRevokedTotal.WithLabelValues(reason).Inc()
	m.TokensActive.Dec()
}

// SetActiveSessionsCount sets the current count of active sessions (for periodic updates)
func (m *Metrics) SetActiveSessionsCount(count int) {
	m.SessionsActive.Set(float64(count))
}

// SetActiveTokensCount sets the current count of active tokens (for periodic updates)
func (m *Metrics) SetActiveTokensCount(count int) {
	m.TokensActive.Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
