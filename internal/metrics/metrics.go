package metrics

import (
	"sync"

	"github.com/go-passgate/passgate/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is an alias for core.Recorder so callers inside this package
// tree can say metrics.Recorder.
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authentication Metrics
	AuthAttemptsTotal      *prometheus.CounterVec
	AuthLoginTotal         *prometheus.CounterVec
	AuthLogoutTotal        prometheus.Counter
	AuthOAuthCallbackTotal *prometheus.CounterVec
	AuthLoginDuration      *prometheus.HistogramVec

	// Session Metrics
	SessionsActive        prometheus.Gauge
	SessionsCreatedTotal  *prometheus.CounterVec
	SessionsResolvedTotal *prometheus.CounterVec
	SessionsRevokedTotal  *prometheus.CounterVec

	// Bearer Token Metrics
	TokensActive            prometheus.Gauge
	TokensIssuedTotal       *prometheus.CounterVec
	TokensRevokedTotal      *prometheus.CounterVec
	TokenValidationTotal    *prometheus.CounterVec
	TokenGenerationDuration *prometheus.HistogramVec
	TokenValidationDuration prometheus.Histogram

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		// Authentication Metrics
		AuthAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Total number of credential verification attempts",
			},
			[]string{"provider", "result"}, // provider: local, http_api; result: success, failure
		),
		AuthLoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of login attempts",
			},
			[]string{
				"auth_source",
				"result",
			}, // auth_source: local, http_api, github, gitea; result: success, failure
		),
		AuthLogoutTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Total number of logouts",
			},
		),
		AuthOAuthCallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_oauth_callback_total",
				Help: "Total number of OAuth callback attempts",
			},
			[]string{"provider", "result"}, // provider: github, gitea; result: success, error
		),
		AuthLoginDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_login_duration_seconds",
				Help:    "Time taken to verify credentials",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"}, // local, http_api
		),

		// Session Metrics
		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sessions_active",
				Help: "Current number of unexpired sessions",
			},
		),
		SessionsCreatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessions_created_total",
				Help: "Total number of sessions created",
			},
			[]string{"channel"},
		),
		SessionsResolvedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessions_resolved_total",
				Help: "Total number of session resolve attempts",
			},
			[]string{"result"}, // hit, miss, expired, bad_secret, malformed, error
		),
		SessionsRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessions_revoked_total",
				Help: "Total number of sessions revoked",
			},
			[]string{"reason"}, // logout, revoke_all
		),

		// Bearer Token Metrics
		TokensActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bearer_tokens_active",
				Help: "Current number of active bearer tokens",
			},
		),
		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bearer_tokens_issued_total",
				Help: "Total number of bearer tokens issued",
			},
			[]string{"format"}, // opaque, jwt
		),
		TokensRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bearer_tokens_revoked_total",
				Help: "Total number of bearer tokens revoked",
			},
			[]string{"reason"}, // single, all
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bearer_token_validation_total",
				Help: "Total number of bearer token validations",
			},
			[]string{"result"}, // hit, miss, revoked, expired, malformed, error
		),
		TokenGenerationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bearer_token_generation_duration_seconds",
				Help:    "Time taken to mint bearer tokens",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"}, // opaque, jwt
		),
		TokenValidationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bearer_token_validation_duration_seconds",
				Help:    "Time taken to validate bearer tokens",
				Buckets: prometheus.DefBuckets,
			},
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		// Database Query Metrics
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"}, // count_active_sessions, count_active_tokens
		),
	}

	return m
}
