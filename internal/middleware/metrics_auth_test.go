package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const testMetricsToken = "test-scrape-token-123"

func newMetricsRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsAuthMiddleware(token))
	router.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})
	return router
}

func metricsRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMetricsAuthNoTokenConfigured(t *testing.T) {
	router := newMetricsRouter("")

	w := metricsRequest(router, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "metrics", w.Body.String())
}

func TestMetricsAuthValidToken(t *testing.T) {
	router := newMetricsRouter(testMetricsToken)

	w := metricsRequest(router, "Bearer "+testMetricsToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsAuthInvalidToken(t *testing.T) {
	router := newMetricsRouter(testMetricsToken)

	w := metricsRequest(router, "Bearer wrong-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token")
	assert.Equal(t, `Bearer realm="Metrics"`, w.Header().Get("WWW-Authenticate"))
}

func TestMetricsAuthMissingHeader(t *testing.T) {
	router := newMetricsRouter(testMetricsToken)

	w := metricsRequest(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Bearer token required")
}

func TestMetricsAuthWrongScheme(t *testing.T) {
	router := newMetricsRouter(testMetricsToken)

	w := metricsRequest(router, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
