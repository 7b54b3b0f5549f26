package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitRouter(t *testing.T, limiter gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limiter)
	router.POST("/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return router
}

func rateLimitRequest(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-Forwarded-For", ip)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMemoryRateLimiterBlocksAfterLimit(t *testing.T) {
	limiter, err := NewMemoryRateLimiter("5-M")
	require.NoError(t, err)
	router := newRateLimitRouter(t, limiter)

	for i := 0; i < 5; i++ {
		w := rateLimitRequest(router, "192.168.1.100")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should succeed", i+1)
	}

	w := rateLimitRequest(router, "192.168.1.100")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRateLimiterIndependentPerIP(t *testing.T) {
	limiter, err := NewRateLimiter(RateLimitConfig{
		Rate:      "2-M",
		StoreType: RateLimitStoreMemory,
	})
	require.NoError(t, err)
	router := newRateLimitRouter(t, limiter)

	for _, ip := range []string{"192.168.1.1", "192.168.1.2", "192.168.1.3"} {
		for i := 0; i < 2; i++ {
			w := rateLimitRequest(router, ip)
			assert.Equal(t, http.StatusOK, w.Code, "ip %s request %d", ip, i+1)
		}
		w := rateLimitRequest(router, ip)
		assert.Equal(t, http.StatusTooManyRequests, w.Code, "ip %s over limit", ip)
	}
}

func TestRateLimiterInvalidRate(t *testing.T) {
	_, err := NewMemoryRateLimiter("not-a-rate")
	assert.Error(t, err)
}
