package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(IPMiddleware())

	var captured string
	router.GET("/", func(c *gin.Context) {
		captured = c.GetString("client_ip")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:52000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "203.0.113.7", captured)
}

func TestGetIPFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), "client_ip", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", GetIPFromContext(ctx))

	assert.Equal(t, "", GetIPFromContext(context.Background()))
}
