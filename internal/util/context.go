package util

import (
	"context"

	"github.com/gin-gonic/gin"
)

// clientIPKey is the gin context key carrying the resolved client address.
const clientIPKey = "client_ip"

// IPMiddleware resolves the client address once per request and stores it
// under clientIPKey. ClientIP honors X-Forwarded-For behind trusted proxies.
func IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(clientIPKey, c.ClientIP())
		c.Next()
	}
}

// GetIPFromContext returns the client address for ctx, which may be a gin
// context or a plain context carrying the middleware's value. Returns ""
// when no address is known.
func GetIPFromContext(ctx context.Context) string {
	if gc, ok := ctx.(*gin.Context); ok {
		return gc.ClientIP()
	}
	if ip, ok := ctx.Value(clientIPKey).(string); ok {
		return ip
	}
	return ""
}
