package models

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Authentication channels. A request is authenticated over exactly one
// channel; the gate never falls back from one to the other.
const (
	ChannelSession = "session"
	ChannelToken   = "token"
)

// authContextKey is the gin context key holding the per-request AuthContext.
const authContextKey = "auth_context"

// AuthContext is the per-request authentication outcome. It is constructed
// once by the gate middleware and threaded through the gin context; handlers
// read it via accessors instead of any process-wide state.
type AuthContext struct {
	User      *User  // nil when unauthenticated
	Channel   string // ChannelSession or ChannelToken; empty when unauthenticated
	SessionID string // set only on the session channel
	TokenID   string // set only on the token channel
}

// SignedIn reports whether the request carries an authenticated principal.
func (a *AuthContext) SignedIn() bool {
	return a != nil && a.User != nil
}

// SetAuthContext stores the AuthContext on the request.
func SetAuthContext(c *gin.Context, ac *AuthContext) {
	c.Set(authContextKey, ac)
}

// GetAuthContext returns the request's AuthContext. A request that passed
// through no gate middleware yields an unauthenticated context.
func GetAuthContext(c *gin.Context) *AuthContext {
	if v, exists := c.Get(authContextKey); exists {
		if ac, ok := v.(*AuthContext); ok {
			return ac
		}
	}
	return &AuthContext{}
}

// CurrentUser returns the authenticated principal, or nil. This is the
// non-failing probe; gated handlers may assume non-nil after RequireSession
// or RequireToken.
func CurrentUser(c *gin.Context) *User {
	return GetAuthContext(c).User
}

// GetUsernameFromContext extracts the username of the authenticated
// principal, when ctx is a gin context that passed through the gate.
// Returns empty string if the user cannot be determined.
func GetUsernameFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if user := CurrentUser(ginCtx); user != nil {
			return user.Username
		}
	}
	return ""
}
