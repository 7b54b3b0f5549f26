package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/services"
	"github.com/go-passgate/passgate/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// SessionValueKey is the key inside the encrypted cookie session that
	// holds the opaque "<id>.<secret>" value. The cookie itself carries no
	// principal data; the server-side row is authoritative.
	SessionValueKey = "session_value"
)

// Gate authenticates requests. Each guarded route names exactly one
// channel; a bearer token never satisfies a session route and a cookie
// never satisfies a token route.
type Gate struct {
	sessions *services.SessionService
	tokens   *services.TokenService
	users    *services.UserService
}

func NewGate(
	sessionService *services.SessionService,
	tokenService *services.TokenService,
	userService *services.UserService,
) *Gate {
	return &Gate{
		sessions: sessionService,
		tokens:   tokenService,
		users:    userService,
	}
}

// Probe resolves the session channel without failing the request. Routes
// behind Probe render for both signed-in and anonymous visitors.
func (g *Gate) Probe() gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, err := g.resolveSessionChannel(c)
		if err != nil || ac == nil {
			models.SetAuthContext(c, &models.AuthContext{})
		} else {
			models.SetAuthContext(c, ac)
		}
		c.Next()
	}
}

// RequireSession admits only requests carrying a valid session cookie.
// Browsers are redirected to the login page; API-shaped requests get 401.
// A store failure is answered 503, never 401.
func (g *Gate) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, err := g.resolveSessionChannel(c)
		if err != nil {
			abortStoreUnavailable(c)
			return
		}
		if ac == nil {
			if wantsHTML(c) {
				redirectURL := c.Request.URL.String()
				c.Redirect(http.StatusFound, "/login?redirect="+redirectURL)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthenticated",
				"error_description": "valid session required",
			})
			return
		}

		models.SetAuthContext(c, ac)
		c.Next()
	}
}

// RequireToken admits only requests carrying a valid bearer token in the
// Authorization header. There is no fallback to the session cookie.
func (g *Gate) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			c.Header("WWW-Authenticate", `Bearer realm="PassGate"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthenticated",
				"error_description": "bearer token required",
			})
			return
		}

		record, err := g.tokens.Validate(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, store.ErrStoreUnavailable) {
				abortStoreUnavailable(c)
				return
			}
			c.Header("WWW-Authenticate", `Bearer realm="PassGate", error="invalid_token"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthenticated",
				"error_description": "token invalid, revoked or expired",
			})
			return
		}

		user, err := g.users.GetUserByID(c.Request.Context(), record.UserID)
		if err != nil {
			if errors.Is(err, store.ErrStoreUnavailable) {
				abortStoreUnavailable(c)
				return
			}
			// Token row outlived its principal.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthenticated",
				"error_description": "token invalid, revoked or expired",
			})
			return
		}

		models.SetAuthContext(c, &models.AuthContext{
			User:    user,
			Channel: models.ChannelToken,
			TokenID: record.ID,
		})
		c.Next()
	}
}

// RequireAdmin admits only principals with the admin role. Must run after
// RequireSession or RequireToken.
func (g *Gate) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ac := models.GetAuthContext(c)
		if !ac.SignedIn() || !ac.User.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":             "forbidden",
				"error_description": "admin access required",
			})
			return
		}
		c.Next()
	}
}

// resolveSessionChannel reads the cookie and resolves the server-side row.
// Returns (nil, nil) when the request is simply unauthenticated and a
// non-nil error only for infrastructure failures.
func (g *Gate) resolveSessionChannel(c *gin.Context) (*models.AuthContext, error) {
	cookieSession := sessions.Default(c)
	value, ok := cookieSession.Get(SessionValueKey).(string)
	if !ok || value == "" {
		return nil, nil
	}

	record, err := g.sessions.Resolve(c.Request.Context(), value)
	if err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, nil
	}

	user, err := g.users.GetUserByID(c.Request.Context(), record.UserID)
	if err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, nil
	}

	return &models.AuthContext{
		User:      user,
		Channel:   models.ChannelSession,
		SessionID: record.ID,
	}, nil
}

// bearerToken extracts the raw token from the Authorization header, with
// an access_token query fallback for clients that cannot set headers.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		raw, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || raw == "" {
			return "", false
		}
		return raw, true
	}
	if raw := c.Query("access_token"); raw != "" {
		return raw, true
	}
	return "", false
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

func abortStoreUnavailable(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
		"error":             "store_unavailable",
		"error_description": "authentication store temporarily unavailable",
	})
}
