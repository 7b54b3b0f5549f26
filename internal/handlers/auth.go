package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/middleware"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/services"
	"github.com/go-passgate/passgate/internal/store"
	"github.com/go-passgate/passgate/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// AuthHandler serves the session-channel endpoints: interactive login
// and logout. The encrypted cookie carries only the opaque session value.
type AuthHandler struct {
	userService    *services.UserService
	sessionService *services.SessionService
	auditService   *services.AuditService
	metrics        core.Recorder
	baseURL        string
}

func NewAuthHandler(
	us *services.UserService,
	ss *services.SessionService,
	as *services.AuditService,
	m core.Recorder,
	baseURL string,
) *AuthHandler {
	return &AuthHandler{
		userService:    us,
		sessionService: ss,
		auditService:   as,
		metrics:        m,
		baseURL:        baseURL,
	}
}

type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
	Redirect string `form:"redirect" json:"redirect"`
}

// Login verifies credentials and establishes a session. Accepts both form
// posts (browser) and JSON bodies; the failure message never says which
// half of the credential pair was wrong.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "username and password are required",
		})
		return
	}

	// Validate redirect URL security
	if !util.IsRedirectSafe(req.Redirect, h.baseURL) {
		req.Redirect = ""
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":             "store_unavailable",
				"error_description": "authentication store temporarily unavailable",
			})
			return
		}

		h.metrics.RecordLogin(services.AuthModeLocal, false)
		h.auditService.Log(c, services.AuditLogEntry{
			EventType:     models.EventAuthenticationFailure,
			Severity:      models.SeverityWarning,
			ActorUsername: req.Username,
			ResourceType:  models.ResourceUser,
			Action:        "login",
			Success:       false,
			ErrorMessage:  "invalid credentials",
			UserAgent:     c.Request.UserAgent(),
			RequestPath:   c.Request.URL.Path,
			RequestMethod: c.Request.Method,
		})

		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid_credentials",
			"error_description": "invalid username or password",
		})
		return
	}

	value, record, err := h.sessionService.Create(
		c.Request.Context(),
		user,
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		log.Printf("[Auth] Failed to create session for user=%s: %v", user.Username, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":             "store_unavailable",
			"error_description": "failed to create session",
		})
		return
	}

	cookieSession := sessions.Default(c)
	cookieSession.Set(middleware.SessionValueKey, value)
	if err := cookieSession.Save(); err != nil {
		// The server-side row without its cookie is unusable; reclaim it.
		_ = h.sessionService.RevokeByID(c.Request.Context(), record.ID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "failed to save session cookie",
		})
		return
	}

	h.metrics.RecordLogin(user.AuthSource, true)
	h.auditService.Log(c, services.AuditLogEntry{
		EventType:     models.EventAuthenticationSuccess,
		Severity:      models.SeverityInfo,
		ActorUserID:   user.ID,
		ActorUsername: user.Username,
		ResourceType:  models.ResourceSession,
		ResourceID:    record.ID,
		Action:        "login",
		Success:       true,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})

	if isFormRequest(c) {
		if req.Redirect != "" {
			c.Redirect(http.StatusFound, req.Redirect)
		} else {
			c.Redirect(http.StatusFound, "/")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userResponse(user),
	})
}

// Logout revokes the current session and clears the cookie. Safe to call
// with an already revoked or expired session.
func (h *AuthHandler) Logout(c *gin.Context) {
	ac := models.GetAuthContext(c)

	cookieSession := sessions.Default(c)
	if value, ok := cookieSession.Get(middleware.SessionValueKey).(string); ok && value != "" {
		if err := h.sessionService.Revoke(c.Request.Context(), value); err != nil {
			log.Printf("[Auth] Failed to revoke session: %v", err)
		}
	}

	cookieSession.Clear()
	if err := cookieSession.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "failed to clear session cookie",
		})
		return
	}

	h.metrics.RecordLogout()
	if ac.SignedIn() {
		h.auditService.Log(c, services.AuditLogEntry{
			EventType:     models.EventLogout,
			Severity:      models.SeverityInfo,
			ActorUserID:   ac.User.ID,
			ActorUsername: ac.User.Username,
			ResourceType:  models.ResourceSession,
			ResourceID:    ac.SessionID,
			Action:        "logout",
			Success:       true,
			UserAgent:     c.Request.UserAgent(),
			RequestPath:   c.Request.URL.Path,
			RequestMethod: c.Request.Method,
		})
	}

	if isFormRequest(c) {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}

// isFormRequest reports whether the client posted an HTML form rather
// than a JSON body.
func isFormRequest(c *gin.Context) bool {
	ct := c.ContentType()
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}

// userResponse shapes a principal for JSON output. The password hash
// never leaves the store layer.
func userResponse(u *models.User) gin.H {
	return gin.H{
		"id":          u.ID,
		"username":    u.Username,
		"email":       u.Email,
		"full_name":   u.FullName,
		"avatar_url":  u.AvatarURL,
		"role":        u.Role,
		"auth_source": u.AuthSource,
	}
}
