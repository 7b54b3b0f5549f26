package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-passgate/passgate/internal/auth"
	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/middleware"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/services"
	"github.com/go-passgate/passgate/internal/store"
	"github.com/go-passgate/passgate/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const (
	oauthStateKey    = "oauth_state"
	oauthProviderKey = "oauth_provider"
	oauthRedirectKey = "oauth_redirect"

	oauthStateBytes = 32
)

// OAuthHandler handles delegated sign-in. The provider vouches for the
// identity; the session it establishes afterwards is a plain local
// session, indistinguishable from a password login.
type OAuthHandler struct {
	providers      map[string]*auth.OAuthProvider
	userService    *services.UserService
	sessionService *services.SessionService
	auditService   *services.AuditService
	httpClient     *http.Client // Custom HTTP client for OAuth requests
	metrics        core.Recorder
	baseURL        string
	autoRegister   bool
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(
	providers map[string]*auth.OAuthProvider,
	userService *services.UserService,
	sessionService *services.SessionService,
	auditService *services.AuditService,
	httpClient *http.Client,
	m core.Recorder,
	baseURL string,
	autoRegister bool,
) *OAuthHandler {
	return &OAuthHandler{
		providers:      providers,
		userService:    userService,
		sessionService: sessionService,
		auditService:   auditService,
		httpClient:     httpClient,
		metrics:        m,
		baseURL:        baseURL,
		autoRegister:   autoRegister,
	}
}

// LoginWithProvider redirects the browser to the OAuth provider.
func (h *OAuthHandler) LoginWithProvider(c *gin.Context) {
	provider := c.Param("provider")

	oauthProvider, exists := h.providers[provider]
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported_provider",
			"error_description": "the requested OAuth provider is not configured",
		})
		return
	}

	// Generate state for CSRF protection
	state, err := util.CryptoRandomURLSafe(oauthStateBytes)
	if err != nil {
		log.Printf("[OAuth] Failed to generate state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "failed to initiate OAuth login",
		})
		return
	}

	// Save state and redirect URL in the cookie session
	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	session.Set(oauthProviderKey, provider)

	if redirect := c.Query("redirect"); util.IsRedirectSafe(redirect, h.baseURL) &&
		redirect != "" {
		session.Set(oauthRedirectKey, redirect)
	}

	if err := session.Save(); err != nil {
		log.Printf("[OAuth] Failed to save session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "failed to save session",
		})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, oauthProvider.GetAuthURL(state))
}

// OAuthCallback completes the delegated flow: state check, code exchange,
// user info fetch, local account upsert, and finally a local session.
func (h *OAuthHandler) OAuthCallback(c *gin.Context) {
	provider := c.Param("provider")
	code := c.Query("code")
	state := c.Query("state")

	oauthProvider, exists := h.providers[provider]
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported_provider",
			"error_description": "OAuth provider not found",
		})
		return
	}

	// Verify state (CSRF protection)
	session := sessions.Default(c)
	savedState := session.Get(oauthStateKey)
	savedProvider := session.Get(oauthProviderKey)

	if savedState == nil || savedProvider == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_session",
			"error_description": "OAuth session expired or invalid, please try again",
		})
		return
	}

	if state != savedState.(string) || provider != savedProvider.(string) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_state",
			"error_description": "state validation failed, please try again",
		})
		return
	}

	// Use custom HTTP client for OAuth requests
	ctx := context.WithValue(c.Request.Context(), oauth2.HTTPClient, h.httpClient)

	// Exchange code for token
	providerToken, err := oauthProvider.ExchangeCode(ctx, code)
	if err != nil {
		log.Printf("[OAuth] Failed to exchange code: %v", err)
		h.metrics.RecordOAuthCallback(provider, false)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":             "oauth_error",
			"error_description": "failed to exchange authorization code",
		})
		return
	}

	// Get user info from provider
	userInfo, err := oauthProvider.GetUserInfo(ctx, providerToken)
	if err != nil {
		log.Printf("[OAuth] Failed to get user info: %v", err)
		h.metrics.RecordOAuthCallback(provider, false)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":             "oauth_error",
			"error_description": "failed to retrieve user information from provider",
		})
		return
	}

	user, err := h.resolveOAuthUser(c, userInfo, provider)
	if err != nil {
		h.metrics.RecordOAuthCallback(provider, false)
		log.Printf("[OAuth] Authentication failed: %v", err)

		switch {
		case errors.Is(err, services.ErrOAuthAutoRegisterDisabled):
			c.JSON(http.StatusForbidden, gin.H{
				"error":             "registration_disabled",
				"error_description": "new account registration via OAuth is currently disabled",
			})
		case errors.Is(err, store.ErrUsernameConflict):
			c.JSON(http.StatusConflict, gin.H{
				"error":             "username_conflict",
				"error_description": "username conflicts with an existing account",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":             "server_error",
				"error_description": "unable to authenticate your account at this time",
			})
		}
		return
	}

	h.metrics.RecordOAuthCallback(provider, true)

	// Clear OAuth session data
	session.Delete(oauthStateKey)
	session.Delete(oauthProviderKey)

	// Establish a local session; the provider token is not retained.
	value, record, err := h.sessionService.Create(
		c.Request.Context(),
		user,
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		log.Printf("[OAuth] Failed to create session for user=%s: %v", user.Username, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":             "store_unavailable",
			"error_description": "failed to create session",
		})
		return
	}
	session.Set(middleware.SessionValueKey, value)

	// Get redirect URL
	redirectURL := "/"
	if savedRedirect := session.Get(oauthRedirectKey); savedRedirect != nil {
		if s, ok := savedRedirect.(string); ok && util.IsRedirectSafe(s, h.baseURL) {
			redirectURL = s
		}
		session.Delete(oauthRedirectKey)
	}

	if err := session.Save(); err != nil {
		log.Printf("[OAuth] Failed to save session: %v", err)
		_ = h.sessionService.RevokeByID(c.Request.Context(), record.ID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "failed to save session",
		})
		return
	}

	h.metrics.RecordLogin(provider, true)
	h.auditService.Log(c, services.AuditLogEntry{
		EventType:     models.EventOAuthAuthentication,
		Severity:      models.SeverityInfo,
		ActorUserID:   user.ID,
		ActorUsername: user.Username,
		ResourceType:  models.ResourceSession,
		ResourceID:    record.ID,
		Action:        "oauth_callback",
		Details:       models.AuditDetails{"provider": provider},
		Success:       true,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})

	log.Printf("[OAuth] User authenticated: user=%s provider=%s", user.Username, provider)
	c.Redirect(http.StatusFound, redirectURL)
}

// resolveOAuthUser maps provider identity onto a local principal,
// honoring the auto-register setting for first-time visitors.
func (h *OAuthHandler) resolveOAuthUser(
	c *gin.Context,
	userInfo *auth.OAuthUserInfo,
	provider string,
) (*models.User, error) {
	if !h.autoRegister {
		// Only existing accounts may sign in.
		existing, err := h.userService.GetUserByExternalID(
			c.Request.Context(),
			userInfo.ProviderUserID,
			provider,
		)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				return nil, services.ErrOAuthAutoRegisterDisabled
			}
			return nil, err
		}
		_ = existing
	}

	return h.userService.SyncOAuthUser(c.Request.Context(), userInfo, provider)
}
