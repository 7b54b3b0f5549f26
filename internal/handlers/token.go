package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/services"
	"github.com/go-passgate/passgate/internal/store"

	"github.com/gin-gonic/gin"
)

// TokenHandler serves the token-channel API: programmatic sign-in, token
// management and the authenticated identity endpoint.
type TokenHandler struct {
	userService  *services.UserService
	tokenService *services.TokenService
	auditService *services.AuditService
	metrics      core.Recorder
}

func NewTokenHandler(
	us *services.UserService,
	ts *services.TokenService,
	as *services.AuditService,
	m core.Recorder,
) *TokenHandler {
	return &TokenHandler{
		userService:  us,
		tokenService: ts,
		auditService: as,
		metrics:      m,
	}
}

type signInRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Label    string `json:"label"`
}

type issueTokenRequest struct {
	Label string `json:"label"`
}

// SignIn verifies credentials and issues a fresh bearer token. The raw
// token appears in this response and nowhere else, ever.
func (h *TokenHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "username and password are required",
		})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			abortJSONStoreUnavailable(c)
			return
		}

		h.metrics.RecordLogin(services.AuthModeLocal, false)
		h.auditService.Log(c, services.AuditLogEntry{
			EventType:     models.EventAuthenticationFailure,
			Severity:      models.SeverityWarning,
			ActorUsername: req.Username,
			ResourceType:  models.ResourceToken,
			Action:        "signin",
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

	record, err := h.tokenService.Issue(c.Request.Context(), user, req.Label)
	if err != nil {
		abortJSONStoreUnavailable(c)
		return
	}

	h.metrics.RecordLogin(user.AuthSource, true)
	h.auditService.Log(c, services.AuditLogEntry{
		EventType:     models.EventTokenIssued,
		Severity:      models.SeverityInfo,
		ActorUserID:   user.ID,
		ActorUsername: user.Username,
		ResourceType:  models.ResourceToken,
		ResourceID:    record.ID,
		ResourceName:  record.Label,
		Action:        "signin",
		Success:       true,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})

	c.JSON(http.StatusOK, signInResponse(record, user))
}

// Me returns the authenticated principal and the channel it arrived on.
func (h *TokenHandler) Me(c *gin.Context) {
	ac := models.GetAuthContext(c)
	c.JSON(http.StatusOK, gin.H{
		"user":    userResponse(ac.User),
		"channel": ac.Channel,
	})
}

// IssueToken mints an additional bearer token for the authenticated
// principal. Earlier tokens stay valid; one credential per client.
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req issueTokenRequest
	// Body is optional; an empty label is allowed.
	_ = c.ShouldBindJSON(&req)

	ac := models.GetAuthContext(c)
	record, err := h.tokenService.Issue(c.Request.Context(), ac.User, req.Label)
	if err != nil {
		abortJSONStoreUnavailable(c)
		return
	}

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:     models.EventTokenIssued,
		Severity:      models.SeverityInfo,
		ActorUserID:   ac.User.ID,
		ActorUsername: ac.User.Username,
		ResourceType:  models.ResourceToken,
		ResourceID:    record.ID,
		ResourceName:  record.Label,
		Action:        "issue_token",
		Success:       true,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})

	c.JSON(http.StatusCreated, signInResponse(record, ac.User))
}

// ListTokens returns one page of the principal's tokens. Raw token values
// are not recoverable; only labels and display suffixes appear.
func (h *TokenHandler) ListTokens(c *gin.Context) {
	ac := models.GetAuthContext(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	params := store.NewPaginationParams(page, pageSize, c.Query("search"))

	tokens, pagination, err := h.tokenService.List(c.Request.Context(), ac.User.ID, params)
	if err != nil {
		abortJSONStoreUnavailable(c)
		return
	}

	items := make([]gin.H, 0, len(tokens))
	for i := range tokens {
		items = append(items, tokenResponse(&tokens[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"tokens":     items,
		"pagination": pagination,
	})
}

// RevokeToken revokes one of the principal's tokens by id. Tokens owned
// by other principals are reported not found.
func (h *TokenHandler) RevokeToken(c *gin.Context) {
	ac := models.GetAuthContext(c)
	tokenID := c.Param("id")

	err := h.tokenService.Revoke(c.Request.Context(), ac.User.ID, tokenID)
	if err != nil {
		if errors.Is(err, services.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":             "not_found",
				"error_description": "token not found",
			})
			return
		}
		abortJSONStoreUnavailable(c)
		return
	}

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:     models.EventTokenRevoked,
		Severity:      models.SeverityInfo,
		ActorUserID:   ac.User.ID,
		ActorUsername: ac.User.Username,
		ResourceType:  models.ResourceToken,
		ResourceID:    tokenID,
		Action:        "revoke_token",
		Success:       true,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})

	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// RevokeAllTokens revokes every token of the principal, including the one
// authenticating this request.
func (h *TokenHandler) RevokeAllTokens(c *gin.Context) {
	ac := models.GetAuthContext(c)

	if err := h.tokenService.RevokeAll(c.Request.Context(), ac.User.ID); err != nil {
		abortJSONStoreUnavailable(c)
		return
	}

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:     models.EventTokenRevokedAll,
		Severity:      models.SeverityWarning,
		ActorUserID:   ac.User.ID,
		ActorUsername: ac.User.Username,
		ResourceType:  models.ResourceToken,
		Action:        "revoke_all_tokens",
		Success:       true,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})

	c.JSON(http.StatusOK, gin.H{"status": "revoked_all"})
}

// SignOut revokes the token presented on this request.
func (h *TokenHandler) SignOut(c *gin.Context) {
	ac := models.GetAuthContext(c)

	err := h.tokenService.Revoke(c.Request.Context(), ac.User.ID, ac.TokenID)
	if err != nil && !errors.Is(err, services.ErrTokenNotFound) {
		abortJSONStoreUnavailable(c)
		return
	}

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:     models.EventTokenRevoked,
		Severity:      models.SeverityInfo,
		ActorUserID:   ac.User.ID,
		ActorUsername: ac.User.Username,
		ResourceType:  models.ResourceToken,
		ResourceID:    ac.TokenID,
		Action:        "signout",
		Success:       true,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})

	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}

// signInResponse shapes an issuance result. "token" carries the raw value
// exactly once.
func signInResponse(record *models.BearerToken, user *models.User) gin.H {
	resp := gin.H{
		"token":      record.RawToken,
		"token_type": "Bearer",
		"token_id":   record.ID,
		"format":     record.Format,
		"user":       userResponse(user),
	}
	if !record.ExpiresAt.IsZero() {
		resp["expires_at"] = record.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// tokenResponse shapes a stored token for listing; no secret material.
func tokenResponse(t *models.BearerToken) gin.H {
	resp := gin.H{
		"id":         t.ID,
		"label":      t.Label,
		"last_eight": t.TokenLastE8,
		"status":     t.Status,
		"format":     t.Format,
		"created_at": t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !t.ExpiresAt.IsZero() {
		resp["expires_at"] = t.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if t.LastUsedAt != nil {
		resp["last_used_at"] = t.LastUsedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func abortJSONStoreUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":             "store_unavailable",
		"error_description": "authentication store temporarily unavailable",
	})
}
