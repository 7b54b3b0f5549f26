package handlers

import (
	"net/http"
	"time"

	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/services"

	"github.com/gin-gonic/gin"
)

// SessionHandler serves session management for a signed-in principal:
// listing live sessions and revoking them individually or wholesale.
type SessionHandler struct {
	sessionService *services.SessionService
	auditService   *services.AuditService
}

func NewSessionHandler(ss *services.SessionService, as *services.AuditService) *SessionHandler {
	return &SessionHandler{
		sessionService: ss,
		auditService:   as,
	}
}

// ListSessions returns the principal's sessions, newest first. The session
// authenticating this request is flagged so clients can mark it.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	ac := models.GetAuthContext(c)

	sessions, err := h.sessionService.List(c.Request.Context(), ac.User.ID)
	if err != nil {
		abortJSONStoreUnavailable(c)
		return
	}

	items := make([]gin.H, 0, len(sessions))
	for i := range sessions {
		items = append(items, sessionResponse(&sessions[i], ac.SessionID))
	}

	c.JSON(http.StatusOK, gin.H{"sessions": items})
}

// RevokeSession revokes one session by id. Revoking an unknown or already
// revoked session succeeds.
func (h *SessionHandler) RevokeSession(c *gin.Context) {
	ac := models.GetAuthContext(c)
	sessionID := c.Param("id")

	// Only rows owned by the principal are reachable.
	sessions, err := h.sessionService.List(c.Request.Context(), ac.User.ID)
	if err != nil {
		abortJSONStoreUnavailable(c)
		return
	}
	owned := false
	for i := range sessions {
		if sessions[i].ID == sessionID {
			owned = true
			break
		}
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "session not found",
		})
		return
	}

	if err := h.sessionService.RevokeByID(c.Request.Context(), sessionID); err != nil {
		abortJSONStoreUnavailable(c)
		return
	}

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:     models.EventSessionRevoked,
		Severity:      models.SeverityInfo,
		ActorUserID:   ac.User.ID,
		ActorUsername: ac.User.Username,
		ResourceType:  models.ResourceSession,
		ResourceID:    sessionID,
		Action:        "revoke_session",
		Success:       true,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})

	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// RevokeAllSessions revokes every session of the principal, including the
// one authenticating this request.
func (h *SessionHandler) RevokeAllSessions(c *gin.Context) {
	ac := models.GetAuthContext(c)

	if err := h.sessionService.RevokeAll(c.Request.Context(), ac.User.ID); err != nil {
		abortJSONStoreUnavailable(c)
		return
	}

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:     models.EventSessionRevokedAll,
		Severity:      models.SeverityWarning,
		ActorUserID:   ac.User.ID,
		ActorUsername: ac.User.Username,
		ResourceType:  models.ResourceSession,
		Action:        "revoke_all_sessions",
		Success:       true,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})

	c.JSON(http.StatusOK, gin.H{"status": "revoked_all"})
}

// sessionResponse shapes a stored session for listing; no secret material.
func sessionResponse(s *models.Session, currentID string) gin.H {
	resp := gin.H{
		"id":         s.ID,
		"ip":         s.IP,
		"user_agent": s.UserAgent,
		"created_at": s.CreatedAt.UTC().Format(time.RFC3339),
		"expires_at": s.ExpiresAt.UTC().Format(time.RFC3339),
		"current":    s.ID == currentID,
	}
	if !s.LastSeenAt.IsZero() {
		resp["last_seen_at"] = s.LastSeenAt.UTC().Format(time.RFC3339)
	}
	return resp
}
