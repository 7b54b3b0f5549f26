package handlers

import (
	"errors"
	"net/http"

	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves user administration for admin principals: inspecting
// accounts, changing roles and removing users along with their credentials.
type AdminHandler struct {
	userService    *services.UserService
	sessionService *services.SessionService
	tokenService   *services.TokenService
	auditService   *services.AuditService
}

func NewAdminHandler(
	us *services.UserService,
	ss *services.SessionService,
	ts *services.TokenService,
	as *services.AuditService,
) *AdminHandler {
	return &AdminHandler{
		userService:    us,
		sessionService: ss,
		tokenService:   ts,
		auditService:   as,
	}
}

// GetUser returns one account by id.
func (h *AdminHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			abortAdminNotFound(c)
			return
		}
		abortJSONStoreUnavailable(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SetUserRole changes an account's role. Admins cannot change their own
// role, so a deployment always keeps at least the acting admin.
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	ac := models.GetAuthContext(c)
	userID := c.Param("id")

	if userID == ac.User.ID {
		c.JSON(http.StatusConflict, gin.H{
			"error":             "self_role_change",
			"error_description": "cannot change your own role",
		})
		return
	}

	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "role is required",
		})
		return
	}

	user, err := h.userService.SetUserRole(c.Request.Context(), userID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "invalid_request",
				"error_description": "role must be admin or user",
			})
		case errors.Is(err, services.ErrUserNotFound):
			abortAdminNotFound(c)
		default:
			abortJSONStoreUnavailable(c)
		}
		return
	}

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:     models.EventUserRoleChanged,
		Severity:      models.SeverityWarning,
		ActorUserID:   ac.User.ID,
		ActorUsername: ac.User.Username,
		ResourceType:  models.ResourceUser,
		ResourceID:    user.ID,
		Action:        "set_user_role",
		Success:       true,
		Details:       models.AuditDetails{"role": user.Role},
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})

	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

// DeleteUser removes an account and revokes all of its sessions and
// tokens. Admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	ac := models.GetAuthContext(c)
	userID := c.Param("id")

	if userID == ac.User.ID {
		c.JSON(http.StatusConflict, gin.H{
			"error":             "self_delete",
			"error_description": "cannot delete your own account",
		})
		return
	}

	// Dead accounts keep no live credentials.
	if err := h.sessionService.RevokeAll(c.Request.Context(), userID); err != nil {
		abortJSONStoreUnavailable(c)
		return
	}
	if err := h.tokenService.RevokeAll(c.Request.Context(), userID); err != nil {
		abortJSONStoreUnavailable(c)
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), userID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			abortAdminNotFound(c)
			return
		}
		abortJSONStoreUnavailable(c)
		return
	}

	h.auditService.Log(c, services.AuditLogEntry{
		EventType:     models.EventUserDeleted,
		Severity:      models.SeverityWarning,
		ActorUserID:   ac.User.ID,
		ActorUsername: ac.User.Username,
		ResourceType:  models.ResourceUser,
		ResourceID:    userID,
		Action:        "delete_user",
		Success:       true,
		UserAgent:     c.Request.UserAgent(),
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
	})

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func abortAdminNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":             "not_found",
		"error_description": "user not found",
	})
}
