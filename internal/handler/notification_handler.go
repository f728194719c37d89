package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/civicnet/civicconnect-api/internal/models"
	"github.com/civicnet/civicconnect-api/internal/service"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
	"github.com/civicnet/civicconnect-api/pkg/response"
)

// NotificationHandler exposes per-recipient inbox endpoints.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func recipientFromClaims(claims *models.JWTClaims) (models.RecipientKind, string) {
	if claims.Role == models.RoleSuperAdmin {
		return models.RecipientSuperAdmin, claims.UserID
	}
	return models.RecipientUser, claims.UserID
}

// List godoc
// @Summary List own notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Unread only"
// @Param type query string false "Filter by type"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.NotificationFilter
	filter.RecipientKind, filter.RecipientID = recipientFromClaims(claims)
	filter.UnreadOnly = c.Query("unread") == "true"
	filter.Type = models.NotificationType(c.Query("type"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	notifications, pagination, err := h.notifications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, pagination)
}

// UnreadCount godoc
// @Summary Count own unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	kind, recipientID := recipientFromClaims(claims)
	count, err := h.notifications.UnreadCount(c.Request.Context(), kind, recipientID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": count}, nil)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	kind, recipientID := recipientFromClaims(claims)
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), kind, recipientID); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "notification marked read")
}

// MarkAllRead godoc
// @Summary Mark all own notifications as read
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	kind, recipientID := recipientFromClaims(claims)
	if err := h.notifications.MarkAllRead(c.Request.Context(), kind, recipientID); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "notifications marked read")
}

// Delete godoc
// @Summary Delete a notification
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	kind, recipientID := recipientFromClaims(claims)
	if err := h.notifications.Delete(c.Request.Context(), c.Param("id"), kind, recipientID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
