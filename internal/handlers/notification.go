// internal/handlers/notification.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/distro-backend/internal/i18n"
	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GET /notifications?limit=
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	notifications, err := h.notificationService.List(c.Request.Context(), actor, limit)
	if err != nil {
		handleServiceError(c, "NotificationHandler.ListNotifications", err)
		return
	}

	utils.SuccessResponse(c, notifications)
}

// PUT /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	notificationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), actor, notificationID); err != nil {
		handleServiceError(c, "NotificationHandler.MarkRead", err)
		return
	}

	utils.MessageResponse(c, i18n.KeyNotificationRead, nil)
}
