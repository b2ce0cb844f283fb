// internal/handlers/notification.go
package handlers

import (
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/realtime"
	"github.com/yecy-cosmetic/store-backend/internal/services"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

const streamKeepAlive = 25 * time.Second

type NotificationHandler struct {
	notificationService *services.NotificationService
	hub                 *realtime.Hub
}

func NewNotificationHandler(notificationService *services.NotificationService, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		hub:                 hub,
	}
}

// GET /notifications?leida=false&tipo=stock_bajo
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	filter := services.NotificationFilter{
		Type:             models.NotificationType(c.Query("tipo")),
		PaginationParams: utils.GetPaginationParams(c),
	}
	if raw := c.Query("leida"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			utils.BadRequestResponse(c, "", err.Error())
			return
		}
		filter.Read = &read
	}

	notifications, total, err := h.notificationService.List(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err, "notification")
		return
	}
	utils.PaginatedResponse(c, utils.CreatePaginationResult(notifications, total, filter.PaginationParams))
}

// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	count, err := h.notificationService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "notification")
		return
	}
	utils.SuccessResponse(c, gin.H{"no_leidas": count})
}

// PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	notificationID, ok := uuidParam(c, "id", "notification")
	if !ok {
		return
	}

	notification, err := h.notificationService.MarkRead(c.Request.Context(), userID, notificationID)
	if err != nil {
		respondError(c, err, "notification")
		return
	}
	utils.MessageResponse(c, i18n.KeyNotificationRead, notification)
}

// PATCH /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "notification")
		return
	}
	utils.MessageResponse(c, i18n.KeyNotificationRead, gin.H{"actualizadas": updated})
}

// DELETE /notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	notificationID, ok := uuidParam(c, "id", "notification")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), userID, notificationID); err != nil {
		respondError(c, err, "notification")
		return
	}
	utils.MessageResponse(c, i18n.KeyNotificationDeleted, nil)
}

// GET /notifications/stream
//
// Server-sent events carrying {type, message, timestamp} for the caller's
// (role, user) topic until the client disconnects.
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	role := models.RoleClient
	if utils.IsAdminFromContext(c) {
		role = models.RoleAdmin
	}

	messages, cancel := h.hub.Subscribe(realtime.Topic{Role: string(role), UserID: userID})
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, open := <-messages:
			if !open {
				return false
			}
			c.SSEvent("notification", msg)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"timestamp": time.Now().UTC()})
			return true
		}
	})
}
