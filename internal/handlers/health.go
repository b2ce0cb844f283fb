// internal/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/realtime"
)

type HealthHandler struct {
	db      *gorm.DB
	hub     *realtime.Hub
	version string
}

func NewHealthHandler(db *gorm.DB, hub *realtime.Hub, version string) *HealthHandler {
	return &HealthHandler{db: db, hub: hub, version: version}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	database := "up"
	status := http.StatusOK
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		database = "down"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   http.StatusText(status),
		"version":  h.version,
		"database": database,
		"streams":  h.hub.Topics(),
	})
}
