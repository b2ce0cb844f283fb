// internal/handlers/admin.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/services"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

type UpdateUserStatusRequest struct {
	Active *bool `json:"activo" validate:"required"`
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// GET /admin/orders
func (h *AdminHandler) GetOrders(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AdminOrderFilter{
		Status:           models.OrderStatus(c.Query("estado")),
		PaginationParams: params,
	}
	if userID, err := uuid.Parse(c.Query("usuario_id")); err == nil {
		filter.UserID = &userID
	}
	if t, err := time.Parse("2006-01-02", c.Query("desde")); err == nil {
		filter.CreatedAfter = &t
	}
	if t, err := time.Parse("2006-01-02", c.Query("hasta")); err == nil {
		filter.CreatedBefore = &t
	}
	if includeClosed, err := strconv.ParseBool(c.Query("incluir_cancelados")); err == nil {
		filter.IncludeClosed = includeClosed
	}

	orders, total, err := h.adminService.GetOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params))
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AdminUserFilter{
		Search:           c.Query("q"),
		PaginationParams: params,
	}
	if active, err := strconv.ParseBool(c.Query("activo")); err == nil {
		filter.IsActive = &active
	}

	users, total, err := h.adminService.GetUsers(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "user")
		return
	}
	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, params))
}

// PUT /admin/users/:id/status
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	adminID, ok := requireUser(c)
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "id", "user")
	if !ok {
		return
	}
	var req UpdateUserStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.adminService.UpdateUserStatus(c.Request.Context(), adminID, userID, *req.Active)
	if err != nil {
		respondError(c, err, "user")
		return
	}
	utils.SuccessResponse(c, user)
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AuditLogFilter{
		ResourceType:     c.Query("resource_type"),
		PaginationParams: params,
	}
	if userID, err := uuid.Parse(c.Query("user_id")); err == nil {
		filter.UserID = &userID
	}

	logs, total, err := h.adminService.GetAuditLogs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "audit_log")
		return
	}
	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, params))
}
