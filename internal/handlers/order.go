// internal/handlers/order.go
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/services"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"estado" validate:"required,oneof=pendiente completado cancelado"`
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// GET /orders?estado=&desde=2024-01-01&hasta=2024-02-01&page=&limit=
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	filter := services.OrderFilter{
		Status:           models.OrderStatus(c.Query("estado")),
		PaginationParams: utils.GetPaginationParams(c),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationOneOf, "estado", "pendiente completado cancelado"), nil)
		return
	}
	for param, target := range map[string]**time.Time{"desde": &filter.From, "hasta": &filter.To} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			utils.BadRequestResponse(c, "", fmt.Sprintf("%s: %v", param, err))
			return
		}
		*target = &t
	}

	orders, total, err := h.orderService.ListForUser(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, filter.PaginationParams))
}

// GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id", "order")
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	utils.SuccessResponse(c, order)
}

// GET /orders/:id/invoice
func (h *OrderHandler) Invoice(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id", "order")
	if !ok {
		return
	}

	data, contentType, err := h.orderService.Invoice(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err, "order")
		return
	}

	etag := `"` + utils.ContentHash(data) + `"`
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="factura_%s.html"`, utils.ShortID(orderID)))
	c.Data(http.StatusOK, contentType, data)
}

// DELETE /orders/:id
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id", "order")
	if !ok {
		return
	}

	if err := h.orderService.Cancel(c.Request.Context(), userID, orderID); err != nil {
		respondError(c, err, "order")
		return
	}
	utils.MessageResponse(c, i18n.KeyOrderCancelled, nil)
}

// PUT /admin/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	adminID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id", "order")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), adminID, orderID, req.Status)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	utils.MessageResponse(c, i18n.KeyOrderStatusUpdated, order)
}
