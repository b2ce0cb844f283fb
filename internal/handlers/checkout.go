// internal/handlers/checkout.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/services"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type CheckoutHandler struct {
	checkoutService *services.CheckoutService
}

func NewCheckoutHandler(checkoutService *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// POST /checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	order, err := h.checkoutService.Checkout(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "order")
		return
	}
	utils.CreatedResponse(c, i18n.KeyOrderCreated, order)
}

// POST /admin/orders
func (h *CheckoutHandler) PlaceAdminOrder(c *gin.Context) {
	adminID, ok := requireUser(c)
	if !ok {
		return
	}
	var req services.AdminOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.checkoutService.PlaceAdminOrder(c.Request.Context(), adminID, req)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.CreatedResponse(c, i18n.KeyOrderCreated, order)
}
