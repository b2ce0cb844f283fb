// internal/handlers/cart.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/services"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type CartHandler struct {
	cartService *services.CartService
}

type AddItemRequest struct {
	ProductID uuid.UUID `json:"producto_id" validate:"required"`
	Quantity  int       `json:"cantidad" validate:"required,min=1"`
	Override  bool      `json:"override"`
}

type RemoveItemRequest struct {
	ProductID uuid.UUID `json:"producto_id" validate:"required"`
}

type MigrateRequest struct {
	Items []services.CartEntry `json:"items" validate:"dive"`
}

type cartView struct {
	*models.Cart
	Total string `json:"total"`
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

func (h *CartHandler) view(cart *models.Cart) cartView {
	return cartView{Cart: cart, Total: h.cartService.Total(cart).StringFixed(2)}
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "cart")
		return
	}
	utils.SuccessResponse(c, h.view(cart))
}

// POST /cart
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req AddItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.cartService.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity, req.Override)
	var stockErr *services.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		// stored, but clamped to the stock on hand
		utils.MessageResponse(c, i18n.KeyCartItemAdjusted, gin.H{
			"item":   item,
			"ajuste": stockErr.Items,
		})
	case err != nil:
		respondError(c, err, "product")
	default:
		utils.MessageResponse(c, i18n.KeyCartItemAdded, gin.H{"item": item})
	}
}

// DELETE /cart
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req RemoveItemRequest
	if raw := c.Query("producto_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequestResponse(c, "", err.Error())
			return
		}
		req.ProductID = id
	} else if !bindJSON(c, &req) {
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), userID, req.ProductID); err != nil {
		respondError(c, err, "cart")
		return
	}
	utils.MessageResponse(c, i18n.KeyCartItemRemoved, nil)
}

// POST /cart/migrate
func (h *CartHandler) Migrate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req MigrateRequest
	if !bindJSON(c, &req) {
		return
	}

	cart, mergeErrors, err := h.cartService.Merge(c.Request.Context(), userID, req.Items)
	if err != nil {
		respondError(c, err, "cart")
		return
	}
	if mergeErrors == nil {
		mergeErrors = []services.MergeError{}
	}
	utils.MessageResponse(c, i18n.KeyCartMigrated, gin.H{
		"carrito": h.view(cart),
		"errores": mergeErrors,
	})
}

// POST /cart/clear
func (h *CartHandler) Clear(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.cartService.Clear(c.Request.Context(), userID); err != nil {
		respondError(c, err, "cart")
		return
	}
	utils.MessageResponse(c, i18n.KeyCartCleared, nil)
}
