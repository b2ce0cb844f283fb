// internal/handlers/community.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/services"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type CommunityHandler struct {
	communityService *services.CommunityService
}

type LikeResponse struct {
	Liked bool `json:"like"`
}

func NewCommunityHandler(communityService *services.CommunityService) *CommunityHandler {
	return &CommunityHandler{communityService: communityService}
}

// GET /comments
func (h *CommunityHandler) ListComments(c *gin.Context) {
	filter := services.CommentFilter{PaginationParams: utils.GetPaginationParams(c)}
	if raw := c.Query("producto_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationUUID, "producto_id"), nil)
			return
		}
		filter.ProductID = &id
	}

	comments, total, err := h.communityService.ListComments(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "comment")
		return
	}
	utils.PaginatedResponse(c, utils.CreatePaginationResult(comments, total, filter.PaginationParams))
}

// POST /comments
func (h *CommunityHandler) CreateComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req services.CommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.communityService.CreateComment(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, "comment")
		return
	}
	utils.CreatedResponse(c, i18n.KeyCommentCreated, comment)
}

// PUT /comments/:id
func (h *CommunityHandler) UpdateComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "comment")
	if !ok {
		return
	}
	var req services.UpdateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.communityService.UpdateComment(c.Request.Context(), userID, id, &req)
	if err != nil {
		respondError(c, err, "comment")
		return
	}
	utils.MessageResponse(c, i18n.KeyCommentUpdated, comment)
}

// DELETE /comments/:id
func (h *CommunityHandler) DeleteComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "comment")
	if !ok {
		return
	}

	if err := h.communityService.DeleteComment(c.Request.Context(), userID, id); err != nil {
		respondError(c, err, "comment")
		return
	}
	utils.MessageResponse(c, i18n.KeyCommentDeleted, nil)
}

// POST /comments/:id/like
func (h *CommunityHandler) ToggleCommentLike(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "comment")
	if !ok {
		return
	}

	liked, err := h.communityService.ToggleCommentLike(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err, "comment")
		return
	}
	likeResponse(c, liked)
}

// PUT /products/:id/rating
func (h *CommunityHandler) RateProduct(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "product")
	if !ok {
		return
	}
	var req services.RatingRequest
	if !bindJSON(c, &req) {
		return
	}

	rating, err := h.communityService.RateProduct(c.Request.Context(), userID, id, req.Score)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.MessageResponse(c, i18n.KeyRatingSaved, rating)
}

// DELETE /products/:id/rating
func (h *CommunityHandler) DeleteRating(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "rating")
	if !ok {
		return
	}

	if err := h.communityService.DeleteRating(c.Request.Context(), userID, id); err != nil {
		respondError(c, err, "rating")
		return
	}
	utils.MessageResponse(c, i18n.KeyRatingDeleted, nil)
}

// POST /products/:id/like
func (h *CommunityHandler) ToggleProductLike(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "product")
	if !ok {
		return
	}

	liked, err := h.communityService.ToggleProductLike(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	likeResponse(c, liked)
}

// GET /products/:id/stats
func (h *CommunityHandler) ProductStats(c *gin.Context) {
	id, ok := uuidParam(c, "id", "product")
	if !ok {
		return
	}

	stats, err := h.communityService.Stats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.SuccessResponse(c, stats)
}

// GET /users/me/likes
func (h *CommunityHandler) LikedProducts(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	products, err := h.communityService.LikedProducts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.SuccessResponse(c, products)
}

func likeResponse(c *gin.Context, liked bool) {
	key := i18n.KeyLikeRemoved
	if liked {
		key = i18n.KeyLikeAdded
	}
	utils.MessageResponse(c, key, LikeResponse{Liked: liked})
}
