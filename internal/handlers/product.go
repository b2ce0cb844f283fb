// internal/handlers/product.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yecy-cosmetic/store-backend/internal/services"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := services.ProductSearchParams{
		Query:            c.Query("q"),
		PaginationParams: utils.GetPaginationParams(c),
	}

	if id, err := uuid.Parse(c.Query("subcategoria_id")); err == nil {
		params.SubcategoryID = &id
	}
	if id, err := uuid.Parse(c.Query("categoria_id")); err == nil {
		params.CategoryID = &id
	}
	if featured, err := strconv.ParseBool(c.Query("destacado")); err == nil {
		params.Featured = &featured
	}
	if inStock, err := strconv.ParseBool(c.Query("en_stock")); err == nil {
		params.InStock = &inStock
	}
	if priceMin, err := decimal.NewFromString(c.Query("precio_min")); err == nil {
		params.PriceMin = &priceMin
	}
	if priceMax, err := decimal.NewFromString(c.Query("precio_max")); err == nil {
		params.PriceMax = &priceMax
	}

	products, total, err := h.productService.Search(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params.PaginationParams))
}

// GET /products/featured
func (h *ProductHandler) GetFeaturedProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "8"))
	if limit < 1 || limit > 50 {
		limit = 8
	}

	products, err := h.productService.Featured(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.SuccessResponse(c, products)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id", "product")
	if !ok {
		return
	}

	product, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "product")
		return
	}
	utils.SuccessResponse(c, product)
}

// GET /categories
func (h *ProductHandler) GetCategories(c *gin.Context) {
	categories, err := h.productService.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err, "category")
		return
	}
	utils.SuccessResponse(c, categories)
}
