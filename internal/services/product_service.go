// internal/services/product_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

// ProductService is the read side of the catalog. Stock is written only by
// checkout.
type ProductService struct {
	db *gorm.DB
}

type ProductSearchParams struct {
	SubcategoryID *uuid.UUID
	CategoryID    *uuid.UUID
	Query         string
	Featured      *bool
	InStock       *bool
	PriceMin      *decimal.Decimal
	PriceMax      *decimal.Decimal
	utils.PaginationParams
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

// Search lists active products.
func (s *ProductService) Search(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{}).Where("activo = ?", true)

	if params.SubcategoryID != nil {
		query = query.Where("subcategory_id = ?", *params.SubcategoryID)
	}
	if params.CategoryID != nil {
		query = query.Where("subcategory_id IN (?)",
			s.db.Model(&models.Subcategory{}).Select("id").Where("category_id = ?", *params.CategoryID))
	}
	if params.Query != "" {
		term := "%" + strings.ToLower(params.Query) + "%"
		query = query.Where("LOWER(nombre) LIKE ? OR LOWER(descripcion) LIKE ?", term, term)
	}
	if params.Featured != nil {
		query = query.Where("destacado = ?", *params.Featured)
	}
	if params.InStock != nil && *params.InStock {
		query = query.Where("stock > 0")
	}
	if params.PriceMin != nil {
		query = query.Where("precio >= ?", *params.PriceMin)
	}
	if params.PriceMax != nil {
		query = query.Where("precio <= ?", *params.PriceMax)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	if err := query.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("orden") }).
		Scopes(utils.Paginate(params.PaginationParams)).
		Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}
	return products, total, nil
}

// Get returns an active product with its subcategory and images.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).
		Preload("Subcategory.Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("orden") }).
		Where("id = ? AND activo = ?", id, true).
		First(&product).Error; err != nil {
		return nil, notFoundOr(err, "failed to load product")
	}
	return &product, nil
}

func (s *ProductService) Featured(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("activo = ? AND destacado = ? AND stock > 0", true, true).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("orden") }).
		Order("created_at DESC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get featured products: %w", err)
	}
	return products, nil
}

// Categories returns active categories with their active subcategories.
func (s *ProductService) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Preload("Subcategories", "activa = ?", true).
		Where("activa = ?", true).
		Order("nombre").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}
