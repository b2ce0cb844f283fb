// internal/services/cart_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yecy-cosmetic/store-backend/internal/database"
	"github.com/yecy-cosmetic/store-backend/internal/models"
)

type CartService struct {
	db *gorm.DB
}

type CartEntry struct {
	ProductID uuid.UUID `json:"producto_id" validate:"required"`
	Quantity  int       `json:"cantidad" validate:"required,min=1"`
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// GetOrCreate returns the user's cart, creating an empty one on first use.
func (s *CartService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return getOrCreateCart(s.db.WithContext(ctx), userID)
}

func getOrCreateCart(tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	// the insert is a no-op when a cart already exists, so always read back
	var existing models.Cart
	if err := tx.Where("user_id = ?", userID).First(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &existing, nil
}

// GetCart returns the cart with items and their products loaded.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Items.Product").
		First(cart, "id = ?", cart.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	return cart, nil
}

// AddItem adds quantity of a product to the cart, or sets it when override
// is true. A quantity above current stock is stored clamped to the stock and
// reported through an *InsufficientStockError next to the stored item.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, override bool) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var (
		stored   *models.CartItem
		clampErr *InsufficientStockError
	)
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("id = ? AND activo = ?", productID, true).First(&product).Error; err != nil {
			return notFoundOr(err, "failed to load product")
		}

		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var item models.CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load cart item: %w", err)
		}

		desired := quantity
		if exists && !override {
			desired = item.Quantity + quantity
		}

		if desired > product.Stock {
			clampErr = &InsufficientStockError{Items: []StockShortage{{
				ProductID: product.ID,
				Name:      product.Nombre,
				Available: product.Stock,
				Requested: desired,
			}}}
			logrus.WithFields(logrus.Fields{
				"user_id":    userID,
				"product_id": productID,
				"requested":  desired,
				"available":  product.Stock,
			}).Warn("Cart quantity clamped to available stock")
			desired = product.Stock
		}

		if desired < 1 {
			if exists {
				if err := tx.Delete(&item).Error; err != nil {
					return fmt.Errorf("failed to remove cart item: %w", err)
				}
			}
			return nil
		}

		if exists {
			if err := tx.Model(&item).Update("quantity", desired).Error; err != nil {
				return fmt.Errorf("failed to update cart item: %w", err)
			}
			item.Quantity = desired
		} else {
			item = models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: desired}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to add cart item: %w", err)
			}
		}
		item.Product = &product
		stored = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	if clampErr != nil {
		return stored, clampErr
	}
	return stored, nil
}

// RemoveItem is a no-op when the product is not in the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND cart_id IN (?)", productID,
			s.db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// Merge folds a pre-login cart into the persistent one. Each entry is added
// on its own; rejected or clamped entries are reported, not fatal.
func (s *CartService) Merge(ctx context.Context, userID uuid.UUID, entries []CartEntry) (*models.Cart, []MergeError, error) {
	var mergeErrors []MergeError
	for _, entry := range entries {
		_, err := s.AddItem(ctx, userID, entry.ProductID, entry.Quantity, false)
		if err == nil {
			continue
		}

		var stockErr *InsufficientStockError
		switch {
		case errors.As(err, &stockErr), errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidQuantity):
			mergeErrors = append(mergeErrors, MergeError{
				ProductID: entry.ProductID,
				Message:   err.Error(),
				Err:       err,
			})
		default:
			return nil, nil, err
		}
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"entries": len(entries),
		"errors":  len(mergeErrors),
	}).Info("Cart merged")
	return cart, mergeErrors, nil
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return clearCart(s.db.WithContext(ctx), userID)
}

func clearCart(tx *gorm.DB, userID uuid.UUID) error {
	err := tx.Where("cart_id IN (?)",
		tx.Session(&gorm.Session{NewDB: true}).Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Total prices the cart at current product prices. Items must have their
// product loaded, as returned by GetCart.
func (s *CartService) Total(cart *models.Cart) decimal.Decimal {
	total := decimal.Zero
	for i := range cart.Items {
		total = total.Add(cart.Items[i].Subtotal())
	}
	return total
}
