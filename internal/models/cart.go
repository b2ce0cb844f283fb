// internal/models/cart.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is created lazily, one per user.
type Cart struct {
	BaseModel
	UserID uuid.UUID  `json:"usuario_id" gorm:"type:uuid;not null;uniqueIndex"`
	Items  []CartItem `json:"items" gorm:"foreignKey:CartID"`
}

type CartItem struct {
	BaseModel
	CartID    uuid.UUID `json:"carrito_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product"`
	ProductID uuid.UUID `json:"producto_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product"`
	Quantity  int       `json:"cantidad" gorm:"not null;check:quantity >= 1"`

	Product *Product `json:"producto,omitempty" gorm:"foreignKey:ProductID"`
}

// Subtotal uses the current product price; nil when the product is not loaded.
func (i *CartItem) Subtotal() decimal.Decimal {
	if i.Product == nil {
		return decimal.Zero
	}
	return i.Product.Precio.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
