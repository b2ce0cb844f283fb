// internal/models/order.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	BaseModel
	UserID          uuid.UUID       `json:"usuario_id" gorm:"type:uuid;not null;index"`
	Status          OrderStatus     `json:"estado" gorm:"type:varchar(10);default:'pendiente';index"`
	Total           decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null"`
	InvoiceKey      string          `json:"factura,omitempty" gorm:"size:255"`
	CreatedByID     *uuid.UUID      `json:"creado_por,omitempty" gorm:"type:uuid;index"`
	StatusChangedBy *uuid.UUID      `json:"estado_cambiado_por,omitempty" gorm:"type:uuid"`
	PaymentMethod   string          `json:"metodo_pago" gorm:"size:30;default:'contraentrega'"`
	Active          bool            `json:"activo" gorm:"default:true;index"`

	// Relationships
	User      *User       `json:"usuario,omitempty" gorm:"foreignKey:UserID"`
	CreatedBy *User       `json:"-" gorm:"foreignKey:CreatedByID"`
	Lines     []OrderLine `json:"detalles,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderLine keeps the unit price paid; it never follows later price changes.
type OrderLine struct {
	BaseModel
	OrderID   uuid.UUID       `json:"pedido_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `json:"producto_id" gorm:"type:uuid;not null;index"`
	Quantity  int             `json:"cantidad" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"precio_unitario" gorm:"type:decimal(10,2);not null"`

	Product *Product `json:"producto,omitempty" gorm:"foreignKey:ProductID"`
}

func (l *OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}
