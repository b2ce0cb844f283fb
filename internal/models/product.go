// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	BaseModel
	Nombre      string `json:"nombre" gorm:"uniqueIndex;size:50;not null"`
	Descripcion string `json:"descripcion" gorm:"type:text"`
	Activa      bool   `json:"activa" gorm:"default:true"`

	Subcategories []Subcategory `json:"subcategorias,omitempty" gorm:"foreignKey:CategoryID"`
}

type Subcategory struct {
	BaseModel
	CategoryID  uuid.UUID `json:"categoria_id" gorm:"type:uuid;not null;index"`
	Nombre      string    `json:"nombre" gorm:"size:50;not null"`
	Descripcion string    `json:"descripcion" gorm:"type:text"`
	Activa      bool      `json:"activa" gorm:"default:true"`

	Category *Category `json:"categoria,omitempty" gorm:"foreignKey:CategoryID"`
}

// Product stock is only ever lowered by checkout; a product whose stock
// reaches zero is deactivated in the same statement batch.
type Product struct {
	BaseModel
	SubcategoryID *uuid.UUID      `json:"subcategoria_id" gorm:"type:uuid;index"`
	Nombre        string          `json:"nombre" gorm:"size:100;not null"`
	Descripcion   string          `json:"descripcion" gorm:"type:text"`
	Precio        decimal.Decimal `json:"precio" gorm:"type:decimal(10,2);not null"`
	Stock         int             `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	Destacado     bool            `json:"destacado" gorm:"default:false"`
	Activo        bool            `json:"activo" gorm:"default:true;index"`

	// Relationships
	Subcategory *Subcategory   `json:"subcategoria,omitempty" gorm:"foreignKey:SubcategoryID"`
	Images      []ProductImage `json:"imagenes,omitempty" gorm:"foreignKey:ProductID"`
}

type ProductImage struct {
	BaseModel
	ProductID uuid.UUID `json:"producto_id" gorm:"type:uuid;not null;index"`
	URL       string    `json:"url" gorm:"size:500;not null"`
	Orden     int       `json:"orden" gorm:"default:0"`
}

// Available reports whether quantity units can be sold right now.
func (p *Product) Available(quantity int) bool {
	return p.Activo && p.Stock >= quantity
}
