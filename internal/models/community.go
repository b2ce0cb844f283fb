// internal/models/community.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Comment is a forum post on a product. Replies point at a top-level
// comment through ParentID; removing a comment only clears Active.
type Comment struct {
	BaseModel
	UserID    uuid.UUID  `json:"usuario_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID  `json:"producto_id" gorm:"type:uuid;not null;index"`
	ParentID  *uuid.UUID `json:"comentario_padre_id,omitempty" gorm:"type:uuid;index"`
	Text      string     `json:"texto" gorm:"type:text;not null"`
	Active    bool       `json:"activo" gorm:"default:true;index"`

	Author  string    `json:"autor" gorm:"-"`
	Likes   int64     `json:"likes" gorm:"-"`
	Replies []Comment `json:"respuestas,omitempty" gorm:"foreignKey:ParentID"`
}

type CommentLike struct {
	BaseModel
	UserID    uuid.UUID `json:"usuario_id" gorm:"type:uuid;not null;uniqueIndex:idx_comment_likes_user_comment"`
	CommentID uuid.UUID `json:"comentario_id" gorm:"type:uuid;not null;uniqueIndex:idx_comment_likes_user_comment;index"`
}

// Rating is one user's 1 to 5 score for a product; rating again replaces it.
type Rating struct {
	BaseModel
	UserID    uuid.UUID `json:"usuario_id" gorm:"type:uuid;not null;uniqueIndex:idx_ratings_user_product"`
	ProductID uuid.UUID `json:"producto_id" gorm:"type:uuid;not null;uniqueIndex:idx_ratings_user_product;index"`
	Score     int       `json:"valor" gorm:"not null;check:score >= 1 AND score <= 5"`
}

type ProductLike struct {
	BaseModel
	UserID    uuid.UUID `json:"usuario_id" gorm:"type:uuid;not null;uniqueIndex:idx_product_likes_user_product"`
	ProductID uuid.UUID `json:"producto_id" gorm:"type:uuid;not null;uniqueIndex:idx_product_likes_user_product;index"`
}

// ProductStats summarises the community signals of one product.
type ProductStats struct {
	ProductID uuid.UUID       `json:"producto_id"`
	Average   decimal.Decimal `json:"promedio"`
	Ratings   int64           `json:"calificaciones"`
	Likes     int64           `json:"likes"`
	Comments  int64           `json:"comentarios"`
}
