// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification rows are never removed; Deleted hides them from the owner.
type Notification struct {
	BaseModel
	UserID  uuid.UUID        `json:"usuario_id" gorm:"type:uuid;not null;index"`
	Type    NotificationType `json:"tipo" gorm:"type:varchar(30);not null;index"`
	Message string           `json:"mensaje" gorm:"type:text;not null"`
	Read    bool             `json:"leida" gorm:"default:false;index"`
	Deleted bool             `json:"-" gorm:"default:false;index"`
	ReadAt  *time.Time       `json:"leida_en,omitempty"`

	User *User `json:"-" gorm:"foreignKey:UserID"`
}
