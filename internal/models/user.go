// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Numero       string     `json:"numero" gorm:"uniqueIndex;size:10;not null"`
	Nombre       string     `json:"nombre" gorm:"size:30;not null"`
	Apellido     string     `json:"apellido" gorm:"size:30;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	IsAdmin      bool       `json:"is_admin" gorm:"default:false;index"`
	IsActive     bool       `json:"is_active" gorm:"default:true;index"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	LastLoginIP  string     `json:"-" gorm:"size:45"`

	FailedAttempts int        `json:"-" gorm:"default:0"`
	LockedUntil    *time.Time `json:"-"`

	// Relationships
	Orders []Order `json:"orders,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) Role() Role {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleClient
}

func (u *User) FullName() string {
	return u.Nombre + " " + u.Apellido
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// PasswordReset holds the single pending recovery code of a user. The code
// itself is only ever stored hashed.
type PasswordReset struct {
	BaseModel
	UserID    uuid.UUID `json:"-" gorm:"type:uuid;not null;uniqueIndex"`
	CodeHash  string    `json:"-" gorm:"size:255;not null"`
	ExpiresAt time.Time `json:"-" gorm:"not null"`
	Attempts  int       `json:"-" gorm:"default:0"`
}
