// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrCartChanged         = errors.New("cart changed during checkout")
	ErrUnauthorized        = errors.New("not allowed to act on this resource")
	ErrRenderFailure       = errors.New("invoice rendering failed")
	ErrNotificationFailure = errors.New("notification delivery failed")
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountLocked       = errors.New("account temporarily locked")
	ErrAccountInactive     = errors.New("account is disabled")
	ErrNumeroTaken         = errors.New("phone number already registered")
	ErrWrongPassword       = errors.New("current password does not match")
	ErrPushSkipped         = errors.New("notification was not stored, push skipped")
	ErrInvalidRecoveryCode = errors.New("recovery code is invalid or expired")
)

// StockShortage describes one product that cannot cover the requested quantity.
type StockShortage struct {
	ProductID uuid.UUID `json:"producto_id"`
	Name      string    `json:"nombre"`
	Available int       `json:"disponible"`
	Requested int       `json:"solicitado"`
}

// InsufficientStockError lists every shortage found in one pass.
type InsufficientStockError struct {
	Items []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, fmt.Sprintf("%s (available %d, requested %d)", item.Name, item.Available, item.Requested))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// MergeError is one rejected or adjusted entry of a cart migration.
type MergeError struct {
	ProductID uuid.UUID `json:"producto_id"`
	Message   string    `json:"mensaje"`
	Err       error     `json:"-"`
}

func notFoundOr(err error, format string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", err)
}
