// internal/services/admin_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

// AdminService backs the admin read views: every order, every client and
// the audit trail.
type AdminService struct {
	db *gorm.DB
}

type AdminOrderFilter struct {
	Status        models.OrderStatus
	UserID        *uuid.UUID
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	IncludeClosed bool // also list cancelled (inactive) orders
	utils.PaginationParams
}

type AdminUserFilter struct {
	Search   string
	IsActive *bool
	utils.PaginationParams
}

type AuditLogFilter struct {
	UserID       *uuid.UUID
	ResourceType string
	utils.PaginationParams
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

func (s *AdminService) GetOrders(ctx context.Context, filter AdminOrderFilter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})

	if !filter.IncludeClosed {
		query = query.Where("active = ?", true)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	if err := query.Preload("User").Preload("Lines.Product").
		Scopes(utils.Paginate(filter.PaginationParams)).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, total, nil
}

func (s *AdminService) GetUsers(ctx context.Context, filter AdminUserFilter) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).Where("is_admin = ?", false)

	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		query = query.Where("numero LIKE ? OR nombre LIKE ? OR apellido LIKE ?", term, term, term)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := query.Scopes(utils.Paginate(filter.PaginationParams)).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, total, nil
}

// UpdateUserStatus enables or disables a client account. Disabled accounts
// cannot log in; their orders are kept.
func (s *AdminService) UpdateUserStatus(ctx context.Context, adminID, userID uuid.UUID, active bool) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "failed to load user")
	}
	if user.IsAdmin {
		return nil, ErrUnauthorized
	}

	updates := map[string]interface{}{"is_active": active}
	if active {
		updates["failed_attempts"] = 0
		updates["locked_until"] = nil
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	user.IsActive = active

	logrus.WithFields(logrus.Fields{
		"admin_id": adminID,
		"user_id":  userID,
		"active":   active,
	}).Info("User status updated")
	return &user, nil
}

func (s *AdminService) GetAuditLogs(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var logs []models.AuditLog
	if err := query.Preload("User").
		Scopes(utils.Paginate(filter.PaginationParams)).
		Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return logs, total, nil
}
