// internal/services/notification_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/metrics"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/realtime"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type NotificationService struct {
	db     *gorm.DB
	pusher realtime.Pusher
}

// DeliveryResult reports the durable write and the live push of one
// notification separately. A failed push keeps the stored row; a failed
// write skips the push so clients never see a message they cannot list.
type DeliveryResult struct {
	UserID         uuid.UUID `json:"usuario_id"`
	NotificationID uuid.UUID `json:"notificacion_id"`
	StoreErr       error     `json:"-"`
	PushErr        error     `json:"-"`
}

func (r DeliveryResult) Stored() bool { return r.StoreErr == nil }
func (r DeliveryResult) Pushed() bool { return r.PushErr == nil }

// Err is nil only when both channels succeeded.
func (r DeliveryResult) Err() error {
	if r.StoreErr == nil && r.PushErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrNotificationFailure, errors.Join(r.StoreErr, r.PushErr))
}

type NotificationFilter struct {
	Read *bool
	Type models.NotificationType
	utils.PaginationParams
}

func NewNotificationService(db *gorm.DB, pusher realtime.Pusher) *NotificationService {
	if pusher == nil {
		pusher = realtime.NopPusher{}
	}
	return &NotificationService{
		db:     db,
		pusher: pusher,
	}
}

// Notify stores one notification for target, or one per active admin when
// target is nil, and pushes each to the recipient's live topic.
func (s *NotificationService) Notify(ctx context.Context, target *models.User, message string, notificationType models.NotificationType) []DeliveryResult {
	recipients := []models.User{}
	if target != nil {
		recipients = append(recipients, *target)
	} else {
		if err := s.db.WithContext(ctx).
			Where("is_admin = ? AND is_active = ?", true, true).
			Order("id").
			Find(&recipients).Error; err != nil {
			logrus.WithError(err).Error("Failed to load admins for broadcast")
			return []DeliveryResult{{StoreErr: fmt.Errorf("failed to load admins: %w", err)}}
		}
	}

	results := make([]DeliveryResult, 0, len(recipients))
	for i := range recipients {
		results = append(results, s.deliver(ctx, &recipients[i], message, notificationType))
	}
	return results
}

func (s *NotificationService) deliver(ctx context.Context, user *models.User, message string, notificationType models.NotificationType) DeliveryResult {
	result := DeliveryResult{UserID: user.ID}

	notification := &models.Notification{
		UserID:  user.ID,
		Type:    notificationType,
		Message: message,
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		result.StoreErr = fmt.Errorf("failed to store notification: %w", err)
	} else {
		result.NotificationID = notification.ID
	}
	metrics.RecordNotification("store", result.StoreErr)

	if result.StoreErr != nil {
		result.PushErr = ErrPushSkipped
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"type":    notificationType,
		}).WithError(result.StoreErr).Error("Notification not stored, push skipped")
		return result
	}

	timestamp := notification.CreatedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	topic := realtime.Topic{Role: string(user.Role()), UserID: user.ID}
	result.PushErr = s.pusher.Push(ctx, topic, realtime.Message{
		Type:      string(notificationType),
		Message:   message,
		Timestamp: timestamp,
	})
	metrics.RecordNotification("push", result.PushErr)

	if err := result.Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"type":    notificationType,
			"stored":  result.Stored(),
			"pushed":  result.Pushed(),
		}).WithError(err).Warn("Notification partially delivered")
	}
	return result
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, filter NotificationFilter) ([]models.Notification, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND deleted = ?", userID, false)
	if filter.Read != nil {
		query = query.Where("read = ?", *filter.Read)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var notifications []models.Notification
	if err := query.Scopes(utils.Paginate(filter.PaginationParams)).Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND deleted = ? AND read = ?", userID, false, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	notification, err := s.owned(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if notification.Read {
		return notification, nil
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(notification).
		Updates(map[string]interface{}{"read": true, "read_at": now}).Error; err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	notification.Read = true
	notification.ReadAt = &now
	return notification, nil
}

// MarkAllRead returns the number of notifications that changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND deleted = ? AND read = ?", userID, false, false).
		Updates(map[string]interface{}{"read": true, "read_at": time.Now()})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete hides the notification from its owner; the row is kept.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	notification, err := s.owned(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(notification).Update("deleted", true).Error; err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND deleted = ?", notificationID, userID, false).
		First(&notification).Error
	if err != nil {
		return nil, notFoundOr(err, "failed to load notification")
	}
	return &notification, nil
}
