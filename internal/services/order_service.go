// internal/services/order_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type OrderService struct {
	db       *gorm.DB
	invoices *InvoiceService
	notifier *NotificationService
	lang     string
}

type OrderFilter struct {
	Status models.OrderStatus
	From   *time.Time
	To     *time.Time
	utils.PaginationParams
}

func NewOrderService(db *gorm.DB, invoices *InvoiceService, notifier *NotificationService, lang string) *OrderService {
	return &OrderService{
		db:       db,
		invoices: invoices,
		notifier: notifier,
		lang:     lang,
	}
}

// ListForUser returns the user's active orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID, filter OrderFilter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ? AND active = ?", userID, true)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	if err := query.Preload("Lines.Product").
		Scopes(utils.Paginate(filter.PaginationParams)).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// Get returns an order visible to actorID: its owner or any admin.
func (s *OrderService) Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.Order, error) {
	actor, err := s.loadUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(actorID) && !actor.IsAdmin {
		return nil, ErrUnauthorized
	}
	return order, nil
}

// UpdateStatus applies an admin status change and notifies both the owner
// and the acting admin.
func (s *OrderService) UpdateStatus(ctx context.Context, adminID, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	admin, err := s.loadUser(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin {
		return nil, ErrUnauthorized
	}
	if !status.Valid() {
		return nil, ErrInvalidTransition
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, status)
	}

	// conditional on the old status so two admins cannot both move the order
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(map[string]interface{}{
			"status":            status,
			"status_changed_by": adminID,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidTransition
	}
	order.Status = status
	order.StatusChangedBy = &adminID

	ref := utils.ShortID(order.ID)
	s.notifyOwner(ctx, order, i18n.T(s.lang, i18n.KeyMsgStatusClient, ref, status), models.NotificationOrderStatus)
	logDeliveries(s.notifier.Notify(ctx, admin,
		i18n.T(s.lang, i18n.KeyMsgStatusAdmin, ref, ownerName(order), status), models.NotificationOrderStatus), models.NotificationOrderStatus)

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"admin_id": adminID,
		"status":   status,
	}).Info("Order status updated")
	return order, nil
}

// Cancel withdraws an order for its owner or an admin. Notifications are
// sent before the order is retired. Stock is not restored.
func (s *OrderService) Cancel(ctx context.Context, actorID, orderID uuid.UUID) error {
	actor, err := s.loadUser(ctx, actorID)
	if err != nil {
		return err
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.OwnedBy(actorID) && !actor.IsAdmin {
		logrus.WithFields(logrus.Fields{
			"order_id": orderID,
			"actor_id": actorID,
		}).Warn("Attempt to cancel another user's order")
		return ErrUnauthorized
	}

	ref := utils.ShortID(order.ID)
	s.notifyOwner(ctx, order, i18n.T(s.lang, i18n.KeyMsgCancelledClient, ref), models.NotificationOrderCancelled)
	if actor.IsAdmin {
		logDeliveries(s.notifier.Notify(ctx, actor,
			i18n.T(s.lang, i18n.KeyMsgCancelledAdmin, ref, ownerName(order)), models.NotificationOrderCancelled), models.NotificationOrderCancelled)
	}

	// a completed order keeps its status and is only retired
	updates := map[string]interface{}{"active": false}
	if order.Status != models.OrderStatusCompleted {
		updates["status"] = models.OrderStatusCancelled
		if actor.IsAdmin {
			updates["status_changed_by"] = actorID
		}
	}
	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"actor_id": actorID,
	}).Info("Order cancelled")
	return nil
}

// Invoice returns the invoice document of an order visible to actorID,
// rendering it first when it was never generated.
func (s *OrderService) Invoice(ctx context.Context, actorID, orderID uuid.UUID) ([]byte, string, error) {
	order, err := s.Get(ctx, actorID, orderID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.invoices.Load(ctx, order)
	if err != nil {
		return nil, "", err
	}
	return data, s.invoices.ContentType(), nil
}

// notifyOwner skips orders whose owner row is gone; a nil target would
// broadcast to admins instead.
func (s *OrderService) notifyOwner(ctx context.Context, order *models.Order, message string, notificationType models.NotificationType) {
	if order.User == nil {
		return
	}
	logDeliveries(s.notifier.Notify(ctx, order.User, message, notificationType), notificationType)
}

func ownerName(order *models.Order) string {
	if order.User == nil {
		return order.UserID.String()
	}
	return order.User.Nombre
}

func (s *OrderService) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Lines.Product").
		Where("id = ? AND active = ?", orderID, true).
		First(&order).Error; err != nil {
		return nil, notFoundOr(err, "failed to load order")
	}
	return &order, nil
}

func (s *OrderService) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "failed to load user")
	}
	return &user, nil
}
