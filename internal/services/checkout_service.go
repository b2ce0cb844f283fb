// internal/services/checkout_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yecy-cosmetic/store-backend/internal/config"
	"github.com/yecy-cosmetic/store-backend/internal/database"
	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/metrics"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type CheckoutState string

const (
	StateValidating CheckoutState = "validating"
	StateReserving  CheckoutState = "reserving"
	StateCommitting CheckoutState = "committing"
	StateNotifying  CheckoutState = "notifying"
	StateDone       CheckoutState = "done"
	StateAborted    CheckoutState = "aborted"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	StateValidating: {StateReserving, StateAborted},
	StateReserving:  {StateCommitting, StateAborted},
	StateCommitting: {StateNotifying},
	StateNotifying:  {StateDone},
}

// checkoutAttempt tracks one run through the checkout state machine.
type checkoutAttempt struct {
	state CheckoutState
	log   *logrus.Entry
}

func newCheckoutAttempt(log *logrus.Entry) *checkoutAttempt {
	return &checkoutAttempt{state: StateValidating, log: log}
}

func (a *checkoutAttempt) advance(next CheckoutState) {
	if !slices.Contains(checkoutTransitions[a.state], next) {
		a.log.WithFields(logrus.Fields{"from": a.state, "to": next}).Error("Illegal checkout transition")
		return
	}
	a.log.WithFields(logrus.Fields{"from": a.state, "to": next}).Debug("Checkout state change")
	a.state = next
}

// abort moves to Aborted if the attempt has not committed yet.
func (a *checkoutAttempt) abort(err error) {
	if a.state == StateValidating || a.state == StateReserving {
		a.advance(StateAborted)
		a.log.WithError(err).Info("Checkout aborted")
	}
}

type CheckoutService struct {
	db       *gorm.DB
	invoices *InvoiceService
	notifier *NotificationService
	cfg      config.CheckoutConfig
	lang     string
}

// AdminOrderRequest is an order taken by an admin on behalf of a client,
// who is created on the fly when the phone number is unknown.
type AdminOrderRequest struct {
	Numero        string      `json:"numero" validate:"required,phone"`
	Nombre        string      `json:"nombre" validate:"required,max=30"`
	Apellido      string      `json:"apellido" validate:"required,max=30"`
	Items         []CartEntry `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string      `json:"metodo_pago" validate:"omitempty,max=30"`
}

// placedOrder is what the transactional core hands to the post-commit steps.
type placedOrder struct {
	order    *models.Order
	lowStock []models.Product
	units    int
}

func NewCheckoutService(db *gorm.DB, invoices *InvoiceService, notifier *NotificationService, cfg config.CheckoutConfig, lang string) *CheckoutService {
	return &CheckoutService{
		db:       db,
		invoices: invoices,
		notifier: notifier,
		cfg:      cfg,
		lang:     lang,
	}
}

// Checkout turns the user's cart into a pending order. Either the order is
// created, stock decremented and the cart emptied together, or nothing
// changes and the error says why.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	attempt := newCheckoutAttempt(logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"flow":    "checkout",
	}))

	var buyer models.User
	if err := s.db.WithContext(ctx).First(&buyer, "id = ?", userID).Error; err != nil {
		attempt.abort(err)
		metrics.RecordCheckout(metrics.ResultError)
		return nil, notFoundOr(err, "failed to load user")
	}

	txCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	var placed *placedOrder
	err := database.WithTransaction(s.db.WithContext(txCtx), func(tx *gorm.DB) error {
		// the cart row lock serialises checkouts of the same user; a second
		// attempt waits here and then finds the cart already emptied
		var cart models.Cart
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if err := tx.Where("cart_id = ?", cart.ID).Order("id").Find(&cart.Items).Error; err != nil {
			return fmt.Errorf("failed to load cart items: %w", err)
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		entries := make([]CartEntry, 0, len(cart.Items))
		for _, item := range cart.Items {
			entries = append(entries, CartEntry{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		var err error
		placed, err = s.placeOrder(tx, attempt, userID, nil, entries, s.cfg.DefaultPaymentMethod)
		if err != nil {
			return err
		}

		itemIDs := make([]uuid.UUID, 0, len(cart.Items))
		for _, item := range cart.Items {
			itemIDs = append(itemIDs, item.ID)
		}
		res := tx.Where("cart_id = ? AND id IN ?", cart.ID, itemIDs).Delete(&models.CartItem{})
		if res.Error != nil {
			return fmt.Errorf("failed to empty cart: %w", res.Error)
		}
		if res.RowsAffected != int64(len(itemIDs)) {
			return ErrCartChanged
		}
		return nil
	})
	if err != nil {
		attempt.abort(err)
		recordCheckoutFailure(err)
		return nil, err
	}

	attempt.advance(StateNotifying)
	metrics.RecordCheckout(metrics.ResultSuccess)
	metrics.RecordUnitsSold(placed.units)

	// post-commit work must not be cut short by the caller going away
	bg := context.WithoutCancel(ctx)
	s.attachInvoice(bg, attempt, placed.order)

	s.notifyBuyer(bg, &buyer, i18n.T(s.lang, i18n.KeyMsgPurchaseSuccess, utils.ShortID(placed.order.ID)), models.NotificationPurchaseSuccess)
	s.notifyAdmins(bg, i18n.T(s.lang, i18n.KeyMsgNewOrder, utils.ShortID(placed.order.ID), buyer.Nombre), models.NotificationNewOrder)
	s.notifyLowStock(bg, placed.lowStock)

	attempt.advance(StateDone)
	attempt.log.WithFields(logrus.Fields{
		"order_id": placed.order.ID,
		"total":    placed.order.Total.StringFixed(2),
	}).Info("Checkout completed")

	return s.reload(bg, placed.order.ID)
}

// PlaceAdminOrder registers an order for a client on an admin's behalf,
// through the same reservation core as Checkout. The client's cart is left
// untouched.
func (s *CheckoutService) PlaceAdminOrder(ctx context.Context, adminID uuid.UUID, req AdminOrderRequest) (*models.Order, error) {
	attempt := newCheckoutAttempt(logrus.WithFields(logrus.Fields{
		"admin_id": adminID,
		"numero":   req.Numero,
		"flow":     "admin_order",
	}))

	var admin models.User
	if err := s.db.WithContext(ctx).First(&admin, "id = ?", adminID).Error; err != nil {
		attempt.abort(err)
		return nil, notFoundOr(err, "failed to load admin")
	}
	if !admin.IsAdmin {
		attempt.abort(ErrUnauthorized)
		return nil, ErrUnauthorized
	}
	if len(req.Items) == 0 {
		attempt.abort(ErrEmptyCart)
		metrics.RecordCheckout(metrics.ResultEmptyCart)
		return nil, ErrEmptyCart
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = s.cfg.DefaultPaymentMethod
	}

	txCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		client    models.User
		newClient bool
		placed    *placedOrder
	)
	err := database.WithTransaction(s.db.WithContext(txCtx), func(tx *gorm.DB) error {
		err := tx.Where("numero = ?", req.Numero).First(&client).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			client = models.User{
				Numero:   req.Numero,
				Nombre:   req.Nombre,
				Apellido: req.Apellido,
				IsActive: true,
			}
			// new clients sign in with their phone number until they change it
			if err := client.SetPassword(req.Numero); err != nil {
				return fmt.Errorf("failed to set client password: %w", err)
			}
			if err := tx.Create(&client).Error; err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			newClient = true
		case err != nil:
			return fmt.Errorf("failed to load client: %w", err)
		}

		placed, err = s.placeOrder(tx, attempt, client.ID, &adminID, req.Items, paymentMethod)
		return err
	})
	if err != nil {
		attempt.abort(err)
		recordCheckoutFailure(err)
		return nil, err
	}

	attempt.advance(StateNotifying)
	metrics.RecordCheckout(metrics.ResultSuccess)
	metrics.RecordUnitsSold(placed.units)
	if newClient {
		attempt.log.WithField("client_id", client.ID).Info("Client created from admin order")
	}

	bg := context.WithoutCancel(ctx)
	s.attachInvoice(bg, attempt, placed.order)

	clientKey := i18n.KeyMsgAdminOrderClient
	if newClient {
		clientKey = i18n.KeyMsgAdminOrderNewClient
	}
	s.notifyBuyer(bg, &client, i18n.T(s.lang, clientKey), models.NotificationNewOrder)
	s.notifyBuyer(bg, &admin, i18n.T(s.lang, i18n.KeyMsgAdminOrderAdmin, client.Nombre, client.Numero), models.NotificationNewOrder)
	s.notifyLowStock(bg, placed.lowStock)

	attempt.advance(StateDone)
	attempt.log.WithField("order_id", placed.order.ID).Info("Admin order registered")

	return s.reload(bg, placed.order.ID)
}

// placeOrder is the reservation core shared by both flows. It locks the
// referenced products in id order, validates every line, then writes the
// order, its lines and the guarded stock decrements. Must run inside tx.
func (s *CheckoutService) placeOrder(tx *gorm.DB, attempt *checkoutAttempt, ownerID uuid.UUID, createdBy *uuid.UUID, entries []CartEntry, paymentMethod string) (*placedOrder, error) {
	requested, ids := aggregateEntries(entries)
	for _, id := range ids {
		if requested[id] < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	var products []models.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	var shortages []StockShortage
	for _, id := range ids {
		product, ok := byID[id]
		if !ok {
			shortages = append(shortages, StockShortage{ProductID: id, Requested: requested[id]})
			continue
		}
		if !product.Available(requested[id]) {
			available := product.Stock
			if !product.Activo {
				available = 0
			}
			shortages = append(shortages, StockShortage{
				ProductID: id,
				Name:      product.Nombre,
				Available: available,
				Requested: requested[id],
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Items: shortages}
	}

	attempt.advance(StateReserving)

	total := decimal.Zero
	lines := make([]models.OrderLine, 0, len(ids))
	units := 0
	for _, id := range ids {
		product := byID[id]
		line := models.OrderLine{
			ProductID: id,
			Quantity:  requested[id],
			UnitPrice: product.Precio,
		}
		total = total.Add(line.Subtotal())
		units += line.Quantity
		lines = append(lines, line)
	}

	order := &models.Order{
		UserID:        ownerID,
		Status:        models.OrderStatusPending,
		Total:         total,
		CreatedByID:   createdBy,
		PaymentMethod: paymentMethod,
		Active:        true,
	}
	if err := tx.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if err := tx.Create(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to create order lines: %w", err)
	}

	// the guard makes the decrement safe even where row locks are not honoured
	var lowStock []models.Product
	for _, id := range ids {
		product := byID[id]
		quantity := requested[id]

		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", id, quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
		if res.Error != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var current models.Product
			if err := tx.Select("stock").First(&current, "id = ?", id).Error; err != nil {
				return nil, fmt.Errorf("failed to reload stock: %w", err)
			}
			return nil, &InsufficientStockError{Items: []StockShortage{{
				ProductID: id,
				Name:      product.Nombre,
				Available: current.Stock,
				Requested: quantity,
			}}}
		}

		if err := tx.Model(&models.Product{}).
			Where("id = ? AND stock = ?", id, 0).
			UpdateColumn("activo", false).Error; err != nil {
			return nil, fmt.Errorf("failed to deactivate product: %w", err)
		}

		product.Stock -= quantity
		if product.Stock == 0 {
			product.Activo = false
		}
		if product.Stock <= s.cfg.LowStockThreshold {
			lowStock = append(lowStock, *product)
		}
	}

	attempt.advance(StateCommitting)
	order.Lines = lines
	return &placedOrder{order: order, lowStock: lowStock, units: units}, nil
}

// aggregateEntries sums quantities per product and returns the ids in the
// order rows must be locked in.
func aggregateEntries(entries []CartEntry) (map[uuid.UUID]int, []uuid.UUID) {
	requested := make(map[uuid.UUID]int, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if _, seen := requested[entry.ProductID]; !seen {
			ids = append(ids, entry.ProductID)
		}
		requested[entry.ProductID] += entry.Quantity
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return requested, ids
}

func (s *CheckoutService) attachInvoice(ctx context.Context, attempt *checkoutAttempt, order *models.Order) {
	if s.invoices == nil {
		return
	}
	key, _, err := s.invoices.Generate(ctx, order.ID)
	if err != nil {
		// the sale stands; the invoice is rendered on demand later
		attempt.log.WithField("order_id", order.ID).WithError(err).Error("Invoice deferred")
		return
	}
	order.InvoiceKey = key
}

func (s *CheckoutService) notifyBuyer(ctx context.Context, user *models.User, message string, notificationType models.NotificationType) {
	logDeliveries(s.notifier.Notify(ctx, user, message, notificationType), notificationType)
}

func (s *CheckoutService) notifyAdmins(ctx context.Context, message string, notificationType models.NotificationType) {
	logDeliveries(s.notifier.Notify(ctx, nil, message, notificationType), notificationType)
}

func (s *CheckoutService) notifyLowStock(ctx context.Context, products []models.Product) {
	for _, product := range products {
		s.notifyAdmins(ctx, i18n.T(s.lang, i18n.KeyMsgLowStock, product.Nombre, product.Stock), models.NotificationLowStock)
	}
}

func logDeliveries(results []DeliveryResult, notificationType models.NotificationType) {
	for _, result := range results {
		if err := result.Err(); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": result.UserID,
				"type":    notificationType,
			}).WithError(err).Warn("Notification not fully delivered")
		}
	}
}

func (s *CheckoutService) reload(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("Lines.Product").
		First(&order, "id = ?", orderID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	return &order, nil
}

func (s *CheckoutService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(s.cfg.Timeout)*time.Second)
}

func recordCheckoutFailure(err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		metrics.RecordCheckout(metrics.ResultEmptyCart)
	case errors.Is(err, ErrInsufficientStock):
		metrics.RecordCheckout(metrics.ResultInsufficient)
	default:
		metrics.RecordCheckout(metrics.ResultError)
	}
}
