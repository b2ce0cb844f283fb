// internal/services/invoice_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/metrics"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

// InvoiceRenderer turns a committed order into a document.
type InvoiceRenderer interface {
	Render(ctx context.Context, order *models.Order) ([]byte, error)
	ContentType() string
	Extension() string
}

type HTMLInvoiceRenderer struct {
	tmpl      *template.Template
	storeName string
}

func NewHTMLInvoiceRenderer(storeName string) *HTMLInvoiceRenderer {
	return &HTMLInvoiceRenderer{
		tmpl:      template.Must(template.New("invoice").Parse(invoiceTemplate)),
		storeName: storeName,
	}
}

func (r *HTMLInvoiceRenderer) ContentType() string { return "text/html; charset=utf-8" }
func (r *HTMLInvoiceRenderer) Extension() string   { return ".html" }

type invoiceLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	Subtotal  string
}

func (r *HTMLInvoiceRenderer) Render(ctx context.Context, order *models.Order) ([]byte, error) {
	if order.User == nil {
		return nil, fmt.Errorf("order %s has no customer loaded", order.ID)
	}

	lines := make([]invoiceLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		name := line.ProductID.String()
		if line.Product != nil {
			name = line.Product.Nombre
		}
		lines = append(lines, invoiceLine{
			Name:      name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Subtotal:  line.Subtotal().StringFixed(2),
		})
	}

	data := map[string]interface{}{
		"StoreName":     r.storeName,
		"Reference":     utils.ShortID(order.ID),
		"Date":          order.CreatedAt.Format("02/01/2006 15:04"),
		"Customer":      order.User.FullName(),
		"Numero":        order.User.Numero,
		"Status":        order.Status,
		"PaymentMethod": order.PaymentMethod,
		"Lines":         lines,
		"Total":         order.Total.StringFixed(2),
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

const invoiceTemplate = `<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>Factura {{.Reference}}</title></head>
<body>
<h1>{{.StoreName}}</h1>
<p>Factura del pedido #{{.Reference}}</p>
<p>Fecha: {{.Date}}</p>
<p>Cliente: {{.Customer}} ({{.Numero}})</p>
<p>Estado: {{.Status}} &middot; Pago: {{.PaymentMethod}}</p>
<table>
<thead><tr><th>Producto</th><th>Cantidad</th><th>Precio unitario</th><th>Subtotal</th></tr></thead>
<tbody>
{{- range .Lines}}
<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>${{.UnitPrice}}</td><td>${{.Subtotal}}</td></tr>
{{- end}}
</tbody>
</table>
<p><strong>Total: ${{.Total}}</strong></p>
</body>
</html>
`

// InvoiceService renders invoices and keeps them in a DocumentStore.
type InvoiceService struct {
	db       *gorm.DB
	renderer InvoiceRenderer
	store    DocumentStore
	prefix   string
	retries  int
	backoff  time.Duration
}

func NewInvoiceService(db *gorm.DB, renderer InvoiceRenderer, store DocumentStore, prefix string, retries int) *InvoiceService {
	if retries < 1 {
		retries = 1
	}
	return &InvoiceService{
		db:       db,
		renderer: renderer,
		store:    store,
		prefix:   prefix,
		retries:  retries,
		backoff:  200 * time.Millisecond,
	}
}

func (s *InvoiceService) ContentType() string {
	return s.renderer.ContentType()
}

// Generate renders and stores the invoice of orderID, retrying transient
// failures, and records the key on the order. Errors wrap ErrRenderFailure.
func (s *InvoiceService) Generate(ctx context.Context, orderID uuid.UUID) (string, []byte, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		key, data, err := s.generateOnce(ctx, orderID)
		metrics.RecordInvoice(err)
		if err == nil {
			return key, data, nil
		}
		lastErr = err

		logrus.WithFields(logrus.Fields{
			"order_id": orderID,
			"attempt":  attempt,
		}).WithError(err).Warn("Invoice generation failed")

		if attempt < s.retries {
			select {
			case <-ctx.Done():
				return "", nil, fmt.Errorf("%w: %w", ErrRenderFailure, ctx.Err())
			case <-time.After(s.backoff * time.Duration(attempt)):
			}
		}
	}
	return "", nil, fmt.Errorf("%w: %w", ErrRenderFailure, lastErr)
}

func (s *InvoiceService) generateOnce(ctx context.Context, orderID uuid.UUID) (string, []byte, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Lines.Product").
		First(&order, "id = ?", orderID).Error; err != nil {
		return "", nil, notFoundOr(err, "failed to load order")
	}

	data, err := s.renderer.Render(ctx, &order)
	if err != nil {
		return "", nil, err
	}

	key := fmt.Sprintf("%s/%s/%s%s", s.prefix, order.CreatedAt.Format("2006/01"), order.ID, s.renderer.Extension())
	if err := s.store.Put(ctx, key, data, s.renderer.ContentType()); err != nil {
		return "", nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("invoice_key", key).Error; err != nil {
		return "", nil, fmt.Errorf("failed to record invoice key: %w", err)
	}
	return key, data, nil
}

// Load returns the stored invoice, generating it when it was never stored
// or has gone missing from the store.
func (s *InvoiceService) Load(ctx context.Context, order *models.Order) ([]byte, error) {
	if order.InvoiceKey != "" {
		data, err := s.store.Get(ctx, order.InvoiceKey)
		if err == nil {
			return data, nil
		}
		logrus.WithField("order_id", order.ID).WithError(err).Warn("Stored invoice unavailable, regenerating")
	}

	key, data, err := s.Generate(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.InvoiceKey = key
	return data, nil
}
