package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/config"
	"github.com/yecy-cosmetic/store-backend/internal/database"
	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/realtime"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require.NoError(t, i18n.Initialize("es"))

	db, err := database.Initialize(config.DatabaseConfig{
		Driver:   "sqlite",
		Database: ":memory:",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func createUser(t *testing.T, db *gorm.DB, numero, nombre string, admin bool) *models.User {
	t.Helper()
	user := &models.User{
		Numero:   numero,
		Nombre:   nombre,
		Apellido: "Prueba",
		IsAdmin:  admin,
		IsActive: true,
	}
	require.NoError(t, user.SetPassword("secreto123"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createProduct(t *testing.T, db *gorm.DB, nombre, precio string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Nombre: nombre,
		Precio: decimal.RequireFromString(precio),
		Stock:  stock,
		Activo: true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func reloadProduct(t *testing.T, db *gorm.DB, product *models.Product) models.Product {
	t.Helper()
	var fresh models.Product
	require.NoError(t, db.First(&fresh, "id = ?", product.ID).Error)
	return fresh
}

func countNotifications(t *testing.T, db *gorm.DB, user *models.User, notificationType models.NotificationType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", user.ID, notificationType).
		Count(&count).Error)
	return count
}

// recordingPusher keeps every pushed message and optionally fails.
type recordingPusher struct {
	mu       sync.Mutex
	messages map[string][]realtime.Message
	err      error
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{messages: make(map[string][]realtime.Message)}
}

func (p *recordingPusher) Push(_ context.Context, topic realtime.Topic, msg realtime.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages[topic.Key()] = append(p.messages[topic.Key()], msg)
	return nil
}

func (p *recordingPusher) For(user *models.User) []realtime.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages[realtime.Topic{Role: string(user.Role()), UserID: user.ID}.Key()]
}

// stubRenderer fails the first failures calls.
type stubRenderer struct {
	mu       sync.Mutex
	failures int
	calls    int
}

var errRendererDown = errors.New("renderer down")

func (r *stubRenderer) Render(_ context.Context, order *models.Order) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.failures {
		return nil, errRendererDown
	}
	return []byte("factura " + order.ID.String()), nil
}

func (r *stubRenderer) ContentType() string { return "text/plain" }
func (r *stubRenderer) Extension() string   { return ".txt" }

func (r *stubRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
