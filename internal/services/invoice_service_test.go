package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/models"
)

type InvoiceServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	ctx      context.Context
	store    *StorageService
	renderer *stubRenderer
	service  *InvoiceService
	order    *models.Order
}

func (suite *InvoiceServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.ctx = context.Background()

	var err error
	suite.store, err = NewLocalStorage(suite.T().TempDir())
	suite.Require().NoError(err)
	suite.renderer = &stubRenderer{}
	suite.service = NewInvoiceService(suite.db, suite.renderer, suite.store, "invoices", 3)
	suite.service.backoff = time.Millisecond

	user := createUser(suite.T(), suite.db, "3004443322", "Natalia", false)
	suite.order = &models.Order{
		UserID:        user.ID,
		Status:        models.OrderStatusPending,
		Total:         decimal.RequireFromString("12.00"),
		PaymentMethod: models.PaymentMethodCashOnDelivery,
		Active:        true,
	}
	suite.Require().NoError(suite.db.Create(suite.order).Error)
}

func (suite *InvoiceServiceTestSuite) TestGenerateStoresDocumentAndRecordsKey() {
	key, data, err := suite.service.Generate(suite.ctx, suite.order.ID)
	suite.Require().NoError(err)

	suite.True(strings.HasPrefix(key, "invoices/"))
	suite.True(strings.HasSuffix(key, suite.order.ID.String()+".txt"))

	stored, err := suite.store.Get(suite.ctx, key)
	suite.Require().NoError(err)
	suite.Equal(data, stored)

	var order models.Order
	suite.Require().NoError(suite.db.First(&order, "id = ?", suite.order.ID).Error)
	suite.Equal(key, order.InvoiceKey)
}

func (suite *InvoiceServiceTestSuite) TestGenerateRetriesTransientFailures() {
	suite.renderer.failures = 2

	_, _, err := suite.service.Generate(suite.ctx, suite.order.ID)
	suite.Require().NoError(err)
	suite.Equal(3, suite.renderer.Calls())
}

func (suite *InvoiceServiceTestSuite) TestGenerateGivesUpWithRenderFailure() {
	suite.renderer.failures = 5

	_, _, err := suite.service.Generate(suite.ctx, suite.order.ID)
	suite.ErrorIs(err, ErrRenderFailure)
	suite.ErrorIs(err, errRendererDown)
	suite.Equal(3, suite.renderer.Calls())
}

func (suite *InvoiceServiceTestSuite) TestLoadRegeneratesMissingDocument() {
	key, _, err := suite.service.Generate(suite.ctx, suite.order.ID)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.store.Delete(suite.ctx, key))

	suite.order.InvoiceKey = key
	data, err := suite.service.Load(suite.ctx, suite.order)
	suite.Require().NoError(err)
	suite.Contains(string(data), suite.order.ID.String())
	suite.Equal(2, suite.renderer.Calls())
}

func (suite *InvoiceServiceTestSuite) TestStorageRejectsEscapingKeys() {
	err := suite.store.Put(suite.ctx, "../outside.txt", []byte("x"), "text/plain")
	suite.Error(err)

	_, err = suite.store.Get(suite.ctx, "invoices/missing.txt")
	suite.ErrorIs(err, ErrNotFound)
}

func TestInvoiceServiceSuite(t *testing.T) {
	suite.Run(t, new(InvoiceServiceTestSuite))
}
