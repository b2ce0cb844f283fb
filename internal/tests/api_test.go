// internal/tests/api_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/config"
	"github.com/yecy-cosmetic/store-backend/internal/database"
	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/models"
	"github.com/yecy-cosmetic/store-backend/internal/realtime"
	"github.com/yecy-cosmetic/store-backend/internal/router"
	"github.com/yecy-cosmetic/store-backend/internal/services"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

const (
	adminNumero    = "3000000000"
	adminPassword  = "admin-secreto"
	clientNumero   = "3001112233"
	clientPassword = "cliente-secreto"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type APITestSuite struct {
	suite.Suite
	db      *gorm.DB
	router  *gin.Engine
	cancel  context.CancelFunc
	product *models.Product
}

func (suite *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize("es"))
	utils.SetJWTSecret("api-test-secret")
}

func (suite *APITestSuite) SetupTest() {
	db, err := database.Initialize(config.DatabaseConfig{
		Driver:   "sqlite",
		Database: ":memory:",
		LogLevel: "silent",
	})
	suite.Require().NoError(err)
	suite.Require().NoError(database.RunMigrations(db))
	suite.Require().NoError(database.SeedInitialData(db, adminNumero, adminPassword))
	suite.db = db

	client := &models.User{
		Numero:   clientNumero,
		Nombre:   "Laura",
		Apellido: "Gomez",
		IsActive: true,
	}
	suite.Require().NoError(client.SetPassword(clientPassword))
	suite.Require().NoError(db.Create(client).Error)

	suite.product = &models.Product{
		Nombre: "Crema hidratante",
		Precio: decimal.RequireFromString("25000.00"),
		Stock:  4,
		Activo: true,
	}
	suite.Require().NoError(db.Create(suite.product).Error)

	store, err := services.NewLocalStorage(suite.T().TempDir())
	suite.Require().NoError(err)

	hub := realtime.NewHub(0)
	cfg := &config.Config{
		JWT:     config.JWTConfig{SecretKey: "api-test-secret", AccessTokenTTL: 1},
		Storage: config.StorageConfig{InvoicePrefix: "invoices"},
		Checkout: config.CheckoutConfig{
			LowStockThreshold:    1,
			DefaultPaymentMethod: "contraentrega",
			InvoiceRetries:       1,
			Timeout:              10,
		},
		I18n: config.I18nConfig{DefaultLocale: "es"},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel
	suite.router = router.Initialize(ctx, router.Dependencies{
		DB:     db,
		Config: cfg,
		Hub:    hub,
		Pusher: hub,
		Store:  store,
	})
}

func (suite *APITestSuite) TearDownTest() {
	suite.cancel()
	database.Close(suite.db)
}

func (suite *APITestSuite) request(method, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APITestSuite) decode(w *httptest.ResponseRecorder, data interface{}) envelope {
	var env envelope
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		suite.Require().NoError(json.Unmarshal(env.Data, data))
	}
	return env
}

func (suite *APITestSuite) login(numero, password string) string {
	w := suite.request(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"numero":   numero,
		"password": password,
	}, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var auth struct {
		AccessToken string `json:"access_token"`
	}
	suite.decode(w, &auth)
	suite.Require().NotEmpty(auth.AccessToken)
	return auth.AccessToken
}

func (suite *APITestSuite) addToCart(token string, quantity int) {
	w := suite.request(http.MethodPost, "/v1/cart", token, map[string]interface{}{
		"producto_id": suite.product.ID,
		"cantidad":    quantity,
	}, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *APITestSuite) checkout(token string) models.Order {
	w := suite.request(http.MethodPost, "/v1/checkout", token, nil, nil)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	suite.decode(w, &order)
	return order
}

func (suite *APITestSuite) TestHealth() {
	w := suite.request(http.MethodGet, "/health", "", nil, nil)
	suite.Equal(http.StatusOK, w.Code)

	var body map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Equal("up", body["database"])
	suite.Equal(router.Version, body["version"])
}

func (suite *APITestSuite) TestLoginRejectsBadPassword() {
	w := suite.request(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"numero":   clientNumero,
		"password": "incorrecta",
	}, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.False(suite.decode(w, nil).Success)
}

func (suite *APITestSuite) TestLoginValidatesNumero() {
	w := suite.request(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"numero":   "123",
		"password": clientPassword,
	}, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("VALIDATION_ERROR", suite.decode(w, nil).Error.Code)
}

func (suite *APITestSuite) TestCheckoutFlow() {
	token := suite.login(clientNumero, clientPassword)
	suite.addToCart(token, 3)

	order := suite.checkout(token)
	suite.Equal(models.OrderStatusPending, order.Status)
	suite.True(order.Total.Equal(decimal.RequireFromString("75000")), order.Total.String())
	suite.Require().Len(order.Lines, 1)
	suite.Equal(3, order.Lines[0].Quantity)

	var product models.Product
	suite.Require().NoError(suite.db.First(&product, "id = ?", suite.product.ID).Error)
	suite.Equal(1, product.Stock)

	// the cart is emptied by the purchase
	w := suite.request(http.MethodGet, "/v1/cart", token, nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var cart struct {
		Items []models.CartItem `json:"items"`
		Total string            `json:"total"`
	}
	suite.decode(w, &cart)
	suite.Empty(cart.Items)
	suite.Equal("0.00", cart.Total)

	w = suite.request(http.MethodGet, "/v1/orders", token, nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var orders []models.Order
	suite.decode(w, &orders)
	suite.Require().Len(orders, 1)
	suite.Equal(order.ID, orders[0].ID)

	w = suite.request(http.MethodGet, "/v1/orders/"+order.ID.String()+"/invoice", token, nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Contains(w.Header().Get("Content-Type"), "text/html")
	suite.Contains(w.Body.String(), "Crema hidratante")
	etag := w.Header().Get("ETag")
	suite.Require().NotEmpty(etag)

	w = suite.request(http.MethodGet, "/v1/orders/"+order.ID.String()+"/invoice", token, nil,
		map[string]string{"If-None-Match": etag})
	suite.Equal(http.StatusNotModified, w.Code)

	w = suite.request(http.MethodGet, "/v1/notifications/unread-count", token, nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var unread struct {
		Count int64 `json:"no_leidas"`
	}
	suite.decode(w, &unread)
	suite.GreaterOrEqual(unread.Count, int64(1))
}

func (suite *APITestSuite) TestCheckoutReportsShortage() {
	token := suite.login(clientNumero, clientPassword)
	suite.addToCart(token, 3)

	// another sale drains the shelf between cart and checkout
	suite.Require().NoError(suite.db.Model(&models.Product{}).
		Where("id = ?", suite.product.ID).
		Update("stock", 1).Error)

	w := suite.request(http.MethodPost, "/v1/checkout", token, nil, nil)
	suite.Require().Equal(http.StatusConflict, w.Code, w.Body.String())

	env := suite.decode(w, nil)
	suite.Equal("INSUFFICIENT_STOCK", env.Error.Code)
	var shortages []services.StockShortage
	suite.Require().NoError(json.Unmarshal(env.Error.Details, &shortages))
	suite.Require().Len(shortages, 1)
	suite.Equal(1, shortages[0].Available)
	suite.Equal(3, shortages[0].Requested)

	var count int64
	suite.Require().NoError(suite.db.Model(&models.Order{}).Count(&count).Error)
	suite.Zero(count)
}

func (suite *APITestSuite) TestEmptyCartCheckout() {
	token := suite.login(clientNumero, clientPassword)

	w := suite.request(http.MethodPost, "/v1/checkout", token, nil, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("EMPTY_CART", suite.decode(w, nil).Error.Code)
}

func (suite *APITestSuite) TestRequiresAuthentication() {
	for _, path := range []string{"/v1/cart", "/v1/orders", "/v1/notifications", "/v1/admin/orders"} {
		w := suite.request(http.MethodGet, path, "", nil, nil)
		suite.Equal(http.StatusUnauthorized, w.Code, path)
	}
	w := suite.request(http.MethodPost, "/v1/checkout", "", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestClientCannotUseAdminRoutes() {
	token := suite.login(clientNumero, clientPassword)

	w := suite.request(http.MethodGet, "/v1/admin/orders", token, nil, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodGet, "/v1/admin/users", token, nil, nil)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *APITestSuite) TestAdminUpdatesOrderStatus() {
	clientToken := suite.login(clientNumero, clientPassword)
	suite.addToCart(clientToken, 1)
	order := suite.checkout(clientToken)

	adminToken := suite.login(adminNumero, adminPassword)

	w := suite.request(http.MethodGet, "/v1/admin/orders", adminToken, nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var listed []models.Order
	suite.decode(w, &listed)
	suite.Len(listed, 1)

	w = suite.request(http.MethodPut, "/v1/admin/orders/"+order.ID.String()+"/status", adminToken,
		map[string]string{"estado": "completado"}, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/v1/orders/"+order.ID.String(), clientToken, nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var updated models.Order
	suite.decode(w, &updated)
	suite.Equal(models.OrderStatusCompleted, updated.Status)

	// completed orders are final
	w = suite.request(http.MethodPut, "/v1/admin/orders/"+order.ID.String()+"/status", adminToken,
		map[string]string{"estado": "pendiente"}, nil)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodPut, "/v1/admin/orders/"+order.ID.String()+"/status", adminToken,
		map[string]string{"estado": "enviado"}, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestClientCancelsOrder() {
	token := suite.login(clientNumero, clientPassword)
	suite.addToCart(token, 2)
	order := suite.checkout(token)

	w := suite.request(http.MethodDelete, "/v1/orders/"+order.ID.String(), token, nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/v1/orders/"+order.ID.String(), token, nil, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	// cancellation does not return units to the shelf
	var product models.Product
	suite.Require().NoError(suite.db.First(&product, "id = ?", suite.product.ID).Error)
	suite.Equal(2, product.Stock)
}

func (suite *APITestSuite) TestCatalog() {
	w := suite.request(http.MethodGet, "/v1/products?q=crema", "", nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var products []models.Product
	suite.decode(w, &products)
	suite.Require().Len(products, 1)
	suite.Equal(suite.product.ID, products[0].ID)

	w = suite.request(http.MethodGet, "/v1/products/"+suite.product.ID.String(), "", nil, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/v1/products/not-a-uuid", "", nil, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestRegisterAndUpdateProfile() {
	registration := map[string]string{
		"numero":   "3204445566",
		"nombre":   "Paula",
		"apellido": "Diaz",
		"password": "paula-secreta",
	}
	w := suite.request(http.MethodPost, "/v1/auth/register", "", registration, nil)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/v1/auth/register", "", registration, nil)
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("NUMERO_TAKEN", suite.decode(w, nil).Error.Code)

	token := suite.login("3204445566", "paula-secreta")
	w = suite.request(http.MethodPut, "/v1/users/me", token, map[string]string{"apellido": "Díaz"}, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var user models.User
	suite.decode(w, &user)
	suite.Equal("Paula", user.Nombre)
	suite.Equal("Díaz", user.Apellido)
}

func (suite *APITestSuite) TestCommunityFlow() {
	client := suite.login(clientNumero, clientPassword)
	admin := suite.login(adminNumero, adminPassword)

	w := suite.request(http.MethodPost, "/v1/comments", client, map[string]interface{}{
		"producto_id": suite.product.ID,
		"texto":       "Muy buena para piel seca",
	}, nil)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var comment models.Comment
	suite.decode(w, &comment)

	// reading the forum needs no account
	w = suite.request(http.MethodGet, "/v1/comments?producto_id="+suite.product.ID.String(), "", nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var comments []models.Comment
	suite.decode(w, &comments)
	suite.Require().Len(comments, 1)
	suite.Equal("Laura Gomez", comments[0].Author)

	w = suite.request(http.MethodPut, "/v1/comments/"+comment.ID.String(), admin, map[string]string{"texto": "editado"}, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("Solo puedes modificar tus propios comentarios.", suite.decode(w, nil).Error.Message)

	w = suite.request(http.MethodPost, "/v1/comments/"+comment.ID.String()+"/like", admin, nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var like struct {
		Like bool `json:"like"`
	}
	suite.decode(w, &like)
	suite.True(like.Like)

	w = suite.request(http.MethodPut, "/v1/products/"+suite.product.ID.String()+"/rating", client, map[string]int{"valor": 6}, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	w = suite.request(http.MethodPut, "/v1/products/"+suite.product.ID.String()+"/rating", client, map[string]int{"valor": 4}, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/v1/products/"+suite.product.ID.String()+"/stats", "", nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var stats models.ProductStats
	suite.decode(w, &stats)
	suite.Equal(int64(1), stats.Ratings)
	suite.Equal(int64(1), stats.Comments)
	suite.True(decimal.NewFromInt(4).Equal(stats.Average))

	w = suite.request(http.MethodPost, "/v1/comments", "", map[string]interface{}{
		"producto_id": suite.product.ID,
		"texto":       "anónimo",
	}, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestPasswordRecovery() {
	w := suite.request(http.MethodPost, "/v1/auth/recover", "", map[string]string{"numero": clientNumero}, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Empty(suite.decode(w, nil).Data)

	// the real code only reaches the log; pin a known one
	hash, err := bcrypt.GenerateFromPassword([]byte("482913"), bcrypt.MinCost)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.db.Model(&models.PasswordReset{}).
		Where("user_id = (?)", suite.db.Model(&models.User{}).Select("id").Where("numero = ?", clientNumero)).
		Update("code_hash", string(hash)).Error)

	reset := map[string]string{
		"numero":         clientNumero,
		"codigo":         "111111",
		"nueva_password": "recuperada-123",
	}
	w = suite.request(http.MethodPost, "/v1/auth/reset-password", "", reset, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("Código inválido o expirado.", suite.decode(w, nil).Error.Message)

	reset["codigo"] = "482913"
	w = suite.request(http.MethodPost, "/v1/auth/reset-password", "", reset, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	suite.login(clientNumero, "recuperada-123")
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
