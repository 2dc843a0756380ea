// internal/router/router_test.go
package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/urbanthreads/storefront-backend/internal/config"
	"github.com/urbanthreads/storefront-backend/internal/events"
	"github.com/urbanthreads/storefront-backend/internal/models"
	"github.com/urbanthreads/storefront-backend/internal/realtime"
	"github.com/urbanthreads/storefront-backend/internal/utils"
)

type RouterTestSuite struct {
	suite.Suite
	db     *gorm.DB
	hub    *realtime.Hub
	router *gin.Engine
}

func (suite *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)
	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	))
	suite.db = db

	cfg := &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "router-test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Frontend: config.FrontendConfig{BaseURL: "*"},
	}

	suite.hub = realtime.NewHub()
	suite.router = Initialize(db, cfg, suite.hub, nil)
}

func (suite *RouterTestSuite) request(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *RouterTestSuite) createAdmin() (*models.User, string) {
	admin := &models.User{
		Name:  "Store Admin",
		Email: "admin@urbanthreads.shop",
		Role:  models.UserRoleAdmin,
	}
	suite.Require().NoError(admin.SetPassword("admin123!@#"))
	suite.Require().NoError(suite.db.Create(admin).Error)

	token, err := utils.GenerateJWT(admin.ID, admin.Email, string(admin.Role), 1)
	suite.Require().NoError(err)
	return admin, token
}

func (suite *RouterTestSuite) TestHealthCheck() {
	w := suite.request("GET", "/health", nil, "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "healthy")
}

func (suite *RouterTestSuite) TestRegisterAndMe() {
	w := suite.request("POST", "/v1/auth/register", map[string]interface{}{
		"name":     "Jane Doe",
		"email":    "jane@example.com",
		"password": "supersecret1",
	}, "")
	suite.Require().Equal(http.StatusCreated, w.Code)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(suite.T(), response.Success)
	suite.Require().NotEmpty(response.Data.AccessToken)

	me := suite.request("GET", "/v1/auth/me", nil, response.Data.AccessToken)
	assert.Equal(suite.T(), http.StatusOK, me.Code)
	assert.Contains(suite.T(), me.Body.String(), "jane@example.com")
}

func (suite *RouterTestSuite) TestAdminRoutesAreGated() {
	productBody := map[string]interface{}{
		"name":     "Gated Jacket",
		"price":    99.0,
		"category": "jackets",
		"stock":    5,
	}

	// No token
	w := suite.request("POST", "/v1/admin/products", productBody, "")
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	// Regular user token
	register := suite.request("POST", "/v1/auth/register", map[string]interface{}{
		"name":     "Shopper",
		"email":    "shopper@example.com",
		"password": "supersecret1",
	}, "")
	suite.Require().Equal(http.StatusCreated, register.Code)

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(register.Body.Bytes(), &resp))

	w = suite.request("POST", "/v1/admin/products", productBody, resp.Data.AccessToken)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	// Admin token
	_, adminToken := suite.createAdmin()
	w = suite.request("POST", "/v1/admin/products", productBody, adminToken)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	// Duplicate slug conflicts
	w = suite.request("POST", "/v1/admin/products", productBody, adminToken)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *RouterTestSuite) TestGuestCheckout() {
	product := &models.Product{
		Name:     "Checkout Tee",
		Price:    25,
		Category: "shirts",
		Slug:     "checkout-tee",
		Stock:    20,
	}
	suite.Require().NoError(suite.db.Create(product).Error)

	w := suite.request("POST", "/v1/orders", map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": product.ID.String(), "quantity": 2},
		},
		"customer_info": map[string]interface{}{
			"email":      "guest@example.com",
			"first_name": "Guest",
			"last_name":  "Buyer",
			"address":    "1 Main St",
			"city":       "Springfield",
			"zip":        "12345",
		},
	}, "")
	suite.Require().Equal(http.StatusCreated, w.Code)

	var reloaded models.Product
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(suite.T(), 18, reloaded.Stock)
}

func (suite *RouterTestSuite) TestCheckoutValidationFailure() {
	w := suite.request("POST", "/v1/orders", map[string]interface{}{
		"items":         []map[string]interface{}{},
		"customer_info": map[string]interface{}{},
	}, "")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "VALIDATION_ERROR")
}

func (suite *RouterTestSuite) TestAvatarUpload() {
	register := suite.request("POST", "/v1/auth/register", map[string]interface{}{
		"name":     "Avatar User",
		"email":    "avatar@example.com",
		"password": "supersecret1",
	}, "")
	suite.Require().Equal(http.StatusCreated, register.Code)

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(register.Body.Bytes(), &resp))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", "me.png")
	suite.Require().NoError(err)
	_, err = part.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	suite.Require().NoError(err)
	suite.Require().NoError(mw.Close())

	req, _ := http.NewRequest("POST", "/v1/users/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+resp.Data.AccessToken)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Require().Equal(http.StatusCreated, w.Code)

	profile := suite.request("GET", "/v1/users/profile", nil, resp.Data.AccessToken)
	suite.Require().Equal(http.StatusOK, profile.Code)
	assert.Contains(suite.T(), profile.Body.String(), "/uploads/avatars/")
}

func (suite *RouterTestSuite) TestEmailVerificationRejectsBadToken() {
	w := suite.request("GET", "/v1/auth/verify-email/bogus-token", nil, "")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *RouterTestSuite) TestWebSocketAdminGroupDelivery() {
	_, adminToken := suite.createAdmin()

	server := httptest.NewServer(suite.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	// Anonymous connection
	shopper, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	suite.Require().NoError(err)
	defer shopper.Close()

	// Admin connection via token query parameter
	admin, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+adminToken, nil)
	suite.Require().NoError(err)
	defer admin.Close()

	suite.Require().Eventually(func() bool {
		return suite.hub.ClientCount() == 2
	}, time.Second, 10*time.Millisecond)

	suite.Require().NoError(admin.WriteJSON(map[string]string{"event": events.MessageJoinAdmin}))
	suite.Require().Eventually(func() bool {
		return suite.hub.AdminCount() == 1
	}, time.Second, 10*time.Millisecond)

	// A join-admin from the anonymous connection is refused
	suite.Require().NoError(shopper.WriteJSON(map[string]string{"event": events.MessageJoinAdmin}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(suite.T(), 1, suite.hub.AdminCount())

	suite.hub.BroadcastToAdmin("order:created", map[string]interface{}{"orderId": "test"})

	admin.SetReadDeadline(time.Now().Add(time.Second))
	var envelope struct {
		Event string `json:"event"`
	}
	suite.Require().NoError(admin.ReadJSON(&envelope))
	assert.Equal(suite.T(), "order:created", envelope.Event)

	// The shopper connection received nothing
	shopper.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = shopper.ReadMessage()
	assert.Error(suite.T(), err)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
