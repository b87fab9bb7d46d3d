package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/events"
	"github.com/javajoker/distro-backend/internal/i18n"
	"github.com/javajoker/distro-backend/internal/lock"
	"github.com/javajoker/distro-backend/internal/middleware"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository/memory"
	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type RouterTestSuite struct {
	suite.Suite
	router   *gin.Engine
	limits   *middleware.Limits
	store    *memory.Store
	admin    *models.User
	stalkist *models.User
	dealer   *models.User
	other    *models.User
	salesman *models.User
	clients  int
}

func (suite *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize("../i18n/locales", "en"))
}

func (suite *RouterTestSuite) TearDownTest() {
	suite.limits.Stop()
}

func (suite *RouterTestSuite) SetupTest() {
	cfg := &config.Config{
		JWT:     config.JWTConfig{SecretKey: "router-test-secret", AccessTokenTTL: 1, Issuer: "distro-backend"},
		Upload:  config.UploadConfig{LocalDir: suite.T().TempDir(), PublicBaseURL: "http://localhost:8080/uploads", MaxReceiptMB: 1},
		Payment: config.PaymentConfig{Currency: "inr"},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	suite.store = memory.NewStore()
	storage, err := services.NewStorageService(cfg)
	suite.Require().NoError(err)

	svc := NewServices(cfg, Infrastructure{
		Store:     suite.store,
		Locker:    lock.NewLocal(),
		Publisher: events.Noop{},
		Storage:   storage,
	})
	suite.limits = middleware.NewLimits(cfg.RateLimit)
	suite.router = Initialize(cfg, svc, suite.store.AuditLogs(), suite.limits)

	suite.admin = suite.createUser(models.RoleAdmin, nil)
	suite.stalkist = suite.createUser(models.RoleStalkist, suite.admin)
	suite.dealer = suite.createUser(models.RoleDealer, suite.stalkist)
	suite.other = suite.createUser(models.RoleDealer, suite.admin)
	suite.salesman = suite.createUser(models.RoleSalesman, suite.dealer)
}

func (suite *RouterTestSuite) createUser(role models.Role, creator *models.User) *models.User {
	user := &models.User{
		Name:   string(role),
		Email:  fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		Role:   role,
		Status: models.UserStatusActive,
	}
	suite.Require().NoError(user.SetPassword("password123"))
	if creator != nil {
		user.CreatedBy = &creator.ID
	}
	suite.Require().NoError(suite.store.Users().Create(context.Background(), user))
	return user
}

func (suite *RouterTestSuite) token(user *models.User) string {
	token, err := utils.GenerateJWT(user.ID, user.Email, string(user.Role), 1)
	suite.Require().NoError(err)
	return token
}

// do sends each request from its own client address so the shared rate limiters stay out of the way.
func (suite *RouterTestSuite) do(req *http.Request, as *models.User) (*httptest.ResponseRecorder, envelope) {
	suite.clients++
	req.RemoteAddr = fmt.Sprintf("10.%d.%d.%d:4000", suite.clients/65536%256, suite.clients/256%256, suite.clients%256)
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+suite.token(as))
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var body envelope
	if w.Body.Len() > 0 {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w, body
}

func (suite *RouterTestSuite) doJSON(method, path string, payload interface{}, as *models.User) (*httptest.ResponseRecorder, envelope) {
	var body bytes.Buffer
	if payload != nil {
		suite.Require().NoError(json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return suite.do(req, as)
}

func (suite *RouterTestSuite) createProduct(stock int) models.Product {
	w, body := suite.doJSON(http.MethodPost, "/api/v1/products", gin.H{
		"title":             "Mint Strips",
		"packet_price":      "5.00",
		"packets_per_strip": 10,
		"stock":             stock,
	}, suite.admin)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var product models.Product
	suite.Require().NoError(json.Unmarshal(body.Data, &product))
	return product
}

func (suite *RouterTestSuite) createRequest(as *models.User, productID uuid.UUID, strips int) models.DealerRequest {
	w, body := suite.doJSON(http.MethodPost, "/api/v1/dealer-requests", gin.H{
		"product_id": productID,
		"strips":     strips,
	}, as)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var request models.DealerRequest
	suite.Require().NoError(json.Unmarshal(body.Data, &request))
	return request
}

func (suite *RouterTestSuite) TestHealth() {
	w, _ := suite.doJSON(http.MethodGet, "/health", nil, nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *RouterTestSuite) TestAuthRequired() {
	w, body := suite.doJSON(http.MethodGet, "/api/v1/products", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.False(body.Success)
	suite.Require().NotNil(body.Error)
	suite.Equal("UNAUTHORIZED", body.Error.Code)
	suite.Equal("Authentication required", body.Message)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w, _ = suite.do(req, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *RouterTestSuite) TestLogin() {
	w, body := suite.doJSON(http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    suite.dealer.Email,
		"password": "password123",
	}, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("Login successful", body.Message)

	var auth services.AuthResponse
	suite.Require().NoError(json.Unmarshal(body.Data, &auth))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	w, body = suite.do(req, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var me models.User
	suite.Require().NoError(json.Unmarshal(body.Data, &me))
	suite.Equal(suite.dealer.ID, me.ID)

	w, _ = suite.doJSON(http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    suite.dealer.Email,
		"password": "wrong-password",
	}, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *RouterTestSuite) TestApproveFlowAndStockShortfall() {
	product := suite.createProduct(100)

	first := suite.createRequest(suite.dealer, product.ID, 20)
	suite.Equal(models.RequestStatusPending, first.Status)

	w, body := suite.doJSON(http.MethodPut, "/api/v1/dealer-requests/"+first.ID.String()+"/approve", nil, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("Dealer request approved successfully", body.Message)

	w, _ = suite.doJSON(http.MethodPost, "/api/v1/dealer-requests", gin.H{
		"product_id": product.ID,
		"strips":     200,
	}, suite.dealer)
	suite.Equal(http.StatusBadRequest, w.Code)

	second := suite.createRequest(suite.dealer, product.ID, 70)

	w, _ = suite.doJSON(http.MethodPut, "/api/v1/products/"+product.ID.String()+"/stock", gin.H{
		"stock":  50,
		"reason": "damaged in transit",
	}, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w, body = suite.doJSON(http.MethodPut, "/api/v1/dealer-requests/"+second.ID.String()+"/approve", nil, suite.admin)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Require().NotNil(body.Error)
	suite.Equal("INSUFFICIENT_STOCK", body.Error.Code)

	var details services.InsufficientStockError
	suite.Require().NoError(json.Unmarshal(body.Error.Details, &details))
	suite.Equal(50, details.Available)
	suite.Equal(70, details.Requested)

	w, body = suite.doJSON(http.MethodGet, "/api/v1/dealer-requests/"+second.ID.String(), nil, suite.dealer)
	suite.Require().Equal(http.StatusOK, w.Code)
	var pending models.DealerRequest
	suite.Require().NoError(json.Unmarshal(body.Data, &pending))
	suite.Equal(models.RequestStatusPending, pending.Status)

	w, body = suite.doJSON(http.MethodPut, "/api/v1/dealer-requests/"+first.ID.String()+"/approve", nil, suite.admin)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("INVALID_STATE", body.Error.Code)
	suite.Equal("request already approved", body.Message)
}

func (suite *RouterTestSuite) TestRequestAccessControl() {
	product := suite.createProduct(100)
	request := suite.createRequest(suite.dealer, product.ID, 5)
	path := "/api/v1/dealer-requests/" + request.ID.String()

	w, _ := suite.doJSON(http.MethodGet, path, nil, suite.other)
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.doJSON(http.MethodGet, path, nil, suite.stalkist)
	suite.Equal(http.StatusOK, w.Code)

	w, _ = suite.doJSON(http.MethodPut, path+"/approve", nil, suite.dealer)
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.doJSON(http.MethodPost, "/api/v1/dealer-requests", gin.H{"product_id": product.ID, "strips": 1}, suite.stalkist)
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.doJSON(http.MethodGet, "/api/v1/dealer-requests/not-a-uuid", nil, suite.admin)
	suite.Equal(http.StatusBadRequest, w.Code)

	w, _ = suite.doJSON(http.MethodGet, "/api/v1/dealer-requests/"+uuid.NewString(), nil, suite.admin)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *RouterTestSuite) TestValidationDetails() {
	product := suite.createProduct(10)

	w, body := suite.doJSON(http.MethodPost, "/api/v1/dealer-requests", gin.H{
		"product_id": product.ID,
		"strips":     0,
	}, suite.dealer)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Require().NotNil(body.Error)
	suite.Equal("VALIDATION_ERROR", body.Error.Code)

	var details []utils.ValidationError
	suite.Require().NoError(json.Unmarshal(body.Error.Details, &details))
	suite.Require().Len(details, 1)
	suite.Equal("strips", details[0].Field)
}

func (suite *RouterTestSuite) TestListRequestsIsPaginatedAndScoped() {
	product := suite.createProduct(100)
	suite.createRequest(suite.dealer, product.ID, 1)
	suite.createRequest(suite.dealer, product.ID, 2)
	suite.createRequest(suite.other, product.ID, 3)

	w, body := suite.doJSON(http.MethodGet, "/api/v1/dealer-requests?limit=1", nil, suite.stalkist)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("2", w.Header().Get("X-Total-Count"))

	var requests []models.DealerRequest
	suite.Require().NoError(json.Unmarshal(body.Data, &requests))
	suite.Require().Len(requests, 1)
	suite.Equal(2, requests[0].Strips)

	w, _ = suite.doJSON(http.MethodGet, "/api/v1/dealer-requests?status=shipped", nil, suite.admin)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *RouterTestSuite) TestReceiptUploadAndVerification() {
	product := suite.createProduct(100)
	request := suite.createRequest(suite.dealer, product.ID, 4)
	path := "/api/v1/dealer-requests/" + request.ID.String()

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("receipt", "receipt.png")
	suite.Require().NoError(err)
	_, err = part.Write([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00})
	suite.Require().NoError(err)
	suite.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPut, path+"/upload-receipt", &form)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w, body := suite.do(req, suite.dealer)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var paid models.DealerRequest
	suite.Require().NoError(json.Unmarshal(body.Data, &paid))
	suite.Equal(models.PaymentStatusPaid, paid.PaymentStatus)
	suite.Require().NotNil(paid.ReceiptImage)

	req = httptest.NewRequest(http.MethodPut, path+"/upload-receipt", nil)
	w, _ = suite.do(req, suite.dealer)
	suite.Equal(http.StatusBadRequest, w.Code)

	w, _ = suite.doJSON(http.MethodPut, path+"/verify-payment", gin.H{"notes": "ok"}, suite.dealer)
	suite.Equal(http.StatusForbidden, w.Code)

	w, body = suite.doJSON(http.MethodPut, path+"/verify-payment", gin.H{"notes": "ok"}, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var verified models.DealerRequest
	suite.Require().NoError(json.Unmarshal(body.Data, &verified))
	suite.Equal(models.PaymentStatusVerified, verified.PaymentStatus)

	w, _ = suite.doJSON(http.MethodPost, path+"/payment-intent", nil, suite.dealer)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *RouterTestSuite) TestAllocationEndpoints() {
	product := suite.createProduct(100)
	request := suite.createRequest(suite.dealer, product.ID, 50)
	w, _ := suite.doJSON(http.MethodPut, "/api/v1/dealer-requests/"+request.ID.String()+"/approve", nil, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code)

	w, body := suite.doJSON(http.MethodPost, "/api/v1/stock-allocation/allocate", gin.H{
		"salesman_id": suite.salesman.ID,
		"product_id":  product.ID,
		"strips":      30,
	}, suite.dealer)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var result services.AllocationResult
	suite.Require().NoError(json.Unmarshal(body.Data, &result))
	suite.Equal(20, result.Available)

	w, body = suite.doJSON(http.MethodPost, "/api/v1/stock-allocation/allocate", gin.H{
		"salesman_id": suite.salesman.ID,
		"product_id":  product.ID,
		"strips":      25,
	}, suite.dealer)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("INSUFFICIENT_STOCK", body.Error.Code)

	w, body = suite.doJSON(http.MethodGet, "/api/v1/stock-allocation/salesman/stock", nil, suite.salesman)
	suite.Require().Equal(http.StatusOK, w.Code)
	var stock []services.SalesmanStockItem
	suite.Require().NoError(json.Unmarshal(body.Data, &stock))
	suite.Require().Len(stock, 1)
	suite.Equal(30, stock[0].TotalStrips)

	w, _ = suite.doJSON(http.MethodGet, "/api/v1/stock-allocation/salesman/stock", nil, suite.dealer)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *RouterTestSuite) TestDealerStatsAndDashboard() {
	product := suite.createProduct(100)
	suite.createRequest(suite.dealer, product.ID, 3)

	w, _ := suite.doJSON(http.MethodGet, "/api/v1/dealer-requests/dealer/"+suite.dealer.ID.String()+"/stats", nil, suite.stalkist)
	suite.Equal(http.StatusOK, w.Code)

	w, _ = suite.doJSON(http.MethodGet, "/api/v1/dealer-requests/dealer/"+suite.other.ID.String()+"/stats", nil, suite.stalkist)
	suite.Equal(http.StatusForbidden, w.Code)

	w, body := suite.doJSON(http.MethodGet, "/api/v1/admin/dashboard", nil, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code)
	var dashboard services.DashboardStats
	suite.Require().NoError(json.Unmarshal(body.Data, &dashboard))
	suite.EqualValues(1, dashboard.PendingRequests)

	w, _ = suite.doJSON(http.MethodGet, "/api/v1/admin/dashboard", nil, suite.stalkist)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *RouterTestSuite) TestCreateUserHierarchy() {
	w, _ := suite.doJSON(http.MethodPost, "/api/v1/users", gin.H{
		"name": "Field Sales", "email": "field@example.com", "password": "password123", "role": "salesman",
	}, suite.dealer)
	suite.Equal(http.StatusCreated, w.Code, w.Body.String())

	w, body := suite.doJSON(http.MethodPost, "/api/v1/users", gin.H{
		"name": "Again", "email": "field@example.com", "password": "password123", "role": "salesman",
	}, suite.dealer)
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("CONFLICT", body.Error.Code)

	w, _ = suite.doJSON(http.MethodPost, "/api/v1/users", gin.H{
		"name": "Boss", "email": "boss@example.com", "password": "password123", "role": "dealer",
	}, suite.dealer)
	suite.Equal(http.StatusForbidden, w.Code)

	w, _ = suite.doJSON(http.MethodPost, "/api/v1/users", gin.H{
		"name": "Nobody", "email": "nobody@example.com", "password": "password123", "role": "salesman",
	}, suite.salesman)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *RouterTestSuite) TestNotifications() {
	product := suite.createProduct(100)
	request := suite.createRequest(suite.dealer, product.ID, 2)
	w, _ := suite.doJSON(http.MethodPut, "/api/v1/dealer-requests/"+request.ID.String()+"/approve", nil, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code)

	w, body := suite.doJSON(http.MethodGet, "/api/v1/notifications", nil, suite.dealer)
	suite.Require().Equal(http.StatusOK, w.Code)
	var inbox []models.Notification
	suite.Require().NoError(json.Unmarshal(body.Data, &inbox))
	suite.Require().NotEmpty(inbox)

	w, _ = suite.doJSON(http.MethodPut, "/api/v1/notifications/"+inbox[0].ID.String()+"/read", nil, suite.dealer)
	suite.Equal(http.StatusOK, w.Code)

	w, _ = suite.doJSON(http.MethodPut, "/api/v1/notifications/"+inbox[0].ID.String()+"/read", nil, suite.other)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *RouterTestSuite) TestLocalizedMessages() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Accept-Language", "hi-IN,hi;q=0.9,en;q=0.8")
	w, body := suite.do(req, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(i18n.T("hi", i18n.KeyAuthRequired), body.Message)
	suite.NotEqual("Authentication required", body.Message)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
