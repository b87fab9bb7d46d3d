package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

type stubAuthenticator struct {
	user *models.User
	err  error
}

func (s stubAuthenticator) Authenticate(context.Context, string) (*models.User, error) {
	return s.user, s.err
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		role, _ := utils.GetRoleFromContext(c)
		c.String(http.StatusOK, string(role))
	})
	r.GET("/", handlers...)
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	dealer := &models.User{Role: models.RoleDealer}
	dealer.ID = uuid.New()

	r := newEngine(AuthRequired(stubAuthenticator{user: dealer}))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Token abc").Code)

	w := serve(r, "Bearer abc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dealer", w.Body.String())

	suspended := newEngine(AuthRequired(stubAuthenticator{err: &services.Error{Kind: services.ErrForbidden, Message: "account is suspended"}}))
	assert.Equal(t, http.StatusForbidden, serve(suspended, "Bearer abc").Code)

	expired := newEngine(AuthRequired(stubAuthenticator{err: &services.Error{Kind: services.ErrUnauthenticated, Message: "invalid or expired token"}}))
	assert.Equal(t, http.StatusUnauthorized, serve(expired, "Bearer abc").Code)
}

func TestRequireRoles(t *testing.T) {
	salesman := &models.User{Role: models.RoleSalesman}
	auth := AuthRequired(stubAuthenticator{user: salesman})

	assert.Equal(t, http.StatusForbidden, serve(newEngine(auth, RequireRoles(models.RoleDealer)), "Bearer x").Code)
	assert.Equal(t, http.StatusOK, serve(newEngine(auth, RequireRoles(models.RoleDealer, models.RoleSalesman)), "Bearer x").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(newEngine(AdminRequired()), "").Code)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Hour), 2)
	defer limiter.Stop()
	r := newEngine(limiter.Middleware())

	assert.Equal(t, http.StatusOK, serve(r, "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "").Code)
	w := serve(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
}

func TestNewLimitsFallsBackToDefaults(t *testing.T) {
	limits := NewLimits(config.RateLimitConfig{LoginPerMinute: 2})
	defer limits.Stop()

	assert.Equal(t, rate.Limit(10), limits.General.rate)
	assert.Equal(t, 20, limits.General.burst)
	assert.Equal(t, 2, limits.Login.burst)
	assert.Equal(t, 30, limits.Login.retryAfter())
	assert.Equal(t, 6, limits.Upload.retryAfter())

	r := newEngine(limits.Login.Middleware())
	assert.Equal(t, http.StatusOK, serve(r, "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "").Code)
}

func TestPreferredLanguageFallsBack(t *testing.T) {
	assert.Equal(t, "en", preferredLanguage(""))
	assert.Equal(t, "en", preferredLanguage("fr-FR,de;q=0.8"))
}

func TestExtractResource(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "dealer-requests", extractResourceType("/api/v1/dealer-requests/"+id.String()+"/approve"))
	assert.Equal(t, id.String(), extractResourceID("/api/v1/dealer-requests/"+id.String()+"/approve"))
	assert.Equal(t, "", extractResourceID("/api/v1/products"))
}

func configCORS(origins ...string) config.CORSConfig {
	return config.CORSConfig{AllowedOrigins: origins}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(configCORS("https://portal.example.com")))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://portal.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://portal.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
