// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/events"
	"github.com/javajoker/distro-backend/internal/handlers"
	"github.com/javajoker/distro-backend/internal/lock"
	"github.com/javajoker/distro-backend/internal/middleware"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

// Services is the fully wired service layer behind the HTTP API.
type Services struct {
	Auth          *services.AuthService
	Users         *services.UserService
	Inventory     *services.InventoryService
	Requests      *services.DealerRequestService
	Payments      *services.PaymentService
	Allocations   *services.AllocationService
	Stats         *services.StatsService
	Notifications *services.NotificationService
}

// Infrastructure holds the adapters the services are built on.
type Infrastructure struct {
	Store     repository.Store
	Locker    lock.Locker
	Publisher events.Publisher
	Storage   services.ReceiptStorage
	// Provider may be nil when card payments are not configured.
	Provider services.PaymentProvider
}

func NewServices(cfg *config.Config, infra Infrastructure) *Services {
	notificationService := services.NewNotificationService(infra.Store)
	authorizationService := services.NewAuthorizationService(infra.Store)
	inventoryService := services.NewInventoryService(infra.Store, infra.Publisher)

	return &Services{
		Auth:          services.NewAuthService(infra.Store, cfg),
		Users:         services.NewUserService(infra.Store),
		Inventory:     inventoryService,
		Requests:      services.NewDealerRequestService(infra.Store, inventoryService, authorizationService, notificationService, infra.Publisher, cfg.Ledger),
		Payments:      services.NewPaymentService(infra.Store, infra.Storage, infra.Provider, notificationService, infra.Publisher, cfg),
		Allocations:   services.NewAllocationService(infra.Store, infra.Locker, notificationService, infra.Publisher, cfg.Ledger),
		Stats:         services.NewStatsService(infra.Store, authorizationService, cfg.Ledger),
		Notifications: notificationService,
	}
}

func Initialize(cfg *config.Config, svc *Services, auditLogs repository.AuditLogRepository, limits *middleware.Limits) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Auth)
	userHandler := handlers.NewUserHandler(svc.Users, svc.Stats)
	productHandler := handlers.NewProductHandler(svc.Inventory)
	requestHandler := handlers.NewDealerRequestHandler(svc.Requests, svc.Stats)
	paymentHandler := handlers.NewPaymentHandler(svc.Payments)
	allocationHandler := handlers.NewAllocationHandler(svc.Allocations)
	adminHandler := handlers.NewAdminHandler(svc.Stats)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)

	utils.SetJWTSecret(cfg.JWT.SecretKey)
	utils.SetJWTIssuer(cfg.JWT.Issuer)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware())
	r.Use(limits.General.Middleware())
	r.Use(middleware.AuditLogMiddleware(auditLogs))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Locally stored receipts; S3 deployments serve them from the bucket.
	if cfg.AWS.AccessKeyID == "" && cfg.Upload.LocalDir != "" {
		r.Static("/uploads", cfg.Upload.LocalDir)
	}

	authRequired := middleware.AuthRequired(svc.Auth)
	admin := middleware.AdminRequired()
	dealer := middleware.RequireRoles(models.RoleDealer)

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", limits.Login.Middleware(), authHandler.Login)
			auth.GET("/me", authRequired, authHandler.Me)
		}

		users := v1.Group("/users", authRequired)
		{
			users.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleStalkist, models.RoleDealer), userHandler.CreateUser)
			users.GET("", userHandler.ListUsers)
			users.GET("/stats/roles", admin, userHandler.RoleStats)
		}

		products := v1.Group("/products", authRequired)
		{
			products.GET("", productHandler.ListProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.POST("", admin, productHandler.CreateProduct)
			products.PUT("/:id", admin, productHandler.UpdateProduct)
			products.DELETE("/:id", admin, productHandler.DeleteProduct)
			products.PUT("/:id/stock", admin, productHandler.AdjustStock)
		}

		requests := v1.Group("/dealer-requests", authRequired)
		{
			requests.POST("", dealer, requestHandler.CreateRequest)
			requests.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleStalkist, models.RoleDealer), requestHandler.ListRequests)
			requests.GET("/dealer/:id/stats", middleware.RequireRoles(models.RoleAdmin, models.RoleStalkist), requestHandler.DealerStats)
			requests.GET("/:id", requestHandler.GetRequest)
			requests.PUT("/:id/approve", admin, requestHandler.ApproveRequest)
			requests.PUT("/:id/cancel", middleware.RequireRoles(models.RoleAdmin, models.RoleDealer), requestHandler.CancelRequest)

			requests.PUT("/:id/upload-receipt", dealer, limits.Upload.Middleware(), paymentHandler.UploadReceipt)
			requests.POST("/:id/payment-intent", dealer, paymentHandler.CreatePaymentIntent)
			requests.PUT("/:id/confirm-payment", dealer, paymentHandler.ConfirmPayment)
			requests.PUT("/:id/verify-payment", admin, paymentHandler.VerifyPayment)
			requests.PUT("/:id/reject-payment", admin, paymentHandler.RejectPayment)
		}

		allocation := v1.Group("/stock-allocation", authRequired)
		{
			allocation.POST("/allocate", dealer, allocationHandler.Allocate)
			allocation.GET("/dealer/stock", dealer, allocationHandler.DealerStock)
			allocation.GET("/dealer/allocations", dealer, allocationHandler.DealerAllocations)
			allocation.GET("/salesman/stock", middleware.RequireRoles(models.RoleSalesman), allocationHandler.SalesmanStock)
		}

		adminRoutes := v1.Group("/admin", authRequired, admin)
		{
			adminRoutes.GET("/dashboard", adminHandler.GetDashboard)
		}

		notifications := v1.Group("/notifications", authRequired)
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}
	}

	return r
}
