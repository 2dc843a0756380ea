// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/urbanthreads/storefront-backend/internal/cache"
	"github.com/urbanthreads/storefront-backend/internal/config"
	"github.com/urbanthreads/storefront-backend/internal/events"
	"github.com/urbanthreads/storefront-backend/internal/handlers"
	"github.com/urbanthreads/storefront-backend/internal/middleware"
	"github.com/urbanthreads/storefront-backend/internal/realtime"
	"github.com/urbanthreads/storefront-backend/internal/services"
	"github.com/urbanthreads/storefront-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, hub *realtime.Hub, productCache *cache.RedisCache) *gin.Engine {
	emitter := events.NewEmitter(hub)

	// Initialize services
	storageService, _ := services.NewStorageService(cfg.AWS)
	authService := services.NewAuthService(db, cfg.JWT)
	productService := services.NewProductService(db, productCache, emitter)
	orderService := services.NewOrderService(db, productCache, emitter)
	userService := services.NewUserService(db)
	paymentService := services.NewPaymentService(db, cfg.Payment, emitter)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService, storageService)
	orderHandler := handlers.NewOrderHandler(orderService)
	userHandler := handlers.NewUserHandler(userService, storageService)
	adminHandler := handlers.NewAdminHandler(orderService, userService, paymentService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	realtimeHandler := handlers.NewRealtimeHandler(hub, cfg.Frontend.BaseURL)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Real-time channel
	r.GET("/ws", realtimeHandler.Serve)

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/verify-email/:token", authHandler.VerifyEmail)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		}

		// Product catalog
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/featured", productHandler.GetFeaturedProducts)
			products.GET("/slug/:slug", productHandler.GetProductBySlug)
			products.GET("/:id", productHandler.GetProduct)
		}

		// Orders
		orders := v1.Group("/orders")
		{
			orders.POST("", middleware.CheckoutRateLimit(), middleware.OptionalAuth(), orderHandler.CreateOrder)

			protected := orders.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.GET("", orderHandler.GetMyOrders)
				protected.GET("/:id", orderHandler.GetOrder)
			}
		}

		// User profile & wishlist
		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.GET("/profile", userHandler.GetProfile)
			users.PUT("/profile", userHandler.UpdateProfile)
			users.POST("/avatar", middleware.UploadRateLimit(), userHandler.UploadAvatar)
			users.GET("/wishlist", userHandler.GetWishlist)
			users.POST("/wishlist/:productId", userHandler.AddToWishlist)
			users.DELETE("/wishlist/:productId", userHandler.RemoveFromWishlist)
		}

		// Payments
		payments := v1.Group("/payments")
		payments.Use(middleware.CheckoutRateLimit())
		{
			payments.POST("/intent", paymentHandler.CreatePaymentIntent)
			payments.POST("/confirm", paymentHandler.ConfirmPayment)
		}

		// Admin back-office
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.POST("/products", productHandler.CreateProduct)
			admin.PUT("/products/:id", productHandler.UpdateProduct)
			admin.DELETE("/products/:id", productHandler.DeleteProduct)
			admin.POST("/products/upload", middleware.UploadRateLimit(), productHandler.UploadProductImage)

			admin.GET("/orders", adminHandler.GetOrders)
			admin.PUT("/orders/:id/status", adminHandler.UpdateOrderStatus)
			admin.POST("/orders/:id/refund", adminHandler.RefundOrder)

			admin.GET("/users", adminHandler.GetUsers)
			admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)
		}
	}

	return r
}
