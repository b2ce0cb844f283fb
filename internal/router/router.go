// internal/router/router.go
package router

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yecy-cosmetic/store-backend/internal/config"
	"github.com/yecy-cosmetic/store-backend/internal/handlers"
	"github.com/yecy-cosmetic/store-backend/internal/metrics"
	"github.com/yecy-cosmetic/store-backend/internal/middleware"
	"github.com/yecy-cosmetic/store-backend/internal/realtime"
	"github.com/yecy-cosmetic/store-backend/internal/services"
)

const Version = "1.0.0"

// Dependencies are the long-lived collaborators built by main.
type Dependencies struct {
	DB     *gorm.DB
	Config *config.Config
	// Hub serves the SSE stream; Pusher is what notifications are sent
	// through and normally includes Hub.
	Hub    *realtime.Hub
	Pusher realtime.Pusher
	Store  services.DocumentStore
}

// Initialize wires services and handlers. ctx bounds the rate limiter
// janitors.
func Initialize(ctx context.Context, deps Dependencies) *gin.Engine {
	db, cfg := deps.DB, deps.Config
	lang := cfg.I18n.DefaultLocale

	// Initialize services
	notificationService := services.NewNotificationService(db, deps.Pusher)
	invoiceService := services.NewInvoiceService(db,
		services.NewHTMLInvoiceRenderer("Yecy Cosmetic"),
		deps.Store,
		cfg.Storage.InvoicePrefix,
		cfg.Checkout.InvoiceRetries,
	)
	authService := services.NewAuthService(db, cfg)
	userService := services.NewUserService(db)
	productService := services.NewProductService(db)
	cartService := services.NewCartService(db)
	checkoutService := services.NewCheckoutService(db, invoiceService, notificationService, cfg.Checkout, lang)
	orderService := services.NewOrderService(db, invoiceService, notificationService, lang)
	adminService := services.NewAdminService(db)
	communityService := services.NewCommunityService(db, notificationService, lang)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, deps.Hub, Version)
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	orderHandler := handlers.NewOrderHandler(orderService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, deps.Hub)
	adminHandler := handlers.NewAdminHandler(adminService)
	communityHandler := handlers.NewCommunityHandler(communityService)

	limiters := middleware.NewRateLimiters(ctx)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.PrometheusMiddleware())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	v1.Use(limiters.General.Middleware())
	v1.Use(middleware.AuditLogMiddleware(db))
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", limiters.Auth.Middleware(), userHandler.Register)
			auth.POST("/login", limiters.Auth.Middleware(), authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
			auth.POST("/change-password", middleware.AuthRequired(), userHandler.ChangePassword)
			auth.POST("/recover", limiters.Auth.Middleware(), userHandler.RecoverPassword)
			auth.POST("/reset-password", limiters.Auth.Middleware(), userHandler.ResetPassword)
		}

		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.PUT("/me", userHandler.UpdateProfile)
			users.DELETE("/me", userHandler.DeactivateAccount)
			users.GET("/me/likes", communityHandler.LikedProducts)
		}

		// Catalog (public)
		v1.GET("/categories", productHandler.GetCategories)
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/featured", productHandler.GetFeaturedProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/stats", communityHandler.ProductStats)
			products.PUT("/:id/rating", middleware.AuthRequired(), communityHandler.RateProduct)
			products.DELETE("/:id/rating", middleware.AuthRequired(), communityHandler.DeleteRating)
			products.POST("/:id/like", middleware.AuthRequired(), communityHandler.ToggleProductLike)
		}

		// Forum: reading is public, writing needs an account
		v1.GET("/comments", communityHandler.ListComments)
		comments := v1.Group("/comments")
		comments.Use(middleware.AuthRequired())
		{
			comments.POST("", communityHandler.CreateComment)
			comments.PUT("/:id", communityHandler.UpdateComment)
			comments.DELETE("/:id", communityHandler.DeleteComment)
			comments.POST("/:id/like", communityHandler.ToggleCommentLike)
		}

		cart := v1.Group("/cart")
		cart.Use(middleware.AuthRequired())
		{
			cart.GET("", cartHandler.GetCart)
			cart.POST("", cartHandler.AddItem)
			cart.DELETE("", cartHandler.RemoveItem)
			cart.POST("/migrate", cartHandler.Migrate)
			cart.POST("/clear", cartHandler.Clear)
		}

		v1.POST("/checkout", middleware.AuthRequired(), limiters.Checkout.PerUser(), checkoutHandler.Checkout)

		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
			orders.GET("/:id/invoice", orderHandler.Invoice)
			orders.DELETE("/:id", orderHandler.Cancel)
		}

		// The stream is registered outside the authenticated group so that
		// the token can also come from the query string.
		v1.GET("/notifications/stream", middleware.StreamAuthRequired(), notificationHandler.Stream)
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.PATCH("/read-all", notificationHandler.MarkAllRead)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
			notifications.DELETE("/:id", notificationHandler.Delete)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/orders", adminHandler.GetOrders)
			admin.POST("/orders", limiters.Checkout.PerUser(), checkoutHandler.PlaceAdminOrder)
			admin.PUT("/orders/:id/status", orderHandler.UpdateStatus)
			admin.GET("/users", adminHandler.GetUsers)
			admin.PUT("/users/:id/status", adminHandler.UpdateUserStatus)
			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
		}
	}

	return r
}
