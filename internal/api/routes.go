package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"favorx-backend-go/internal/config"
	"favorx-backend-go/internal/core"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/metrics"
	"favorx-backend-go/internal/middleware"
)

// Services bundles what the handlers need. Every field is required.
type Services struct {
	Provider  identity.Provider
	Reader    core.ReadService
	Writer    core.WriteService
	Validator *core.Validator
	Billing   core.BillingService
	Ledger    core.LedgerService
	Watch     core.WatchService
	Resources core.ResourceService
	// Limiter throttles every /api/v1 route. Optional.
	Limiter *middleware.RateLimiter
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (request logging, recovery, CORS, metrics) is expected to be
// applied to router before this is called.
func SetupRoutes(router *gin.Engine, appConfig *config.Config, logger *zap.Logger, svc Services) {
	if svc.Provider == nil || svc.Reader == nil || svc.Writer == nil || svc.Validator == nil ||
		svc.Billing == nil || svc.Ledger == nil || svc.Watch == nil || svc.Resources == nil {
		logger.Fatal("CRITICAL_SETUP_ERROR: route dependencies are not initialized", zap.Error(core.ErrServiceNotInitialized))
	}

	authMW := middleware.NewAuthMiddleware(svc.Provider, logger)

	authHandler := NewAuthHandler(svc.Reader, svc.Writer, svc.Validator, logger)
	userHandler := NewUserHandler(svc.Reader, svc.Writer, svc.Ledger, logger)
	requestHandler := NewRequestHandler(svc.Reader, svc.Writer, logger)
	billingHandler := NewBillingHandler(svc.Billing, logger)
	resourceHandler := NewResourceHandler(svc.Resources, logger)
	watchHandler := NewWatchHandler(svc.Watch, appConfig.ClientURL, logger)

	throttle := func(c *gin.Context) { c.Next() }
	if svc.Limiter != nil {
		throttle = svc.Limiter.Handler()
	}

	apiV1 := router.Group("/api/v1")
	{
		// Sign-up and sign-in are public and throttled per client IP.
		authGroup := apiV1.Group("/auth", throttle)
		{
			authGroup.POST("/signup", authHandler.SignUp)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/federated", authHandler.Federated)
			authGroup.POST("/validate", authHandler.Validate)
		}

		// Everything else requires a verified ID token and is throttled per user.
		protected := apiV1.Group("", authMW.VerifyToken(), throttle)

		usersGroup := protected.Group("/users")
		{
			usersGroup.GET("/me", userHandler.GetCurrentUserProfile)
			usersGroup.GET("/me/coins", userHandler.GetCoins)
			usersGroup.GET("/me/transactions", userHandler.GetTransactions)
			usersGroup.POST("/me/profile-image", userHandler.UploadProfileImage)
			usersGroup.POST("/me/push-token", userHandler.RegisterPushToken)
			usersGroup.POST("/me/transfer", userHandler.TransferCoins)
			usersGroup.GET("/:uid", userHandler.GetUser)
		}

		requestsGroup := protected.Group("/requests")
		{
			requestsGroup.GET("/open", requestHandler.ListOpen)
			requestsGroup.GET("/mine", requestHandler.ListMine)
			requestsGroup.GET("/mine/active", requestHandler.ListMineActive)
			requestsGroup.GET("/taken", requestHandler.ListTaken)
			requestsGroup.POST("", requestHandler.Create)
			requestsGroup.GET("/:id", requestHandler.Get)
			requestsGroup.POST("/:id/status", requestHandler.ChangeStatus)
			requestsGroup.POST("/:id/caught", requestHandler.SetCaught)
		}

		billingGroup := protected.Group("/billing")
		{
			billingGroup.POST("/purchase", billingHandler.PurchaseCoins)
			billingGroup.POST("/subscribe", billingHandler.Subscribe)
			billingGroup.POST("/unsubscribe", billingHandler.Unsubscribe)
		}

		protected.GET("/resources/:id", resourceHandler.GetImage)

		wsGroup := protected.Group("/ws")
		{
			wsGroup.GET("/balance", watchHandler.Balance)
			wsGroup.GET("/requests/mine", watchHandler.OwnRequests)
			wsGroup.GET("/requests/open", watchHandler.OpenRequests)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "FavorX backend is healthy."})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("API routes configured successfully under /api/v1, /health and /metrics.")
}
