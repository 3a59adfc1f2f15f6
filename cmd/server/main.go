package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"favorx-backend-go/internal/api"
	"favorx-backend-go/internal/config"
	"favorx-backend-go/internal/core"
	"favorx-backend-go/internal/db"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/metrics"
	"favorx-backend-go/internal/middleware"
	"favorx-backend-go/internal/notify"
	"favorx-backend-go/pkg/cache"
	"favorx-backend-go/pkg/database"
	"favorx-backend-go/pkg/messagequeue"
)

func main() {
	// --- 1. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	// --- 2. Initialize Logger (Zap) ---
	var zapLogger *zap.Logger
	if appConfig.IsRelease() {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Application configuration loaded successfully.", zap.String("backend", appConfig.Backend))

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// --- 3. Document store and auth provider ---
	initCtx, cancelInitCtx := context.WithTimeout(rootCtx, 15*time.Second)
	defer cancelInitCtx()

	var (
		store    database.DocumentStore
		provider identity.Provider
		clients  *db.Clients
	)
	switch appConfig.Backend {
	case config.BackendMemory:
		zapLogger.Warn("Using the in-memory backend; data is lost on restart.")
		store = database.NewMemoryStore()
		provider = identity.NewMemoryProvider()
	default:
		clients, err = db.NewClients(initCtx, appConfig, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase clients", zap.Error(err))
		}
		defer clients.Close()

		store, err = database.NewFirestoreService(clients.Firestore, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firestore store", zap.Error(err))
		}
		provider, err = identity.NewFirebaseProvider(initCtx, clients.Auth, appConfig.FirebaseWebAPIKey, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize auth provider", zap.Error(err))
		}
	}

	// --- 4. Initialize Repositories ---
	backend := db.NewBackend(store, zapLogger)
	userRepo := db.NewUserRepository(backend)
	requestRepo := db.NewRequestRepository(backend)
	orphanRepo := db.NewOrphanRepository(backend)
	zapLogger.Info("Repositories initialized successfully.")

	// --- 5. Notifications and cache ---
	notifier, queue := newNotifier(appConfig, clients, userRepo, zapLogger)
	if queue != nil {
		defer queue.Close()
	}
	dispatcher := notify.NewDispatcher(notifier, zapLogger)

	resourceCache := newCache(initCtx, appConfig, zapLogger)
	defer resourceCache.Close()

	// --- 6. Initialize Services ---
	ledgerService := core.NewLedgerService(db.NewLedgerRepository(backend), zapLogger)
	reader := core.NewReader(backend, userRepo, requestRepo, provider, zapLogger)
	lifecycle := core.NewLifecycleService(requestRepo, backend, ledgerService, dispatcher, zapLogger)
	validator := core.NewValidator(userRepo, zapLogger)
	writer := core.NewWriter(core.WriterDeps{
		Backend:   backend,
		Users:     userRepo,
		Requests:  requestRepo,
		Orphans:   orphanRepo,
		Provider:  provider,
		Validator: validator,
		Lifecycle: lifecycle,
		Ledger:    ledgerService,
		Reader:    reader,
	}, core.WriterSettings{
		SignupBonus:          appConfig.SignupBonus,
		MaxProfileImageBytes: appConfig.MaxProfileImageBytes,
	}, zapLogger)
	billingService := core.NewBillingService(backend, userRepo, ledgerService, appConfig.SubscriptionCode, zapLogger)
	watchService := core.NewWatchService(backend, zapLogger)
	resourceService := core.NewResourceService(db.NewResourceRepository(backend), resourceCache, appConfig.ResourceCacheTTL, zapLogger)
	zapLogger.Info("Core services initialized successfully.")

	reconciler := core.NewReconciler(orphanRepo, provider, zapLogger)
	if err := reconciler.Start(appConfig.ReconcileSchedule); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to start reconciler", zap.Error(err))
	}

	limiter := middleware.NewRateLimiter(appConfig.RateLimitRPS, appConfig.RateLimitBurst, zapLogger)
	limiter.StartCleanup(rootCtx, 5*time.Minute)

	// --- 7. Setup Gin HTTP Engine ---
	if appConfig.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	// --- 8. Apply Global Middleware (Order is important) ---
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig))
	router.Use(metrics.GinMiddleware())
	if appConfig.ClientURL == "" {
		zapLogger.Warn("CLIENT_URL is not configured; CORS accepts any origin.")
	}

	// --- 9. Setup API Routes ---
	api.SetupRoutes(router, appConfig, zapLogger, api.Services{
		Provider:  provider,
		Reader:    reader,
		Writer:    writer,
		Validator: validator,
		Billing:   billingService,
		Ledger:    ledgerService,
		Watch:     watchService,
		Resources: resourceService,
		Limiter:   limiter,
	})

	// --- 10. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Request contexts derive from rootCtx so that hijacked websocket
		// connections end when it is cancelled.
		BaseContext: func(net.Listener) context.Context { return rootCtx },
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 11. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
	}
	// Shutdown does not wait for websockets; cancelling rootCtx ends them.
	stopBackground()
	reconciler.Stop(shutdownCtx)
	dispatcher.Wait()

	zapLogger.Info("Server exiting gracefully.")
}

// newNotifier picks the delivery channel for request notifications. The
// returned queue, when not nil, must be closed by the caller.
func newNotifier(appConfig *config.Config, clients *db.Clients, users db.UserRepository, logger *zap.Logger) (notify.Notifier, messagequeue.MessageQueue) {
	switch appConfig.Notifier {
	case config.NotifierFCM:
		if clients == nil || clients.Messaging == nil {
			logger.Warn("FCM notifier requires the firestore backend; falling back to log notifier")
			return notify.NewLogNotifier(logger), nil
		}
		return notify.NewFCMNotifier(clients.Messaging, users, logger), nil
	case config.NotifierAMQP:
		queue, err := messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{URL: appConfig.AMQPURL}, logger)
		if err != nil {
			logger.Fatal("CRITICAL_ERROR: Failed to connect to RabbitMQ", zap.Error(err))
		}
		return notify.NewQueueNotifier(queue, appConfig.AMQPQueue, logger), queue
	default:
		return notify.NewLogNotifier(logger), nil
	}
}

// newCache returns a Redis cache when REDIS_ADDR is set, otherwise an in-process one.
func newCache(ctx context.Context, appConfig *config.Config, logger *zap.Logger) cache.Cache {
	if appConfig.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set; using in-process resource cache")
		return cache.NewMemoryCache(cache.DefaultMemoryCacheSize, appConfig.ResourceCacheTTL)
	}
	redisCache, err := cache.NewRedisCache(ctx, cache.NewRedisCacheConfig{
		Address:  appConfig.RedisAddr,
		Password: appConfig.RedisPassword,
		DB:       appConfig.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn("Redis unavailable; using in-process resource cache", zap.Error(err))
		return cache.NewMemoryCache(cache.DefaultMemoryCacheSize, appConfig.ResourceCacheTTL)
	}
	return redisCache
}
