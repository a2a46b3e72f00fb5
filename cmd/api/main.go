package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mugz-josh/Deliverieseasy/internal/api/handlers"
	"github.com/mugz-josh/Deliverieseasy/internal/api/middleware"
	"github.com/mugz-josh/Deliverieseasy/internal/api/routes"
	"github.com/mugz-josh/Deliverieseasy/internal/config"
	"github.com/mugz-josh/Deliverieseasy/internal/repository"
	"github.com/mugz-josh/Deliverieseasy/internal/service/delivery"
	"github.com/mugz-josh/Deliverieseasy/internal/service/notification"
	"github.com/mugz-josh/Deliverieseasy/pkg/cache"
	"github.com/mugz-josh/Deliverieseasy/pkg/database"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
	"github.com/mugz-josh/Deliverieseasy/pkg/monitoring"
	"github.com/mugz-josh/Deliverieseasy/pkg/websocket"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
)

const poolStatsInterval = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Deliveries API",
		logger.String("env", cfg.Server.Env),
		logger.String("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize New Relic
	nrApp, err := monitoring.New(monitoring.Config{
		LicenseKey: cfg.NewRelic.LicenseKey,
		AppName:    cfg.NewRelic.AppName,
		Enabled:    cfg.NewRelic.Enabled,
	})
	if err != nil {
		appLogger.Warn("Failed to initialize New Relic", logger.Err(err))
	} else if nrApp.IsEnabled() {
		appLogger.Info("New Relic APM initialized successfully",
			logger.String("app_name", cfg.NewRelic.AppName))
	} else {
		appLogger.Info("New Relic APM disabled")
	}
	defer nrApp.Shutdown(10 * time.Second)

	// Open the database and bring the schema up to date
	db, err := database.Open(ctx, database.Config{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.MaxLifetime,
		BusyTimeout:     cfg.Database.BusyTimeout,
	})
	if err != nil {
		appLogger.Fatal("Failed to connect to database", logger.Err(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx, appLogger); err != nil {
		appLogger.Fatal("Failed to apply migrations", logger.Err(err))
	}
	appLogger.Info("Connected to database successfully",
		logger.String("driver", db.Dialect().Name()))

	// Redis is optional: it backs idempotency keys and shared rate limits
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cache.Config{
			URL:         cfg.Redis.URL,
			MaxRetries:  cfg.Redis.MaxRetries,
			PoolSize:    cfg.Redis.PoolSize,
			MinIdleConn: cfg.Redis.MinIdleConn,
			DialTimeout: cfg.Redis.DialTimeout,
			ReadTimeout: cfg.Redis.ReadTimeout,
		})
		if err != nil {
			appLogger.Warn("Redis unavailable, continuing without it", logger.Err(err))
			redisClient = nil
		} else {
			appLogger.Info("Connected to Redis successfully")
			defer cache.Close(redisClient)
		}
	}

	// Confirmation emails
	var notifier notification.Notifier = notification.NopNotifier{}
	emailCfg := notification.Config{
		Host:       cfg.Email.SMTPHost,
		Port:       cfg.Email.SMTPPort,
		Username:   cfg.Email.User,
		Password:   cfg.Email.Password,
		FromName:   cfg.Email.FromName,
		AdminEmail: cfg.Email.AdminEmail,
		Timeout:    cfg.Email.Timeout,
	}
	if emailCfg.Enabled() {
		notifier = notification.NewSMTPNotifier(emailCfg)
	} else {
		appLogger.Warn("Email configuration not set, confirmation emails disabled")
	}

	svc := delivery.NewService(
		repository.NewUserRepository(db),
		repository.NewDeliveryRepository(db),
		notifier,
		appLogger,
		delivery.Config{
			StrictTransitions:   cfg.Features.StrictStatusTransitions,
			NotificationTimeout: cfg.Email.Timeout,
		},
	)
	svc.SetRecorder(nrApp)

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(appLogger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go wsHub.Run(hubCtx)
	if cfg.Features.EnableRealTimeUpdates {
		svc.SetPublisher(handlers.HubPublisher{Hub: wsHub})
	}

	go reportPoolStats(ctx, nrApp, db, redisClient)

	// Initialize handlers with dependencies
	idempotency := cache.NewIdempotencyStore(redisClient, "deliveries:idempotency", cfg.Cache.TTLIdempotency)
	h := handlers.NewHandlers(svc, idempotency, db, wsHub, appLogger, handlers.Options{
		Production:      cfg.Server.IsProduction(),
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
	})

	rateLimit, err := middleware.RateLimit(middleware.RateLimitConfig{
		PerMinute: cfg.RateLimit.GeneralPerMinute,
		Redis:     redisClient,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create rate limiter", logger.Err(err))
	}

	// Initialize Gin router
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	// ClientIP keys the rate limiter, so forwarded headers count only from known proxies
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		appLogger.Fatal("Invalid TRUSTED_PROXIES", logger.Err(err))
	}

	var nrApplication *newrelic.Application
	if nrApp.IsEnabled() {
		nrApplication = nrApp.Application
	}
	routes.SetupRoutes(router, h, appLogger, routes.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
		AllowedHeaders: cfg.CORS.AllowedHeaders,
		RateLimit:      rateLimit,
		NewRelic:       nrApplication,
	})

	appLogger.Info("Routes configured successfully")

	// Create HTTP server
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Server starting", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		appLogger.Error("Server failed", logger.Err(err))
	}

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.Err(err))
	}

	// let queued confirmation emails finish before the pools close
	svc.Wait()
	stopHub()

	appLogger.Info("Server stopped gracefully")
}

// reportPoolStats feeds connection pool gauges to New Relic until ctx ends
func reportPoolStats(ctx context.Context, nr *monitoring.NewRelicApp, db *database.DB, redisClient *redis.Client) {
	if !nr.IsEnabled() {
		return
	}
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			nr.RecordDatabasePoolStats(db.SQL().Stats())
			if redisClient != nil {
				nr.RecordRedisPoolStats(cache.GetClientStats(redisClient))
			}
		}
	}
}
