package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carrental/internal/app"
	"carrental/internal/config"
	"carrental/internal/flutterwave"
	"carrental/internal/handler"
	internalRedis "carrental/internal/redis"
	"carrental/internal/repository/postgres"
	"carrental/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load configuration.
	cfg := config.Load()
	if cfg.Payment.SecretKey == "" {
		logger.Warn("FLW_SECRET_KEY is not set, payment initiation will fail")
	}
	if cfg.Payment.SecretHash == "" {
		logger.Warn("FLW_SECRET_HASH is not set, all webhooks will be rejected")
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, authenticated routes will reject every request")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Error("failed to initialize New Relic", "error", err)
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	// Wire dependencies.
	server, releaser := wireServer(db, redisClient, nrApp, cfg, logger)

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go releaser.Run(runCtx, cfg.Rental.ReleaseInterval)

	// Start server in goroutine.
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// rental release sweeper.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, logger *slog.Logger) (*http.Server, *service.RentalReleaser) {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	var carCache internalRedis.CacheStoreInterface
	if cfg.Cache.CarsTTL > 0 {
		carCache = internalRedis.NewCacheStore(redisClient, cfg.Cache.CarsTTL)
	}

	// Initialize repositories.
	carRepo := postgres.NewCarRepository(db)
	rentalRepo := postgres.NewRentalRepository(db)
	transactor := postgres.NewTransactor(db)

	// Initialize payment gateway.
	gateway := flutterwave.NewClient(nil, cfg.Payment.BaseURL, cfg.Payment.SecretKey, cfg.Payment.Timeout)

	// Initialize services.
	var invalidator service.CacheInvalidator
	if carCache != nil {
		invalidator = carCache
	}
	carService := service.NewCarService(carRepo, invalidator, logger)
	bookingService := service.NewBookingService(carRepo, rentalRepo, gateway, lockStore, service.BookingConfig{
		Currency:    cfg.Payment.Currency,
		RedirectURL: cfg.CallbackURL(),
		LockTTL:     cfg.Rental.LockTTL,
	}, logger)
	confirmationService := service.NewConfirmationService(transactor, rentalRepo, gateway, invalidator, cfg.Payment.Currency, logger)
	releaser := service.NewRentalReleaser(carRepo, invalidator, logger)

	// Initialize handlers.
	carHandler := handler.NewCarHandler(carService)
	rentalHandler := handler.NewRentalHandler(bookingService)
	paymentHandler := handler.NewPaymentHandler(confirmationService, cfg.Payment.SecretHash)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		CarHandler:     carHandler,
		RentalHandler:  rentalHandler,
		PaymentHandler: paymentHandler,
		CarCache:       carCache,
		NewRelicApp:    nrApp,
		AuthSecret:     cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, releaser
}
