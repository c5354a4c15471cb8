package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/survey-match-service/internal/cache"
	"github.com/SAP-F-2025/survey-match-service/internal/config"
	"github.com/SAP-F-2025/survey-match-service/internal/events"
	"github.com/SAP-F-2025/survey-match-service/internal/handlers"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/survey-match-service/internal/services"
	"github.com/SAP-F-2025/survey-match-service/internal/utils"
	"github.com/SAP-F-2025/survey-match-service/internal/validator"
	"github.com/SAP-F-2025/survey-match-service/pkg"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.NewLogger("development", "info").Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment, cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger) error {
	slogger := utils.ToSlogLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, answer keys will not be cached", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	cacheManager := cache.NewCacheManager(redisClient, cfg.AnswerKeyCacheTTL, slogger)
	// Keys cached before a migration may not match the migrated schema
	if cfg.AutoMigrate {
		if err := cacheManager.InvalidateAll(ctx); err != nil {
			logger.Warn("Failed to flush cached answer keys", "error", err)
		}
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.Error("Failed to create event publisher, falling back to mock", "error", err)
		publisher = events.NewMockEventPublisher(slogger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	repo := postgres.NewRepository(db, cacheManager)
	serviceManager := services.NewServiceManager(repo, publisher, slogger, validator.New())
	handlerManager := handlers.NewHandlerManager(serviceManager, handlers.NewCasdoorTokenParser(cfg.Casdoor), logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handlerManager.SetupMiddleware(router, cfg.CORSAllowedOrigins)
	handlerManager.SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"cache_enabled", cacheManager != nil,
			"events_publisher", cfg.Events.Publisher,
			"admin_auth", cfg.Casdoor.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-serveErr
}
