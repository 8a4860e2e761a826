package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prepdeck/testprep-service/internal/cache"
	"github.com/prepdeck/testprep-service/internal/config"
	"github.com/prepdeck/testprep-service/internal/handlers"
	"github.com/prepdeck/testprep-service/internal/reaper"
	"github.com/prepdeck/testprep-service/internal/repositories/postgres"
	"github.com/prepdeck/testprep-service/internal/services"
	"github.com/prepdeck/testprep-service/internal/utils"
	pkgdb "github.com/prepdeck/testprep-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var slogger *slog.Logger
	if cfg.Environment == "development" {
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		slogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	logger := utils.NewSlogLogger(slogger)

	db, err := pkgdb.InitDatabase(cfg)
	if err != nil {
		logger.Error("Database connection failed", "error", err.Error())
		os.Exit(1)
	}
	if err := pkgdb.MigrateDatabase(db); err != nil {
		logger.Error("Database migration failed", "error", err.Error())
		os.Exit(1)
	}

	var cacheService cache.CacheService
	redisClient, err := pkgdb.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, caching disabled", "error", err.Error())
		cacheService = cache.NewNoopCache()
	} else {
		cacheService = cache.NewRedisCache(redisClient, slogger)
		defer redisClient.Close()
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.Error("Event publisher setup failed", "error", err.Error())
		os.Exit(1)
	}
	defer publisher.Close()

	validator := utils.NewValidator()
	repo := postgres.NewRepository(db)

	sessionService := services.NewSessionService(repo, publisher, cacheService, logger, validator)
	responseService := services.NewResponseService(repo, cacheService, logger, validator)
	exportService := services.NewResultExportService(repo, logger)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	var auth gin.HandlerFunc
	if cfg.Auth.ClientID != "" {
		auth = handlers.AuthMiddleware(handlers.NewCasdoorClient(cfg.Auth), logger)
	} else {
		logger.Warn("Casdoor not configured, using static identity")
		auth = handlers.StaticUserMiddleware("local-dev-user")
	}

	handlerManager := handlers.NewHandlerManager(sessionService, responseService, exportService, logger)
	handlerManager.SetupRoutes(router, auth)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idleReaper := reaper.New(sessionService, logger, cfg.SessionIdleTimeout, cfg.ReapInterval)
	go idleReaper.Run(ctx)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped unexpectedly", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err.Error())
	}
	logger.Info("Server stopped")
}
