package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/richyrich98/dotanddot/internal/api"
	"github.com/richyrich98/dotanddot/internal/config"
	"github.com/richyrich98/dotanddot/internal/feed"
	"github.com/richyrich98/dotanddot/internal/identity"
	"github.com/richyrich98/dotanddot/internal/migration"
	"github.com/richyrich98/dotanddot/internal/path"
	"github.com/richyrich98/dotanddot/internal/ratelimit"
	"github.com/richyrich98/dotanddot/internal/report"
	"github.com/richyrich98/dotanddot/internal/storage"
	"github.com/richyrich98/dotanddot/pkg/logger"
	"github.com/richyrich98/dotanddot/pkg/validator"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewLogger(cfg.Env)
	appLogger.Info("Starting dotanddot server...")

	// Initialize Redis
	redisClient, err := storage.NewRedisClient(cfg)
	if err != nil {
		appLogger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", "address", cfg.RedisAddr())

	// Initialize Postgres
	pgClient, err := storage.NewPostgresClient(cfg.PostgresConnString())
	if err != nil {
		appLogger.Error("Failed to connect to Postgres", "error", err)
		os.Exit(1)
	}
	defer pgClient.Close()
	appLogger.Info("Connected to Postgres", "database", cfg.Postgres.Database)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize validator
	val := validator.NewValidator()

	// Initialize feed hub
	hub := feed.NewHub(ctx, redisClient, appLogger)
	go hub.Run()
	feedHandler := feed.NewHandler(hub, appLogger)

	// Initialize services
	identityService := identity.NewService(redisClient, time.Duration(cfg.Session.TTLMinutes)*time.Minute)
	pathService := path.NewService(pgClient, val)
	reportService := report.NewService(pgClient, val, hub, cfg.Geo.GeohashPrecision)
	migrationService := migration.NewService(
		identityService,
		migration.NewRedisCache(redisClient),
		pathService,
		reportService,
		appLogger,
	)

	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit)
	rateLimitMiddleware := ratelimit.NewMiddleware(rateLimiter)

	// Initialize API handler
	apiHandler := api.NewHandler(
		pathService,
		reportService,
		migrationService,
		identityService,
		rateLimiter,
		appLogger,
	)

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		appLogger.Info("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", duration,
			"ip", c.ClientIP(),
		)
	})

	// Setup routes
	api.SetupRoutes(router, apiHandler, feedHandler, rateLimitMiddleware, identityService, appLogger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("Server starting", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Cancel context to stop the feed hub
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server stopped")
}
