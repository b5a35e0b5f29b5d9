package main

import (
	"fmt"
	"log"

	"github.com/architect/interactive-content/internal/collector/handlers"
	"github.com/architect/interactive-content/internal/collector/live"
	"github.com/architect/interactive-content/internal/collector/models"
	"github.com/architect/interactive-content/internal/common/database"
	commonHandlers "github.com/architect/interactive-content/internal/common/handlers"
	"github.com/architect/interactive-content/internal/common/health"
	"github.com/architect/interactive-content/internal/common/middleware"
	"github.com/architect/interactive-content/pkg/config"
	"github.com/architect/interactive-content/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database (SQLite for development, PostgreSQL for production)
	if err := database.InitWithType(cfg.Database.Type, cfg.Database.DSN); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(
		&models.ContentProgress{},
		&models.InteractionBatch{},
		&models.ContentLoadEvent{},
		&models.TimeExpiredEvent{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Live dashboard fan-out
	hub := live.NewHub()
	handlers.SetLiveHub(hub)

	// Create Gin engine
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply middleware
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.ErrorHandler())

	// Initialize health checker with database instance
	healthChecker := health.NewHealthChecker(database.GetDB(), "1.0.0")

	// Health check endpoints
	healthHandler := commonHandlers.NewHealthHandler(healthChecker)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/readiness", healthHandler.Readiness)
	router.GET("/health/liveness", healthHandler.Liveness)
	router.GET("/health/metrics", healthHandler.Metrics)

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		trackingGroup := v1.Group("/tracking")
		trackingGroup.Use(middleware.OptionalAuth())
		{
			// Ingest endpoints hit by embedded content; anonymous
			// payloads are accepted.
			trackingGroup.POST("/progress", handlers.SyncProgress)
			trackingGroup.POST("/content-loaded", handlers.ContentLoaded)
			trackingGroup.POST("/time-expired", handlers.TimeExpired)

			// Query endpoints
			trackingGroup.GET("/progress", middleware.AuthRequired(), handlers.GetProgress)
			trackingGroup.GET("/content/:content_id/progress", handlers.ListContentProgress)
			trackingGroup.GET("/content/:content_id/stats", handlers.GetContentStats)

			// Live dashboard feed
			trackingGroup.GET("/live", handlers.LiveFeed)
		}
	}

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Starting collector server", zap.String("address", address))

	if err := router.Run(address); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
