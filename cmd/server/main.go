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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mizutani/meibo/internal/handlers"
	infracache "github.com/mizutani/meibo/internal/infrastructure/cache"
	"github.com/mizutani/meibo/internal/infrastructure/config"
	"github.com/mizutani/meibo/internal/infrastructure/database"
	"github.com/mizutani/meibo/internal/infrastructure/metrics"
	"github.com/mizutani/meibo/internal/repositories/postgres"
	"github.com/mizutani/meibo/internal/services"
	"github.com/mizutani/meibo/internal/services/validation"
	"github.com/mizutani/meibo/pkg/cache/memorycache"
)

const defaultEnv = "dev"

func main() {
	// Get environment from ENV variable or use default
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	// Initialize configuration
	if err := config.InitConfig(env); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Connect to database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pg.Close()

	logger.Info("connected to database",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Database))

	// Initialize repositories
	schemaRepo := postgres.NewPostgresSchemaRepository(pg.DB)
	recordRepo := postgres.NewPostgresRecordRepository(pg.DB)

	// Initialize services
	celEngine, err := validation.NewCELEngine()
	if err != nil {
		logger.Fatal("failed to create CEL engine", zap.Error(err))
	}
	schemaService := services.NewSchemaService(schemaRepo, celEngine)
	validator := validation.NewRecordValidator(celEngine)

	var recordService services.RecordServiceInterface
	var watcher *infracache.SchemaWatcher
	collector := metrics.NewCollector()

	if cfg.Cache.Enabled {
		schemaCache, err := memorycache.New(&memorycache.Config{
			MaxSizeBytes:  cfg.Cache.MaxMemoryBytes,
			DefaultTTL:    time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
			EnableMetrics: cfg.Cache.Metrics,
		})
		if err != nil {
			logger.Fatal("failed to create schema cache", zap.Error(err))
		}
		collector.SetCache(schemaCache)

		recordService = services.NewRecordServiceWithCache(
			schemaService,
			recordRepo,
			validator,
			schemaCache,
			time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
		)

		// Invalidate cached schemas when another instance writes a new version
		watcher = infracache.NewSchemaWatcher(schemaCache, cfg.Database.ConnectionString(), logger)
		if err := watcher.Start(context.Background()); err != nil {
			logger.Fatal("failed to start schema watcher", zap.Error(err))
		}
		defer watcher.Stop()

		logger.Info("schema cache enabled",
			zap.Int64("max_memory_bytes", cfg.Cache.MaxMemoryBytes),
			zap.Int("ttl_minutes", cfg.Cache.TTLMinutes))
	} else {
		recordService = services.NewRecordService(schemaService, recordRepo, validator)
	}

	// Initialize HTTP handlers and router
	exporter := metrics.NewPrometheusExporter(collector)
	router := handlers.NewRouter(
		handlers.NewSchemaHandlers(schemaService, logger),
		handlers.NewRecordHandlers(recordService, logger),
		collector,
		exporter,
		pg.HealthCheck,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Serve Prometheus metrics on a separate port
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	// Periodically refresh exported gauges from the collector
	updateTicker := time.NewTicker(10 * time.Second)
	defer updateTicker.Stop()
	go func() {
		for range updateTicker.C {
			exporter.Update()
		}
	}()

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		logger.Fatal("server error", zap.Error(err))
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown timeout exceeded, forcing stop", zap.Error(err))
			server.Close()
		}
		metricsServer.Shutdown(shutdownCtx)

		if watcher != nil {
			if err := watcher.Stop(); err != nil {
				logger.Warn("error stopping schema watcher", zap.Error(err))
			}
		}

		if err := pg.Close(); err != nil {
			logger.Warn("error closing database connection", zap.Error(err))
		}

		logger.Info("shutdown complete")
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
