package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	_ "github.com/ridwanfathin/edge-transaction-service/docs"
	"github.com/ridwanfathin/edge-transaction-service/internal/aggregator"
	"github.com/ridwanfathin/edge-transaction-service/internal/classifier"
	"github.com/ridwanfathin/edge-transaction-service/internal/config"
	"github.com/ridwanfathin/edge-transaction-service/internal/database"
	"github.com/ridwanfathin/edge-transaction-service/internal/detection"
	"github.com/ridwanfathin/edge-transaction-service/internal/handler"
	"github.com/ridwanfathin/edge-transaction-service/internal/logger"
	"github.com/ridwanfathin/edge-transaction-service/internal/repository"
	"github.com/ridwanfathin/edge-transaction-service/internal/rollup"
	"github.com/ridwanfathin/edge-transaction-service/internal/server"
	"github.com/ridwanfathin/edge-transaction-service/internal/service"
	"github.com/ridwanfathin/edge-transaction-service/internal/units"
	"github.com/ridwanfathin/edge-transaction-service/internal/validation"
)

// @title Edge Transaction Service API
// @version 1.0
// @description Ingestion, classification and analytics for transactions captured by in-store edge devices.
// @BasePath /
func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	log := logger.New(cfg.LogFormat, cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	// Initialize storage
	log.Info().Str("backend", cfg.StorageBackend).Msg("initializing storage")
	var (
		repo    repository.Store
		storage server.Pinger
	)
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		db, err := database.NewPostgresDB(ctx, cfg.PostgresURL, int32(cfg.PostgresMaxConns))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		repo = repository.NewPostgresTransactionRepository(db.GetPool())
		storage = db
	default:
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		repo = repository.NewMemoryRepository()
	}

	// Build the classification pipeline
	bands, err := aggregator.ParsePriceBands(cfg.AnomalyPriceBands)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ANOMALY_PRICE_BANDS")
	}
	cls := classifier.New()
	normalizer := units.NewNormalizer(nil).WithProductWords(cls.IsProductWord)
	agg := aggregator.New(aggregator.AnomalyPolicy{UnitPriceBands: bands}, nil)
	merger := detection.NewMerger(detection.MergerConfig{
		ProximityThreshold: cfg.MergeProximity,
		MinShapeArea:       cfg.MinShapeArea,
	}, normalizer, cls)

	transactionService := service.NewTransactionService(
		repo,
		validation.New(),
		agg,
		rollup.NewEngine(cfg.Location()),
		detection.NewAssembler(merger, cls, agg),
		service.Options{
			Retry: service.RetryConfig{
				MaxAttempts:  cfg.RollupMaxAttempts,
				InitialDelay: cfg.RollupRetryDelay,
				MaxDelay:     service.MaxRetryDelay,
				Multiplier:   2,
			},
			MaxWorkers:       cfg.MaxWorkers,
			TopCategoryLimit: cfg.TopCategoryLimit,
		},
	)

	// Create and configure server
	appServer := server.NewServer(cfg, log, storage)
	router := appServer.GetRouter()

	handler.NewTransactionHandler(transactionService).RegisterRoutes(router, appServer.IngestLimiter())
	handler.NewAnalyticsHandler(transactionService).RegisterRoutes(router)
	handler.NewStoreHandler(transactionService).RegisterRoutes(router)

	logStartup(log, cfg)

	// Start server (blocking call)
	if err := appServer.Start(); err != nil {
		log.Error().Err(err).Msg("server error")
		return
	}
}

func logStartup(log zerolog.Logger, cfg *config.Config) {
	log.Info().
		Int("port", cfg.Port).
		Str("storage", cfg.StorageBackend).
		Int("max_workers", cfg.MaxWorkers).
		Float64("ingest_rate_per_sec", cfg.IngestRatePerSec).
		Str("rollup_timezone", cfg.RollupTimezone).
		Bool("swagger", cfg.SwaggerEnabled).
		Msg("starting edge transaction service")
}
