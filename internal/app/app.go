// Package app wires together all dependencies and runs the search service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/abdulsami0103-cmd/MenonTrucks/internal/cache"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/config"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine"
	esengine "github.com/abdulsami0103-cmd/MenonTrucks/internal/engine/elasticsearch"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/engine/memory"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/event"
	handler "github.com/abdulsami0103-cmd/MenonTrucks/internal/handler/http"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/repository/postgres"
	"github.com/abdulsami0103-cmd/MenonTrucks/internal/service"
	"github.com/abdulsami0103-cmd/MenonTrucks/pkg/database"
	"github.com/abdulsami0103-cmd/MenonTrucks/pkg/health"
	pkgkafka "github.com/abdulsami0103-cmd/MenonTrucks/pkg/kafka"
	"github.com/abdulsami0103-cmd/MenonTrucks/pkg/tracing"
)

// idempotencyTTL bounds how long processed event IDs are remembered.
const idempotencyTTL = 24 * time.Hour

// App wires together all dependencies and runs the search service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	redisClient     *redis.Client
	producer        *pkgkafka.Producer
	dlq             *pkgkafka.DLQProducer
	consumers       []*pkgkafka.Consumer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Tracing.
	tracingCfg := tracing.DefaultConfig("search-service")
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingCfg.Enabled = cfg.OTELEndpoint != ""

	tracingShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	database.SetSlowQueryLogging(200*time.Millisecond, logger)

	// Search engine.
	var eng engine.SearchEngine
	var esEng *esengine.Engine
	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		esEng, err = esengine.New(cfg.ElasticsearchURL, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		if err := esEng.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("ensure search index: %w", err)
		}
		eng = esEng
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
		)
	default:
		eng = memory.New()
		logger.Info("in-memory search engine initialized")
	}

	// Redis-backed cache.
	redisClient, err := database.NewRedisClient(ctx, cfg.RedisConfig())
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	searchCache := cache.New(cache.NewRedisStore(redisClient), logger)

	// PostgreSQL record store.
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	prometheus.MustRegister(database.NewPoolStatsCollector(pool, "search"))

	listingRepo := postgres.NewListingRepository(pool, logger)

	// Kafka producer for completion events.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)

	// Service layer.
	searchService := service.NewSearchService(eng, searchCache, logger)
	syncService := service.NewSyncService(listingRepo, eng, searchCache, producer, logger)

	// Kafka consumers, one per topic, sharing the idempotency store and DLQ.
	eventConsumer := event.NewConsumer(syncService, logger)
	idempotency := pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)

	var consumers []*pkgkafka.Consumer
	for _, topic := range event.Topics() {
		consumerCfg := pkgkafka.DefaultConsumerConfig(cfg.KafkaBrokers, topic, cfg.KafkaGroupID)
		consumers = append(consumers, pkgkafka.NewConsumer(consumerCfg, eventConsumer.Handle, idempotency, dlq, logger))
	}
	logger.Info("kafka consumers initialized",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.Int("topic_count", len(consumers)),
	)

	// Health checks.
	healthHandler := health.NewHandler()
	if esEng != nil {
		healthHandler.Register("elasticsearch", esEng.Ping)
	}
	healthHandler.Register("postgres", pool.Ping)
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	// HTTP server.
	router := handler.NewRouter(searchService, syncService, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		redisClient:     redisClient,
		producer:        producer,
		dlq:             dlq,
		consumers:       consumers,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		go func() {
			if err := c.Run(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.dlq.Close(); err != nil {
		errs = append(errs, err)
	}

	a.pool.Close()

	if err := a.redisClient.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
