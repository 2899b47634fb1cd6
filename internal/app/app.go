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
	"github.com/redis/go-redis/v9"

	"github.com/velora/search-service/internal/cache"
	"github.com/velora/search-service/internal/config"
	"github.com/velora/search-service/internal/correction"
	"github.com/velora/search-service/internal/engine"
	esengine "github.com/velora/search-service/internal/engine/elasticsearch"
	pgengine "github.com/velora/search-service/internal/engine/postgres"
	"github.com/velora/search-service/internal/event"
	"github.com/velora/search-service/internal/facet"
	handler "github.com/velora/search-service/internal/handler/http"
	"github.com/velora/search-service/internal/personalization"
	"github.com/velora/search-service/internal/ranking"
	pgrepo "github.com/velora/search-service/internal/repository/postgres"
	"github.com/velora/search-service/internal/service"
	"github.com/velora/search-service/pkg/database"
	"github.com/velora/search-service/pkg/health"
	pkgkafka "github.com/velora/search-service/pkg/kafka"
)

// App holds the running components of the search service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	consumers  []*pkgkafka.Consumer
	httpServer *http.Server
}

// NewApp initializes every dependency: the catalog store with migrations, the
// cache, the search backends, the service layer, Kafka consumers and the HTTP
// server.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Catalog store.
	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSLMode,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, pgrepo.Migrations(), logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Cache.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := cache.NewRedisStore(redisClient)
	if err := store.Ping(ctx); err != nil {
		logger.Warn("redis unreachable at startup, cache degrades to compute",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
	}

	// Repositories.
	catalogRepo := pgrepo.NewCatalogRepository(pool)
	vocabRepo := pgrepo.NewVocabularyRepository(pool)
	behaviorRepo := pgrepo.NewBehaviorRepository(pool)
	prefRepo := pgrepo.NewPreferenceRepository(pool)

	rankCfg := ranking.Config{
		FeaturedBoost: cfg.FeaturedBoost,
		InStockBoost:  cfg.InStockBoost,
		RatingBoost:   cfg.RatingBoost,
	}

	// Backends. Postgres is always the primary; Elasticsearch is optional
	// and guarded by a circuit breaker in the orchestrator.
	primary := pgengine.New(catalogRepo, rankCfg, pool.Ping)

	var external engine.Backend
	var esEng *esengine.Engine
	if cfg.ElasticsearchURL != "" {
		esEng, err = esengine.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, rankCfg, logger)
		if err != nil {
			// The primary backend carries the service; the external index
			// is an optimization.
			logger.Warn("elasticsearch backend unavailable, continuing with primary only",
				slog.String("url", cfg.ElasticsearchURL),
				slog.String("error", err.Error()),
			)
		} else {
			external = esEng
			logger.Info("elasticsearch backend initialized",
				slog.String("url", cfg.ElasticsearchURL),
				slog.String("index", cfg.ElasticsearchIndex),
			)
		}
	}

	// Service layer.
	facets := facet.New(catalogRepo, store, cfg.FacetsTTL(), logger)
	corrector := correction.New(vocabRepo, store, correction.Config{
		CorrectionThreshold: cfg.CorrectionThreshold,
		SuggestThreshold:    cfg.AutocompleteThreshold,
		CacheTTL:            cfg.CorrectionTTL(),
	}, logger)
	prefModel := personalization.New(behaviorRepo, prefRepo, store, personalization.Config{
		PurchasesWeight:      cfg.PurchasesWeight,
		SearchesWeight:       cfg.SearchesWeight,
		ViewsWeight:          cfg.ViewsWeight,
		CategoryBoostPercent: cfg.CategoryBoostPercent,
		BrandBoostPercent:    cfg.BrandBoostPercent,
		MinInteractions:      cfg.MinInteractions,
		CacheTTL:             cfg.PreferencesTTL(),
	}, logger)

	searchService := service.NewSearchService(
		primary, external,
		ranking.New(rankCfg),
		facets, corrector, prefModel, store,
		service.Config{
			SearchTTL:              cfg.SearchResultsTTL(),
			PrimaryTimeout:         cfg.PrimarySearchTimeout,
			FacetsTimeout:          cfg.FacetsTimeout,
			CorrectionTimeout:      cfg.CorrectionTimeout,
			PersonalizationTimeout: cfg.PersonalizationTimeout,
			CategoryBoostPercent:   cfg.CategoryBoostPercent,
			BrandBoostPercent:      cfg.BrandBoostPercent,
		},
		logger,
	)

	var indexers []engine.Indexer
	if esEng != nil {
		indexers = append(indexers, esEng)
		searchService = searchService.WithSuggester(esEng)
	}
	indexService := service.NewIndexService(indexers, store, logger)

	// Kafka consumers for catalog events.
	eventConsumer := event.NewConsumer(indexService, logger)
	topics := []string{
		event.TopicProductCreated,
		event.TopicProductUpdated,
		event.TopicProductDeleted,
	}
	var consumers []*pkgkafka.Consumer
	for _, topic := range topics {
		consumers = append(consumers, pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  "search-service",
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, eventConsumer.Handle, logger))
	}
	logger.Info("kafka consumers initialized",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.Int("topic_count", len(topics)),
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", pool.Ping)
	healthHandler.Register("redis", store.Ping)
	if esEng != nil {
		healthHandler.Register("elasticsearch", esEng.Ping)
	}
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	router := handler.NewRouter(searchService, indexService, prefModel, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		consumers:  consumers,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
