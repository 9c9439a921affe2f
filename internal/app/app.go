package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/AppStoreGo/internal/catalog"
	"github.com/utafrali/AppStoreGo/internal/config"
	"github.com/utafrali/AppStoreGo/internal/event"
	handler "github.com/utafrali/AppStoreGo/internal/handler/http"
	"github.com/utafrali/AppStoreGo/internal/ranking"
	"github.com/utafrali/AppStoreGo/internal/repository"
	"github.com/utafrali/AppStoreGo/internal/repository/memory"
	redisrepo "github.com/utafrali/AppStoreGo/internal/repository/redis"
	"github.com/utafrali/AppStoreGo/internal/service"
	"github.com/utafrali/AppStoreGo/pkg/database"
	"github.com/utafrali/AppStoreGo/pkg/health"
	pkgkafka "github.com/utafrali/AppStoreGo/pkg/kafka"
	"github.com/utafrali/AppStoreGo/pkg/middleware"
	"github.com/utafrali/AppStoreGo/pkg/tracing"
)

// ServiceName names the service in logs, metrics and traces.
const ServiceName = handler.ServiceName

// eventRetention is how long processed event IDs are remembered.
const eventRetention = 24 * time.Hour

// App wires together all dependencies and runs the catalog-search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	source         *Source
	catalog        *catalog.Catalog
	redis          *goredis.Client
	consumer       *pkgkafka.Consumer
	producer       *pkgkafka.Producer
	eventIDs       *pkgkafka.MemoryIdempotencyStore
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = a.closeResources(context.Background())
		}
	}()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Open the catalog source and load the first snapshot. A failed first
	// load is not fatal: the refresh loop keeps trying and readiness stays
	// down until it succeeds.
	a.source, err = OpenSource(ctx, cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return nil, err
	}
	a.catalog = catalog.New(a.source.Repo, logger)
	if err := a.catalog.Refresh(ctx); err != nil {
		logger.Error("initial catalog load failed", slog.String("error", err.Error()))
	}

	// Engagement, purchase and search history stores.
	stores, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	// Ranking core.
	metric, err := ranking.MetricByName(cfg.FuzzyMetric)
	if err != nil {
		return nil, err
	}
	scorer := ranking.NewRelevanceScorer(cfg.Relevance())
	fuzzy := ranking.NewFuzzyMatcher(metric, ranking.DefaultFuzzyWeights())
	recommender := ranking.NewRecommender(ranking.DefaultSimilarityWeights())
	trending := ranking.NewTrendingRanker(ranking.DefaultTrendWeights())

	// Kafka producer for review events. The interface stays nil when
	// events are disabled.
	var publisher pkgkafka.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
	}

	// Build the service layer.
	searchService := service.NewSearchService(a.catalog, scorer, fuzzy, stores.history, logger)
	engagementService := service.NewEngagementService(a.catalog, stores.engagement, stores.purchases, trending, logger)
	recommendationService := service.NewRecommendationService(a.catalog, recommender, stores.purchases, engagementService, logger)
	reviewService := service.NewReviewService(a.catalog, publisher, logger)

	// Kafka consumer for engagement and catalog events.
	if cfg.KafkaEnabled {
		a.consumer = a.newConsumer(event.NewConsumer(a.catalog, engagementService, logger))
		logger.Info("kafka consumer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Int("topic_count", len(event.Topics())),
		)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("catalog", a.catalog.Check)
	if a.source.Check != nil {
		healthHandler.Register(a.source.Name, a.source.Check)
	}
	if a.redis != nil {
		healthHandler.Register("redis", database.RedisPinger(a.redis))
	}
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.Environment = cfg.Environment
	router := handler.NewRouter(handler.Services{
		Catalog:         a.catalog,
		Search:          searchService,
		Engagement:      engagementService,
		Recommendations: recommendationService,
		Reviews:         reviewService,
	}, healthHandler, handler.Options{CORS: cors, RateLimit: cfg.RateLimit()}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ok = true
	return a, nil
}

// stores are the per-event stores selected by ENGAGEMENT_STORE.
type stores struct {
	engagement repository.EngagementStore
	purchases  repository.PurchaseStore
	history    repository.SearchHistory
}

func (a *App) openStores(ctx context.Context) (*stores, error) {
	if a.cfg.EngagementStore != config.StoreRedis {
		a.logger.Info("in-memory engagement store initialized")
		return &stores{
			engagement: memory.NewEngagementStore(),
			purchases:  memory.NewPurchaseStore(),
			history:    memory.NewSearchHistory(),
		}, nil
	}

	client, err := database.NewRedisClient(ctx, a.cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client
	a.logger.Info("connected to Redis", slog.String("addr", a.cfg.Redis().Addr()))
	return &stores{
		engagement: redisrepo.NewEngagementStore(client, a.cfg.EngagementRetention),
		purchases:  redisrepo.NewPurchaseStore(client),
		history:    redisrepo.NewSearchHistory(client),
	}, nil
}

func (a *App) newConsumer(c *event.Consumer) *pkgkafka.Consumer {
	var ids pkgkafka.IdempotencyStore
	if a.redis != nil {
		ids = pkgkafka.NewRedisIdempotencyStore(a.redis, "appstore:events", eventRetention)
	} else {
		a.eventIDs = pkgkafka.NewMemoryIdempotencyStore(eventRetention)
		ids = a.eventIDs
	}

	return pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  a.cfg.KafkaBrokers,
		GroupID:  a.cfg.KafkaGroupID,
		Topics:   event.Topics(),
		MinBytes: 1,
		MaxBytes: 10e6, // 10 MB
	}, pkgkafka.IdempotentHandler(ids, c.Handle, a.logger), a.logger)
}

// Handler returns the HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server, the refresh loop and the Kafka consumer,
// blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go a.catalog.Run(ctx, a.cfg.RefreshInterval)

	if a.eventIDs != nil {
		go a.sweepEventIDs(ctx)
	}

	// Start the Kafka consumer in a background goroutine.
	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	// Start HTTP server.
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
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

func (a *App) sweepEventIDs(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.eventIDs.Sweep(); n > 0 {
				a.logger.Debug("expired event ids swept", slog.Int("count", n))
			}
		}
	}
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	errs = append(errs, a.closeResources(shutdownCtx))

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything NewApp opened, skipping what was
// never initialized.
func (a *App) closeResources(ctx context.Context) error {
	var errs []error
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close catalog source: %w", err))
		}
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	return errors.Join(errs...)
}
