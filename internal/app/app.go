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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/reviewhub/internal/config"
	"github.com/utafrali/reviewhub/internal/event"
	handler "github.com/utafrali/reviewhub/internal/handler/http"
	"github.com/utafrali/reviewhub/internal/repository"
	"github.com/utafrali/reviewhub/internal/repository/memory"
	"github.com/utafrali/reviewhub/internal/repository/postgres"
	redisrepo "github.com/utafrali/reviewhub/internal/repository/redis"
	"github.com/utafrali/reviewhub/internal/seed"
	"github.com/utafrali/reviewhub/internal/service"
	"github.com/utafrali/reviewhub/migrations"
	"github.com/utafrali/reviewhub/pkg/database"
	"github.com/utafrali/reviewhub/pkg/health"
	"github.com/utafrali/reviewhub/pkg/httpclient"
	pkgkafka "github.com/utafrali/reviewhub/pkg/kafka"
	"github.com/utafrali/reviewhub/pkg/middleware"
	"github.com/utafrali/reviewhub/pkg/tracing"
)

// App wires together all dependencies and runs the reviewhub server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool // nil with the memory backend
	redis          *redis.Client // nil when REDIS_URL is unset
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.Init(ctx, tracing.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := httpclient.RegisterMetrics(reg); err != nil {
		return nil, fmt.Errorf("register client metrics: %w", err)
	}

	healthHandler := health.NewHandler()

	products, reviews, err := a.initCatalog(ctx, reg, healthHandler)
	if err != nil {
		a.closeStores()
		return nil, err
	}

	// Redis backs conversations and the stats cache when configured.
	var (
		convs repository.ConversationStore = memory.NewConversations()
		cache repository.StatsCache
	)
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		logger.Info("connected to Redis")

		convs = redisrepo.NewConversationStore(client, cfg.ConversationTTL)
		cache = redisrepo.NewStatsCache(client, cfg.StatsCacheTTL)
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	} else {
		logger.Warn("REDIS_URL not set; conversations are kept in memory and stats are not cached")
	}

	// Kafka. No brokers leaves publishing disabled.
	var publisher event.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
		}, logger)
		publisher = a.producer
		producer := a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	eventProducer := event.NewProducer(publisher, logger)
	reviewService := service.NewReviewService(products, reviews, cache, eventProducer, logger)
	catalogService := service.NewCatalogService(products, reviewService, logger)
	assistantService := service.NewAssistantService(
		catalogService,
		reviewService,
		convs,
		cfg.AssistantResponseDelay,
		service.NewAssistantMetrics(reg),
		logger,
	)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins

	router := handler.NewRouter(handler.RouterDeps{
		Catalog:   catalogService,
		Reviews:   reviewService,
		Assistant: assistantService,
		Health:    healthHandler,
		Metrics:   middleware.NewHTTPMetrics(reg, cfg.ServiceName),
		Gatherer:  reg,
		CORS:      cors,
		Logger:    logger,

		AdminCIDRs:         cfg.AdminCIDRs,
		CatalogCacheMaxAge: cfg.CatalogCacheAge,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15*time.Second + cfg.AssistantResponseDelay,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initCatalog opens the configured product and review storage.
func (a *App) initCatalog(
	ctx context.Context,
	reg prometheus.Registerer,
	h *health.Handler,
) (repository.ProductRepository, repository.ReviewRepository, error) {
	cfg, logger := a.cfg, a.logger

	catalog, err := seed.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load seed catalog: %w", err)
	}

	if cfg.CatalogBackend == config.BackendMemory {
		logger.Warn("using in-memory catalog; reviews are lost on restart",
			slog.Int("products", len(catalog.Products)),
		)
		store := memory.NewSeededCatalog(catalog)
		return store, store, nil
	}

	pool, err := database.NewPostgresPool(ctx, database.PostgresConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL")

	if err := database.RegisterPoolMetrics(reg, pool, cfg.ServiceName); err != nil {
		return nil, nil, fmt.Errorf("register pool metrics: %w", err)
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if _, err := postgres.SeedCatalog(ctx, pool, catalog, logger); err != nil {
		return nil, nil, fmt.Errorf("seed catalog: %w", err)
	}

	// Configure slow query logging.
	if cfg.SlowQueryMs > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	}

	h.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	return postgres.NewProductRepository(pool), postgres.NewReviewRepository(pool), nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("backend", a.cfg.CatalogBackend),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown stops the HTTP server first so in-flight requests drain, then
// flushes spans and closes the stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	timeout := a.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpCtx, httpCancel := context.WithTimeout(context.Background(), timeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errors.Join(errs...)
}
