package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/pelyams/simpler_recommendation_service/internal/adapters/cache"
	"github.com/pelyams/simpler_recommendation_service/internal/adapters/catalog"
	"github.com/pelyams/simpler_recommendation_service/internal/adapters/flags"
	"github.com/pelyams/simpler_recommendation_service/internal/config"
	"github.com/pelyams/simpler_recommendation_service/internal/logging"
	"github.com/pelyams/simpler_recommendation_service/internal/ports"
	"github.com/pelyams/simpler_recommendation_service/internal/routing"
	"github.com/pelyams/simpler_recommendation_service/internal/service"
	"github.com/pelyams/simpler_recommendation_service/internal/telemetry"
)

type App struct {
	config  *config.Config
	db      *sql.DB
	redis   *redis.Client
	logFile *os.File
	cache   *cache.GrowthCache
	service ports.RecommendationService
	router  http.Handler
}

func New(cfg *config.Config) (*App, error) {
	a := &App{config: cfg}

	var logOutput io.Writer = os.Stdout
	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = file
		logOutput = io.MultiWriter(file, os.Stdout)
	}
	logging.Init(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  logOutput,
		Service: cfg.Service.Name,
	})

	var productCatalog ports.Catalog
	if cfg.UsesHTTPCatalog() {
		productCatalog = catalog.NewHTTPCatalog(cfg.Catalog.Addr, cfg.Catalog.Timeout)
		logging.Debug().Str("addr", cfg.Catalog.Addr).Msg("using remote product catalog")
	} else {
		databaseClient, err := sql.Open("postgres", cfg.PostgresDSN())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open catalog database: %w", err)
		}
		a.db = databaseClient
		productCatalog = catalog.NewPostgresCatalog(databaseClient)
		logging.Debug().Str("host", cfg.Postgres.Host).Msg("using postgres product catalog")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := telemetry.NewPrometheusRecorder(registry)

	a.cache = cache.NewGrowthCache()
	opts := []service.Option{
		service.WithRecorder(recorder),
		service.WithLabgenCase(cfg.Labgen.Case),
	}
	routerOpts := []routing.RouterOption{
		routing.WithMetrics(registry),
		routing.WithWorkers(cfg.Server.MaxWorkers, cfg.Server.MaxBacklog, cfg.Server.BacklogTimeout),
	}
	switch {
	case cfg.Flags.Addr != "":
		opts = append(opts, service.WithFeatureFlags(flags.NewHTTPFlags(cfg.Flags.Addr, cfg.Flags.Timeout)))
	case cfg.RedisAddr() != "":
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       0,
		})
		redisFlags := flags.NewRedisFlags(a.redis)
		opts = append(opts, service.WithFeatureFlags(redisFlags))
		routerOpts = append(routerOpts, routing.WithFlagAdmin(routing.NewFlagHandler(redisFlags)))
	default:
		logging.Warn().Msg("no feature flag source configured, recommendation cache disabled")
	}

	a.service = service.NewRecommendationService(productCatalog, a.cache, opts...)
	handler := routing.NewRecommendationHandler(a.service)
	a.router = routing.NewRouter(handler, routing.NewRequestLogger(0), routerOpts...).SetupRoutes()
	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    net.JoinHostPort("", a.config.Server.Port),
		Handler: a.router,
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info().Str("port", a.config.Server.Port).Msg("Recommendation service started")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("Recommendation service shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
