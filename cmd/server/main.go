package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/gopayouts/internal/adapter/http"
	"github.com/iho/gopayouts/internal/adapter/http/handler"
	postgresRepo "github.com/iho/gopayouts/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/gopayouts/internal/adapter/repository/redis"
	"github.com/iho/gopayouts/internal/adapter/vendor"
	"github.com/iho/gopayouts/internal/infrastructure/config"
	"github.com/iho/gopayouts/internal/infrastructure/logger"
	"github.com/iho/gopayouts/internal/infrastructure/metrics"
	"github.com/iho/gopayouts/internal/infrastructure/postgres"
	"github.com/iho/gopayouts/internal/infrastructure/redis"
	"github.com/iho/gopayouts/internal/usecase"
	"github.com/iho/gopayouts/internal/workerpool"
)

const poolCloseTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	log.Logger = logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "gopayouts",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Logger); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	// Apply migrations
	if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, logger).Up(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:     cfg.DatabaseURL,
		MaxConns:        cfg.DatabaseMaxConns,
		MinConns:        cfg.DatabaseMinConns,
		ConnectTimeout:  cfg.DatabaseTimeout,
		ApplicationName: "payouts-server",
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	logger.Info().Msg("connected to redis")

	registry := metrics.NewRegistry()
	m := metrics.NewWithRegisterer(registry)

	// Vendor API
	vendorClient, err := vendor.NewClient(vendor.Config{
		BaseURL:    cfg.VendorBaseURL,
		APIKey:     cfg.VendorAPIKey,
		Timeout:    cfg.VendorTimeout,
		MaxRetries: cfg.VendorMaxRetries,
		PageSize:   cfg.VendorPageSize,
		Observer:   m,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	lookup := vendor.NewCachedLookup(vendorClient, redisRepo.NewCache(redisClient), cfg.LookupCacheTTL, m, logger)

	// Initialize repositories
	idGen := postgresRepo.NewULIDGenerator()
	directory := postgresRepo.NewAccountDirectory(pool, postgresRepo.NewRetrier(logger))
	reportCache := redisRepo.NewReportCache(redisClient, cfg.ReportTTL)
	exporter := usecase.MultiExporter{
		postgresRepo.NewReportRepository(postgresRepo.NewTxManager(pool, logger), idGen, logger),
		reportCache,
	}

	workers := workerpool.New(poolConfig(cfg, m, logger))

	// Initialize use cases
	payoutUC := usecase.NewPayoutUseCase(
		directory,
		vendorClient,
		usecase.NewSettlementReconciler(lookup, idGen, logger),
		usecase.NewSettlementAggregator(exporter),
		workers,
		idGen,
		usecase.PayoutConfig{
			TaskTimeout:  cfg.BatchTaskTimeout,
			BatchTimeout: cfg.BatchTimeout,
			Logger:       logger,
			Observer:     m,
		},
	)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		PayoutHandler: handler.NewPayoutHandler(payoutUC, redisRepo.NewRunLock(redisClient, cfg.BatchLockTTL), logger),
		ReportHandler: handler.NewReportHandler(reportCache),
		HealthHandler: handler.NewHealthHandler(
			handler.Check{Name: "postgres", Ping: pool.Ping},
			handler.Check{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		),
		Registry:    registry,
		SlowRequest: cfg.HTTPSlowRequest,
		Logger:      logger,
	})

	// Create server
	server := &http.Server{
		Addr:         serverAddr(cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server...")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()

		serverErr := server.Shutdown(shutdownCtx)

		closeCtx, cancelClose := context.WithTimeout(context.Background(), poolCloseTimeout)
		defer cancelClose()

		return errors.Join(serverErr, workers.Close(closeCtx))
	})

	return g.Wait()
}

func poolConfig(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) workerpool.Config {
	return workerpool.Config{
		MaxWorkers:  cfg.PoolMaxWorkers,
		MaxIdle:     cfg.PoolMaxIdle,
		IdleTimeout: cfg.PoolIdleTimeout,
		Logger:      logger,
		Metrics:     m.PoolMetrics(),
	}
}

func serverAddr(port string) string {
	return fmt.Sprintf(":%s", port)
}
