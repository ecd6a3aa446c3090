package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nile-pay/nile_pay/internal/config"
	"github.com/nile-pay/nile_pay/internal/infra"
	"github.com/nile-pay/nile_pay/internal/logging"
	"github.com/nile-pay/nile_pay/internal/report"
	"github.com/nile-pay/nile_pay/internal/scheduler"
	"github.com/nile-pay/nile_pay/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx := context.Background()

	// Outside development both URLs are mandatory (config.Load enforces it);
	// a missing one here means dev mode, which runs on the in-memory stores.
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := infra.Migrate(ctx, db); err != nil {
			logger.Error("migrate schema", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("DATABASE_URL not set, running on in-memory stores")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, idempotency middleware disabled")
	}

	publisher, closePublisher := infra.NewMovementPublisher(cfg, logger)
	defer func() {
		if err := closePublisher(); err != nil {
			logger.Warn("close publisher", "error", err)
		}
	}()

	srv, err := server.New(cfg, db, cache, publisher, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	if db != nil {
		aggregator := report.NewAggregator(report.NewPostgresStore(db), logger)
		reportJob := scheduler.New("daily-report", cfg.ReportInterval, scheduler.RetryPolicy{
			MaxRetries: cfg.ReportMaxRetries,
			Backoff:    scheduler.ExponentialBackoff(cfg.ReportRetryBackoff),
		}, aggregator.Run, logger)
		reportJob.Start()
		defer reportJob.Stop()
	} else {
		logger.Warn("report scheduler disabled without a database")
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
