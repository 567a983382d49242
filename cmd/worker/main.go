// Command worker runs the report warmup and sales cleanup jobs.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anotherstories/storehq/internal/app"
	"github.com/anotherstories/storehq/internal/branches"
	jobmetrics "github.com/anotherstories/storehq/internal/jobs"
	"github.com/anotherstories/storehq/internal/platform/cache"
	"github.com/anotherstories/storehq/internal/platform/db"
	"github.com/anotherstories/storehq/internal/reports"
	"github.com/anotherstories/storehq/internal/sales"
	"github.com/anotherstories/storehq/jobs"
)

func main() {
	if app.SkipStartup("worker") {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, db.PoolConfig{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, reportCache, logger)
	reportService := reports.NewService(salesRepo, reportCache, logger)
	branchService := branches.NewService(branches.NewRepository(pool), logger)

	warmupJob := jobs.NewReportsWarmupJob(reportService, salesService, logger, metrics)
	cleanupJob := jobs.NewSalesCleanupJob(salesService, branchService, cache.NewLocker(redisClient), logger, metrics)

	warmupTask, err := jobs.NewReportsWarmupTask()
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker := jobs.NewWorker(jobs.WorkerConfig{
		Redis:       cfg.QueueRedis(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
	})
	worker.Handle(jobs.TaskReportsWarmup, warmupJob.Handle)
	worker.Handle(jobs.TaskSalesCleanup, cleanupJob.Handle)
	if err := worker.Schedule(jobs.WarmupCron, warmupTask, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3)); err != nil {
		logger.Error("schedule warmup", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler()}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() { _ = metricsServer.Close() }()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
