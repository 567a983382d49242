package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/anotherstories/storehq/internal/app"
	"github.com/anotherstories/storehq/internal/auth"
	"github.com/anotherstories/storehq/internal/blog"
	"github.com/anotherstories/storehq/internal/branches"
	"github.com/anotherstories/storehq/internal/employees"
	"github.com/anotherstories/storehq/internal/observability"
	"github.com/anotherstories/storehq/internal/platform/cache"
	"github.com/anotherstories/storehq/internal/platform/db"
	"github.com/anotherstories/storehq/internal/platform/storage"
	"github.com/anotherstories/storehq/internal/rbac"
	"github.com/anotherstories/storehq/internal/reports"
	"github.com/anotherstories/storehq/internal/reports/export"
	reportshttp "github.com/anotherstories/storehq/internal/reports/http"
	"github.com/anotherstories/storehq/internal/sales"
	"github.com/anotherstories/storehq/internal/shared"
	"github.com/anotherstories/storehq/jobs"
)

func connectRedis(ctx context.Context, cfg *app.Config) (*redis.Client, error) {
	return cache.New(ctx, cfg.RedisOptions())
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.DBAutoMigrate {
		migrator, err := db.NewMigrator(cfg.PGDSN, logger)
		if err != nil {
			return err
		}
		err = migrator.Up()
		_ = migrator.Close()
		if err != nil {
			return err
		}
	}

	pool, err := db.New(ctx, db.PoolConfig{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "storehq_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	rbacService := rbac.NewService(pool)
	rbacMiddleware := rbac.Middleware{Resolver: rbacService, Logger: logger}

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx, reports.BumpChannel); err != nil {
		logger.Warn("report cache invalidation listener", slog.Any("error", err))
	}

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, reportCache, logger)
	salesHandler := sales.NewHandler(logger, salesService, rbacMiddleware)

	reportService := reports.NewService(salesRepo, reportCache, logger)
	pdfExporter := &export.PDFExporter{Endpoint: cfg.GotenbergURL, Client: &http.Client{Timeout: 20 * time.Second}}
	reportsHandler := reportshttp.NewHandler(logger, reportService, pdfExporter, rbacMiddleware)

	var (
		avatarUploads employees.Uploader
		coverUploads  blog.Uploader
	)
	store, err := storage.New(ctx, cfg.StorageConfig(), storage.WithLogger(logger))
	if err != nil {
		logger.Warn("object storage disabled, uploads will be rejected", slog.Any("error", err))
	} else {
		avatarUploads, coverUploads = store, store
	}

	branchService := branches.NewService(branches.NewRepository(pool), logger)
	branchHandler := branches.NewHandler(logger, branchService, rbacMiddleware)

	employeeService := employees.NewService(employees.NewRepository(pool), avatarUploads, logger)
	employeeHandler := employees.NewHandler(logger, employeeService, rbacMiddleware)

	blogService := blog.NewService(blog.NewRepository(pool), coverUploads)
	blogHandler := blog.NewHandler(logger, blogService, rbacMiddleware)

	inspector := asynq.NewInspector(cfg.QueueRedis())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		RBACMiddleware: rbacMiddleware,
		Metrics:        metrics,
		Readiness: map[string]app.Pinger{
			"postgres": app.PingFunc(pool.Ping),
			"redis": app.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		},
		AuthHandler:     authHandler,
		SalesHandler:    salesHandler,
		ReportsHandler:  reportsHandler,
		BranchesHandler: branchHandler,
		EmployeeHandler: employeeHandler,
		BlogHandler:     blogHandler,
		JobHandler:      jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}
