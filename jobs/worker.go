package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const defaultConcurrency = 5

// WorkerConfig configures the asynq server behind a Worker.
type WorkerConfig struct {
	Redis       asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
}

// Worker processes queued tasks and, once schedules are added, enqueues
// periodic tasks through an asynq scheduler.
type Worker struct {
	redis     asynq.RedisClientOpt
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
	handlers  []string
	schedules int
}

// NewWorker prepares a worker. Handlers and schedules are added before Run.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	server := asynq.NewServer(cfg.Redis, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.Error("task failed",
				slog.String("type", task.Type()),
				slog.Int("retried", retried),
				slog.Any("error", err))
		}),
	})
	return &Worker{
		redis:  cfg.Redis,
		server: server,
		mux:    asynq.NewServeMux(),
		logger: logger,
	}
}

// Handle routes a task type to fn.
func (w *Worker) Handle(taskType string, fn asynq.HandlerFunc) {
	w.mux.HandleFunc(taskType, fn)
	w.handlers = append(w.handlers, taskType)
}

// Schedule enqueues task on the cron spec, evaluated in UTC.
func (w *Worker) Schedule(spec string, task *asynq.Task, opts ...asynq.Option) error {
	if w.scheduler == nil {
		w.scheduler = asynq.NewScheduler(w.redis, &asynq.SchedulerOpts{Location: time.UTC})
	}
	if _, err := w.scheduler.Register(spec, task, opts...); err != nil {
		return fmt.Errorf("jobs: schedule %s at %q: %w", task.Type(), spec, err)
	}
	w.schedules++
	return nil
}

// Run processes tasks until ctx is cancelled, then drains in-flight work.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("jobs: start server: %w", err)
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.server.Shutdown()
			return fmt.Errorf("jobs: start scheduler: %w", err)
		}
	}
	w.logger.Info("worker started",
		slog.Any("handlers", w.handlers),
		slog.Int("schedules", w.schedules))

	<-ctx.Done()
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.server.Shutdown()
	w.logger.Info("worker stopped")
	return nil
}
