package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/anotherstories/storehq/internal/jobs"
	"github.com/anotherstories/storehq/internal/sales"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportWarmer computes and caches report summaries.
type ReportWarmer interface {
	Warm(ctx context.Context, branches []string) (int, error)
}

// SalesBranchLister lists branches that have sales.
type SalesBranchLister interface {
	Branches(ctx context.Context) ([]sales.BranchRef, error)
}

// ReportsWarmupJob fills the report cache ahead of the first request of the day.
type ReportsWarmupJob struct {
	Reports ReportWarmer
	Sales   SalesBranchLister
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(reports ReportWarmer, salesSvc SalesBranchLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{
		Reports: reports,
		Sales:   salesSvc,
		Logger:  logger,
		Metrics: metrics,
		Timeout: time.Minute,
	}
}

// Handle processes reports:warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()

	branches := payload.Branches
	if len(branches) == 0 && j.Sales != nil {
		refs, err := j.Sales.Branches(ctx)
		if err != nil {
			logger.Error("load warmup branches", slog.Any("error", err))
			return err
		}
		for _, ref := range refs {
			branches = append(branches, ref.ID)
		}
	}

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	warmed, err := j.Reports.Warm(ctx, branches)
	j.metrics().AddWarmed(TaskReportsWarmup, warmed)
	if err != nil {
		logger.Error("warm reports", slog.Int("warmed", warmed), slog.Any("error", err))
		return err
	}
	logger.Info("completed reports warmup", slog.Int("scopes", warmed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *ReportsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
