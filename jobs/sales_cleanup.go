package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/anotherstories/storehq/internal/jobs"
	"github.com/anotherstories/storehq/internal/platform/cache"
)

const cleanupLockKey = "locks:sales:cleanup"

// SalesPruner deletes sale records.
type SalesPruner interface {
	DeleteBranch(ctx context.Context, branchID string) (int64, error)
	DeleteOrphans(ctx context.Context, knownBranchIDs []string) (int64, error)
}

// BranchDirectory lists the ids of existing branches.
type BranchDirectory interface {
	KnownIDs(ctx context.Context) ([]string, error)
}

// Locker serialises cleanup runs across workers.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// SalesCleanupJob removes sales that belong to deleted branches.
type SalesCleanupJob struct {
	Sales    SalesPruner
	Branches BranchDirectory
	Locker   Locker
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	LockTTL  time.Duration
}

// NewSalesCleanupJob wires dependencies for the cleanup handler.
func NewSalesCleanupJob(salesSvc SalesPruner, branches BranchDirectory, locker Locker, logger *slog.Logger, metrics *jobmetrics.Metrics) *SalesCleanupJob {
	return &SalesCleanupJob{
		Sales:    salesSvc,
		Branches: branches,
		Locker:   locker,
		Logger:   logger,
		Metrics:  metrics,
		LockTTL:  5 * time.Minute,
	}
}

// Handle processes sales:cleanup tasks. A run that finds the lock taken is
// skipped without retry.
func (j *SalesCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sales == nil {
		return errors.New("sales cleanup: handler not configured")
	}
	var payload SalesCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskSalesCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	deleted, err := j.Run(ctx, payload.Branches)
	if errors.Is(err, cache.ErrLocked) {
		j.logger().Warn("cleanup already running")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		j.logger().Error("sales cleanup", slog.Any("error", err))
		return err
	}
	j.logger().Info("completed sales cleanup", slog.Int64("deleted", deleted), slog.Any("branches", payload.Branches))
	return nil
}

// Run deletes the sales of branches, or the orphaned sales when branches is
// empty, and returns the number of removed records.
func (j *SalesCleanupJob) Run(ctx context.Context, branches []string) (int64, error) {
	var deleted int64
	run := func(ctx context.Context) error {
		if len(branches) > 0 {
			for _, id := range branches {
				n, err := j.Sales.DeleteBranch(ctx, id)
				if err != nil {
					return err
				}
				deleted += n
			}
			return nil
		}
		if j.Branches == nil {
			return errors.New("sales cleanup: branch directory not configured")
		}
		known, err := j.Branches.KnownIDs(ctx)
		if err != nil {
			return err
		}
		n, err := j.Sales.DeleteOrphans(ctx, known)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	}

	var err error
	if j.Locker != nil {
		err = j.Locker.WithLock(ctx, cleanupLockKey, j.LockTTL, run)
	} else {
		err = run(ctx)
	}
	j.metrics().AddDeleted(TaskSalesCleanup, deleted)
	return deleted, err
}

func (j *SalesCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSalesCleanup))
	}
	return slog.Default().With(slog.String("job", TaskSalesCleanup))
}

func (j *SalesCleanupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
