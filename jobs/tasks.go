package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsWarmup precomputes the default report summaries.
	TaskReportsWarmup = "reports:warmup"
	// TaskSalesCleanup removes sale records of deleted branches.
	TaskSalesCleanup = "sales:cleanup"

	// WarmupCron runs the warmup every night at 01:15 UTC.
	WarmupCron = "15 1 * * *"
)

// ReportsWarmupPayload limits a warmup to specific branches. An empty list
// warms every branch that has sales.
type ReportsWarmupPayload struct {
	Branches []string `json:"branches,omitempty"`
}

// SalesCleanupPayload lists the branches whose sales are deleted. When empty
// the job removes sales of branches missing from the branches table.
type SalesCleanupPayload struct {
	Branches []string `json:"branches,omitempty"`
}

// NewReportsWarmupTask constructs the warmup task.
func NewReportsWarmupTask(branches ...string) (*asynq.Task, error) {
	data, err := json.Marshal(ReportsWarmupPayload{Branches: branches})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}

// NewSalesCleanupTask constructs the cleanup task.
func NewSalesCleanupTask(branches ...string) (*asynq.Task, error) {
	data, err := json.Marshal(SalesCleanupPayload{Branches: branches})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalesCleanup, data), nil
}
