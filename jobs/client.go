package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// ErrUnknownJob is returned for job names that have no task.
var ErrUnknownJob = errors.New("unsupported job")

// Enqueuer submits tasks. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues the warmup and cleanup tasks with their retry policy.
type Client struct {
	queue Enqueuer
}

// NewClient wraps an enqueuer.
func NewClient(queue Enqueuer) *Client {
	return &Client{queue: queue}
}

// Enqueue submits a job by short name ("warmup", "cleanup") or task type.
func (c *Client) Enqueue(ctx context.Context, name string, branches ...string) (*asynq.TaskInfo, error) {
	switch name {
	case "warmup", TaskReportsWarmup:
		return c.EnqueueWarmup(ctx, branches...)
	case "cleanup", TaskSalesCleanup:
		return c.EnqueueCleanup(ctx, branches...)
	default:
		return nil, fmt.Errorf("%w %s", ErrUnknownJob, name)
	}
}

// EnqueueWarmup warms the reports of branches, or of every branch.
func (c *Client) EnqueueWarmup(ctx context.Context, branches ...string) (*asynq.TaskInfo, error) {
	task, err := NewReportsWarmupTask(branches...)
	if err != nil {
		return nil, err
	}
	return c.queue.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
}

// EnqueueCleanup deletes the sales of branches, or of unknown branches.
func (c *Client) EnqueueCleanup(ctx context.Context, branches ...string) (*asynq.TaskInfo, error) {
	task, err := NewSalesCleanupTask(branches...)
	if err != nil {
		return nil, err
	}
	return c.queue.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}
