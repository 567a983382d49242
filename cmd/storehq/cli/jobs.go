package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"

	"github.com/anotherstories/storehq/jobs"
)

// Inspector reads queue state. *asynq.Inspector satisfies it.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector Inspector
	closers   []io.Closer
}

// NewJobsCLI connects the helpers to the queue's Redis instance.
func NewJobsCLI(opt asynq.RedisClientOpt) *JobsCLI {
	client := asynq.NewClient(opt)
	inspector := asynq.NewInspector(opt)
	return &JobsCLI{client: jobs.NewClient(client), inspector: inspector, closers: []io.Closer{inspector, client}}
}

// NewJobsCLIWith builds the helpers on top of existing clients.
func NewJobsCLIWith(queue jobs.Enqueuer, inspector Inspector) *JobsCLI {
	return &JobsCLI{client: jobs.NewClient(queue), inspector: inspector}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	for _, closer := range c.closers {
		err = errors.Join(err, closer.Close())
	}
	return err
}

// Trigger enqueues a job by short name (warmup or cleanup) with branch arguments.
func (c *JobsCLI) Trigger(ctx context.Context, name string, branches []string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.Enqueue(ctx, name, branches...)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// JobsOptions configures the jobs command.
type JobsOptions struct {
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// JobsCommand runs "jobs trigger <warmup|cleanup> [branch...]" or "jobs inspect".
func (c *JobsCLI) JobsCommand(ctx context.Context, opts JobsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if len(opts.Args) == 0 {
		fmt.Fprintln(opts.Stderr, "usage: storehq jobs trigger <warmup|cleanup> [branch...] | storehq jobs inspect")
		return 2
	}
	switch opts.Args[0] {
	case "trigger":
		if len(opts.Args) < 2 {
			fmt.Fprintln(opts.Stderr, "jobs trigger: job name is required")
			return 2
		}
		info, err := c.Trigger(ctx, opts.Args[1], opts.Args[2:])
		if err != nil {
			fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Fprintf(opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	case "inspect":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "jobs inspect: %v\n", err)
			return 1
		}
		fmt.Fprintf(opts.Stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		scheduled, err := c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(10), asynq.Page(1))
		if err != nil {
			fmt.Fprintf(opts.Stderr, "jobs inspect: list scheduled: %v\n", err)
			return 1
		}
		for _, task := range scheduled {
			fmt.Fprintf(opts.Stdout, " - %s %s at %s\n", task.ID, task.Type, task.NextProcessAt.UTC().Format("2006-01-02 15:04:05"))
		}
		return 0
	default:
		fmt.Fprintf(opts.Stderr, "jobs: unknown subcommand %q\n", opts.Args[0])
		return 2
	}
}
