package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/anotherstories/storehq/internal/jobs"
	"github.com/anotherstories/storehq/internal/platform/cache"
	"github.com/anotherstories/storehq/internal/sales"
)

type stubWarmer struct {
	branches []string
	err      error
}

func (s *stubWarmer) Warm(ctx context.Context, branches []string) (int, error) {
	s.branches = branches
	if s.err != nil {
		return 0, s.err
	}
	return len(branches) + 1, nil
}

type stubSalesBranches []sales.BranchRef

func (s stubSalesBranches) Branches(context.Context) ([]sales.BranchRef, error) {
	return s, nil
}

type stubPruner struct {
	deletedBranches []string
	orphansKnown    []string
	onDelete        func(ctx context.Context)
}

func (s *stubPruner) DeleteBranch(ctx context.Context, branchID string) (int64, error) {
	if s.onDelete != nil {
		s.onDelete(ctx)
	}
	s.deletedBranches = append(s.deletedBranches, branchID)
	return 2, nil
}

func (s *stubPruner) DeleteOrphans(ctx context.Context, known []string) (int64, error) {
	s.orphansKnown = known
	return 5, nil
}

type stubDirectory []string

func (s stubDirectory) KnownIDs(context.Context) ([]string, error) {
	return s, nil
}

func newMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestReportsWarmupUsesSalesBranches(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewReportsWarmupJob(warmer, stubSalesBranches{{ID: "paris"}, {ID: "rome"}}, nil, newMetrics())

	task, err := NewReportsWarmupTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"paris", "rome"}, warmer.branches)
}

func TestReportsWarmupHonoursPayloadBranches(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewReportsWarmupJob(warmer, stubSalesBranches{{ID: "paris"}}, nil, newMetrics())

	task, err := NewReportsWarmupTask("berlin")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"berlin"}, warmer.branches)
}

func TestReportsWarmupPropagatesFailure(t *testing.T) {
	want := errors.New("db down")
	job := NewReportsWarmupJob(&stubWarmer{err: want}, stubSalesBranches{}, nil, newMetrics())

	err := job.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, nil))
	assert.ErrorIs(t, err, want)
}

func TestBadPayloadSkipsRetry(t *testing.T) {
	warmup := NewReportsWarmupJob(&stubWarmer{}, nil, nil, newMetrics())
	err := warmup.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	cleanup := NewSalesCleanupJob(&stubPruner{}, nil, nil, nil, newMetrics())
	err = cleanup.Handle(context.Background(), asynq.NewTask(TaskSalesCleanup, []byte("[")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSalesCleanupDeletesListedBranchesOnly(t *testing.T) {
	pruner := &stubPruner{}
	job := NewSalesCleanupJob(pruner, stubDirectory{"paris"}, nil, nil, newMetrics())

	deleted, err := job.Run(context.Background(), []string{"rome", "oslo"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.Equal(t, []string{"rome", "oslo"}, pruner.deletedBranches)
	assert.Nil(t, pruner.orphansKnown)
}

func TestSalesCleanupRemovesOrphansWhenNoBranchesGiven(t *testing.T) {
	pruner := &stubPruner{}
	job := NewSalesCleanupJob(pruner, stubDirectory{"paris", "rome"}, nil, nil, newMetrics())

	task, err := NewSalesCleanupTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"paris", "rome"}, pruner.orphansKnown)
	assert.Empty(t, pruner.deletedBranches)
}

func TestSalesCleanupRefusesConcurrentRun(t *testing.T) {
	mr := miniredis.RunT(t)
	locker := cache.NewLocker(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	pruner := &stubPruner{}
	job := NewSalesCleanupJob(pruner, nil, locker, nil, newMetrics())

	var inner error
	pruner.onDelete = func(ctx context.Context) {
		if inner != nil {
			return
		}
		task, err := NewSalesCleanupTask("rome")
		require.NoError(t, err)
		inner = job.Handle(ctx, task)
	}

	_, err := job.Run(context.Background(), []string{"paris"})
	require.NoError(t, err)
	require.Error(t, inner)
	assert.ErrorIs(t, inner, cache.ErrLocked)
	assert.ErrorIs(t, inner, asynq.SkipRetry)
	assert.Equal(t, []string{"paris"}, pruner.deletedBranches)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthReportsQueueDepth(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Retry: 1}}, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body QueueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, QueueHealth{Queue: "default", Pending: 3, Retry: 1}, body)
}

func TestHealthUnavailableWhenInspectorFails(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("redis down")}, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestTaskPayloadRoundTrip(t *testing.T) {
	task, err := NewSalesCleanupTask("paris")
	require.NoError(t, err)
	assert.Equal(t, TaskSalesCleanup, task.Type())
	assert.JSONEq(t, `{"branches":["paris"]}`, string(task.Payload()))

	warm, err := NewReportsWarmupTask()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(warm.Payload()))
}

type recordingQueue struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
}

func (q *recordingQueue) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	q.opts = append(q.opts, opts)
	return &asynq.TaskInfo{ID: "id", Type: task.Type(), Queue: QueueDefault}, nil
}

func TestClientEnqueueByName(t *testing.T) {
	q := &recordingQueue{}
	client := NewClient(q)

	info, err := client.Enqueue(context.Background(), "warmup")
	require.NoError(t, err)
	assert.Equal(t, TaskReportsWarmup, info.Type)

	_, err = client.Enqueue(context.Background(), TaskSalesCleanup, "vienna")
	require.NoError(t, err)
	require.Len(t, q.tasks, 2)
	assert.JSONEq(t, `{"branches":["vienna"]}`, string(q.tasks[1].Payload()))
	assert.Contains(t, q.opts[1], asynq.MaxRetry(1))

	_, err = client.Enqueue(context.Background(), "reindex")
	assert.ErrorIs(t, err, ErrUnknownJob)
	assert.Len(t, q.tasks, 2)
}
