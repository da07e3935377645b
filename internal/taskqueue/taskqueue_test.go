package taskqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/pkg/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&config.Config{
		Logger: config.LoggerConfig{Level: "error", Format: "json", OutputPath: "stdout"},
	})
	require.NoError(t, err)
	return log
}

func newTestQueue(t *testing.T) (*TaskQueue, *worker.InProcessProvider) {
	t.Helper()
	log := newTestLogger(t)
	provider := worker.NewInProcessProvider(log)

	workerCfg := worker.DefaultConfig()
	workerCfg.Concurrency = 2
	workerCfg.PollInterval = 5 * time.Millisecond
	w := worker.New(provider, workerCfg, log)

	cfg := Config{
		MaxConcurrentTasks: 2,
		DefaultRetryConfig: RetryConfig{MaxAttempts: 3, Strategy: "fixed", BaseDelay: 5 * time.Millisecond},
		DrainGracePeriod:   200 * time.Millisecond,
	}
	q := New(provider, w, nil, cfg, log)
	return q, provider
}

func TestQueueTask_NoHandlerRegistered(t *testing.T) {
	q, _ := newTestQueue(t)
	_, err := q.QueueTask(Spec{Type: "unregistered"})
	require.Error(t, err)
}

func TestQueueTask_DedupReturnsExistingID(t *testing.T) {
	q, _ := newTestQueue(t)
	require.NoError(t, q.RegisterHandler("noop", HandlerFunc(func(ctx context.Context, task *Task) Result {
		return ResultOk()
	}), time.Second))

	id1, err := q.QueueTask(Spec{Type: "noop", DedupKey: "dup-1"})
	require.NoError(t, err)

	id2, err := q.QueueTask(Spec{Type: "noop", DedupKey: "dup-1"})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	assert.Equal(t, 1, q.provider.Len())
}

func TestQueueTask_PriorityOrdering(t *testing.T) {
	q, provider := newTestQueue(t)
	h := HandlerFunc(func(ctx context.Context, task *Task) Result { return ResultOk() })
	require.NoError(t, q.RegisterHandler("job", h, time.Second))

	_, err := q.QueueTask(Spec{Type: "job", Priority: PriorityLow})
	require.NoError(t, err)
	_, err = q.QueueTask(Spec{Type: "job", Priority: PriorityCritical})
	require.NoError(t, err)
	_, err = q.QueueTask(Spec{Type: "job", Priority: PriorityNormal})
	require.NoError(t, err)

	first, err := provider.Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int(PriorityCritical), first.Priority)
}

func TestTaskQueue_HandlerOk(t *testing.T) {
	q, _ := newTestQueue(t)
	done := make(chan struct{})
	require.NoError(t, q.RegisterHandler("ok-task", HandlerFunc(func(ctx context.Context, task *Task) Result {
		close(done)
		return ResultOk()
	}), time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	defer func() { _ = q.Stop(context.Background()) }()

	_, err := q.QueueTask(Spec{Type: "ok-task"})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}

	waitForStats(t, q, func(s Stats) bool { return s.CompletedTotal == 1 })
}

func TestTaskQueue_HandlerRetryThenDead(t *testing.T) {
	q, _ := newTestQueue(t)
	var attempts int32
	var mu sync.Mutex

	require.NoError(t, q.RegisterHandler("flaky", HandlerFunc(func(ctx context.Context, task *Task) Result {
		mu.Lock()
		attempts++
		mu.Unlock()
		return ResultRetry("always fails")
	}), time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	defer func() { _ = q.Stop(context.Background()) }()

	_, err := q.QueueTask(Spec{Type: "flaky", MaxRetries: 3})
	require.NoError(t, err)

	waitForStats(t, q, func(s Stats) bool { return s.DeadTotal == 1 })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(3), attempts)
}

func TestTaskQueue_HandlerFailIsImmediatelyDead(t *testing.T) {
	q, _ := newTestQueue(t)
	var attempts int32
	var mu sync.Mutex

	require.NoError(t, q.RegisterHandler("bad-input", HandlerFunc(func(ctx context.Context, task *Task) Result {
		mu.Lock()
		attempts++
		mu.Unlock()
		return ResultFail("validation error")
	}), time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	defer func() { _ = q.Stop(context.Background()) }()

	_, err := q.QueueTask(Spec{Type: "bad-input", MaxRetries: 5})
	require.NoError(t, err)

	waitForStats(t, q, func(s Stats) bool { return s.DeadTotal == 1 })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(1), attempts)
}

func waitForStats(t *testing.T, q *TaskQueue, ok func(Stats) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ok(q.Stats()) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("stats condition never satisfied, last snapshot: %+v", q.Stats())
}

func TestTaskQueue_StopWithoutDLQIsSafeWhenResidualEmpty(t *testing.T) {
	q, _ := newTestQueue(t)
	require.NoError(t, q.RegisterHandler("noop", HandlerFunc(func(ctx context.Context, task *Task) Result {
		return ResultOk()
	}), time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	require.NoError(t, q.Stop(context.Background()))
	assert.False(t, q.IsRunning())
}
