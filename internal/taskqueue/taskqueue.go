package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/errorsx"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/pkg/redis/dlq"
	"eventcore/internal/pkg/redis/keys"
	"eventcore/internal/pkg/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// deadStream is where tasks that exhaust retries or fail non-retryably are
// emitted for visibility, named the same way the Event Bus names its own
// dead-letter siblings.
var deadStream = keys.DeadLetterStream("tasks")

// Config is the Task Queue's runtime configuration, derived from config.TaskQueueConfig.
type Config struct {
	MaxConcurrentTasks  int
	DefaultRetryConfig  RetryConfig
	HealthCheckInterval time.Duration
	DeadLetterRetention time.Duration
	DrainGracePeriod    time.Duration
}

// FromAppConfig translates the application-wide TaskQueueConfig section.
func FromAppConfig(c config.TaskQueueConfig) Config {
	return Config{
		MaxConcurrentTasks: c.MaxConcurrentTasks,
		DefaultRetryConfig: RetryConfig{
			MaxAttempts: c.DefaultRetryConfig.MaxAttempts,
			Strategy:    c.DefaultRetryConfig.Strategy,
			BaseDelay:   time.Duration(c.DefaultRetryConfig.BaseDelayMs) * time.Millisecond,
			MaxDelay:    time.Duration(c.DefaultRetryConfig.MaxDelayMs) * time.Millisecond,
			Jitter:      c.DefaultRetryConfig.Jitter,
		},
		HealthCheckInterval: time.Duration(c.HealthCheckIntervalMs) * time.Millisecond,
		DeadLetterRetention: time.Duration(c.DeadLetterRetentionMs) * time.Millisecond,
		DrainGracePeriod:    time.Duration(c.DrainGracePeriodMs) * time.Millisecond,
	}
}

// TaskQueue is an in-process scheduler over typed Tasks. It pairs a
// worker.Worker/worker.InProcessProvider (the bounded-concurrency execution
// engine) with the bookkeeping the engine has no reason to know about:
// per-task lifecycle state, last failure reason, and aggregate Stats.
type TaskQueue struct {
	cfg      Config
	provider *worker.InProcessProvider
	w        *worker.Worker
	dlq      *dlq.DLQ
	log      *logger.Logger

	mu            sync.Mutex
	registry      map[string]*Task // by task id
	registrations map[string]registration
	closed        bool
	started       bool

	statsMu sync.Mutex
	stats   Stats
}

// New constructs a TaskQueue. provider and w must be exclusively owned by
// this TaskQueue; nothing else should call w.Register or provider.Enqueue.
func New(provider *worker.InProcessProvider, w *worker.Worker, d *dlq.DLQ, cfg Config, log *logger.Logger) *TaskQueue {
	return &TaskQueue{
		cfg:           cfg,
		provider:      provider,
		w:             w,
		dlq:           d,
		log:           log,
		registry:      make(map[string]*Task),
		registrations: make(map[string]registration),
		stats:         Stats{PerType: make(map[string]TypeStats)},
	}
}

// RegisterHandler binds handler to taskType with a per-invocation timeout.
// At most one handler per type; must be called before Start.
func (q *TaskQueue) RegisterHandler(taskType string, handler Handler, timeout time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("taskqueue: RegisterHandler(%q) called after Start", taskType)
	}
	if _, exists := q.registrations[taskType]; exists {
		return fmt.Errorf("taskqueue: handler already registered for type %q", taskType)
	}
	q.registrations[taskType] = registration{handler: handler, timeout: timeout}
	q.w.Register(taskType, q.adapt(handler))
	return nil
}

// QueueTask creates a Task and enqueues it in the priority-ordered ready
// set. If spec.DedupKey collides with a task still queued or running, no
// new task is created; the existing task's id is returned instead.
func (q *TaskQueue) QueueTask(spec Spec) (string, error) {
	q.mu.Lock()
	reg, ok := q.registrations[spec.Type]
	q.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("taskqueue: no handler registered for type %q: %w", spec.Type, errorsx.ErrUnknownType)
	}

	retryCfg := q.cfg.DefaultRetryConfig
	if spec.RetryConfig != nil {
		retryCfg = *spec.RetryConfig
	}
	maxRetries := spec.MaxRetries
	if maxRetries <= 0 {
		maxRetries = retryCfg.MaxAttempts
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}

	now := time.Now()
	t := &Task{
		ID:          uuid.NewString(),
		Type:        spec.Type,
		Payload:     spec.Payload,
		Priority:    spec.Priority,
		Attempt:     1,
		MaxRetries:  maxRetries,
		RetryConfig: retryCfg,
		EnqueuedAt:  now,
		NotBefore:   now,
		UserID:      spec.UserID,
		DedupKey:    spec.DedupKey,
		State:       StateQueued,
	}

	wt, err := toWorkerTask(t, reg.timeout)
	if err != nil {
		return "", fmt.Errorf("taskqueue: %w", err)
	}

	// The provider's own dedup map is the single atomic check-and-insert;
	// no separate dedup scan is taken over the registry.
	id, created := q.provider.Enqueue(wt)
	if !created {
		return id, nil
	}

	q.mu.Lock()
	q.registry[t.ID] = t
	q.mu.Unlock()
	return t.ID, nil
}

// Start resumes any tasks persisted by a prior Stop and opens the worker pool.
func (q *TaskQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	if q.dlq != nil {
		if err := q.resume(ctx); err != nil {
			q.log.Warn("failed to resume holding stream", zap.Error(err))
		}
	}

	q.mu.Lock()
	q.started = true
	q.mu.Unlock()

	go func() {
		if err := q.w.Start(ctx); err != nil {
			q.log.Error("task queue worker exited with error", zap.Error(err))
		}
	}()
	return nil
}

func (q *TaskQueue) resume(ctx context.Context) error {
	wtasks, entryIDs, err := resumeHolding(ctx, q.dlq)
	if err != nil {
		return err
	}
	if len(wtasks) == 0 {
		return nil
	}

	q.mu.Lock()
	for _, wt := range wtasks {
		t, err := fromWorkerTask(wt)
		if err != nil {
			q.log.Warn("skipping malformed holding task", zap.String("task_id", wt.ID), zap.Error(err))
			continue
		}
		q.registry[t.ID] = t
	}
	q.mu.Unlock()

	q.provider.Restore(wtasks)
	if _, err := q.dlq.Delete(ctx, keys.HoldingStream, entryIDs...); err != nil {
		q.log.Warn("failed to clear resumed holding entries", zap.Error(err))
	}
	q.log.Info("resumed tasks from holding stream", zap.Int("count", len(wtasks)))
	return nil
}

// Stop stops accepting new work implicitly (RegisterHandler already closed;
// QueueTask callers are expected to stop on their own signal), lets running
// workers complete within cfg.DrainGracePeriod (cut short by ctx), then
// persists whatever remains in the ready set.
func (q *TaskQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	q.started = false
	q.mu.Unlock()

	stopCtx, cancel := context.WithTimeout(ctx, q.cfg.DrainGracePeriod)
	defer cancel()
	if err := q.w.Stop(stopCtx); err != nil {
		q.log.Warn("task queue drain exceeded grace period", zap.Error(err))
	}

	residual := q.provider.Drain()
	if len(residual) == 0 || q.dlq == nil {
		return nil
	}
	if err := persistHolding(ctx, q.dlq, residual); err != nil {
		q.log.Warn("failed to persist residual ready set", zap.Error(err))
		return nil
	}
	q.log.Info("persisted residual tasks to holding stream", zap.Int("count", len(residual)))
	return nil
}

// Stats returns a point-in-time snapshot of queue health.
func (q *TaskQueue) Stats() Stats {
	q.statsMu.Lock()
	snapshot := Stats{
		CompletedTotal: q.stats.CompletedTotal,
		FailedTotal:    q.stats.FailedTotal,
		DeadTotal:      q.stats.DeadTotal,
		AvgLatencyMs:   q.stats.AvgLatencyMs,
		PerType:        make(map[string]TypeStats, len(q.stats.PerType)),
	}
	for k, v := range q.stats.PerType {
		snapshot.PerType[k] = v
	}
	q.statsMu.Unlock()

	snapshot.Running = q.provider.RunningCount()
	snapshot.Queued = q.provider.Len()
	return snapshot
}

// IsRunning implements health.WorkerHealthChecker.
func (q *TaskQueue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.started
}

// GetQueueLength implements health.WorkerHealthChecker.
func (q *TaskQueue) GetQueueLength() int {
	return q.provider.Len()
}

// GetQueueCapacity implements health.WorkerHealthChecker. The ready heap has
// no fixed bound (memory is the only limit), so capacity is not meaningful.
func (q *TaskQueue) GetQueueCapacity() int {
	return -1
}

// adapt wraps a domain Handler as the worker.Handler the engine invokes,
// translating Result back into the engine's plain-error contract: Ok
// returns nil (the engine ACKs); Fail forces the engine's own ShouldRetry
// check false (so it nacks without requeue, i.e. dead immediately); Retry
// returns an error and lets the engine's existing backoff/requeue logic run.
func (q *TaskQueue) adapt(handler Handler) worker.HandlerFunc {
	return func(ctx context.Context, wt *worker.Task) error {
		q.mu.Lock()
		t, ok := q.registry[wt.ID]
		q.mu.Unlock()
		if !ok {
			return fmt.Errorf("taskqueue: unknown task %s", wt.ID)
		}

		q.mu.Lock()
		t.State = StateRunning
		t.StartedAt = time.Now()
		q.mu.Unlock()

		result := handler.Handle(ctx, t)
		if err := ctx.Err(); err != nil {
			switch err {
			case context.DeadlineExceeded:
				result = ResultRetry("timeout")
			case context.Canceled:
				result = ResultRetry("cancelled")
			}
		}

		switch result.Kind {
		case ResultKindOk:
			q.recordSuccess(t)
			return nil
		case ResultKindFail:
			q.recordTerminalFailure(t, result.Reason)
			wt.Retry = wt.MaxRetry
			return fmt.Errorf("task %s failed: %s", t.ID, result.Reason)
		default: // ResultKindRetry
			if wt.Retry < wt.MaxRetry {
				q.recordRetryableFailure(t, result.Reason)
			} else {
				q.recordTerminalFailure(t, result.Reason)
			}
			return fmt.Errorf("task %s retry: %s", t.ID, result.Reason)
		}
	}
}

func (q *TaskQueue) recordSuccess(t *Task) {
	latency := time.Since(t.StartedAt)
	q.mu.Lock()
	t.State = StateSucceeded
	q.mu.Unlock()

	ms := float64(latency.Milliseconds())
	q.statsMu.Lock()
	q.stats.CompletedTotal++
	q.stats.AvgLatencyMs = movingAverage(q.stats.AvgLatencyMs, q.stats.CompletedTotal, ms)
	ts := q.stats.PerType[t.Type]
	ts.CompletedTotal++
	ts.AvgLatencyMs = movingAverage(ts.AvgLatencyMs, ts.CompletedTotal, ms)
	q.stats.PerType[t.Type] = ts
	q.statsMu.Unlock()

	q.log.Info("task succeeded",
		zap.String("task_id", t.ID), zap.String("type", t.Type), zap.Duration("latency", latency))
}

func (q *TaskQueue) recordRetryableFailure(t *Task, reason string) {
	q.mu.Lock()
	t.State = StateQueued
	t.LastError = reason
	t.Attempt++
	q.mu.Unlock()

	q.statsMu.Lock()
	q.stats.FailedTotal++
	ts := q.stats.PerType[t.Type]
	ts.FailedTotal++
	q.stats.PerType[t.Type] = ts
	q.statsMu.Unlock()

	q.log.Warn("task attempt failed, retrying",
		zap.String("task_id", t.ID), zap.String("type", t.Type), zap.String("reason", reason))
}

func (q *TaskQueue) recordTerminalFailure(t *Task, reason string) {
	q.mu.Lock()
	t.State = StateDead
	t.LastError = reason
	q.mu.Unlock()

	q.statsMu.Lock()
	q.stats.FailedTotal++
	q.stats.DeadTotal++
	ts := q.stats.PerType[t.Type]
	ts.FailedTotal++
	ts.DeadTotal++
	q.stats.PerType[t.Type] = ts
	q.statsMu.Unlock()

	q.pushDeadLetter(t, reason)
	q.log.Error("task dead",
		zap.String("task_id", t.ID), zap.String("type", t.Type), zap.String("reason", reason))
}

// pushDeadLetter emits a dead task onto the tasks dead-letter stream for
// visibility. Best effort: a failed push is logged, not retried, since the
// task's in-memory terminal state is already authoritative.
func (q *TaskQueue) pushDeadLetter(t *Task, reason string) {
	if q.dlq == nil {
		return
	}
	raw, err := json.Marshal(t)
	if err != nil {
		q.log.Warn("failed to marshal dead task", zap.String("task_id", t.ID), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := q.dlq.Push(ctx, deadStream, holdingScanLimit, map[string]interface{}{
		"id":     t.ID,
		"type":   t.Type,
		"reason": reason,
		"task":   string(raw),
	}); err != nil {
		q.log.Warn("failed to push task dead letter", zap.String("task_id", t.ID), zap.Error(err))
	}
}

func movingAverage(prevAvg float64, n int64, sample float64) float64 {
	if n <= 1 {
		return sample
	}
	return prevAvg + (sample-prevAvg)/float64(n)
}
