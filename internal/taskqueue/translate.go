package taskqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"eventcore/internal/pkg/worker"
)

// toWorkerTask projects a domain Task onto the engine's scheduling unit.
// worker.Task.Retry is 0-indexed ("retries already spent"); the domain's
// Attempt is 1-indexed ("the attempt currently running"), so Retry =
// Attempt-1. Likewise MaxRetry = MaxRetries-1, so the engine's own
// ShouldRetry() goes false exactly on the domain's final attempt.
func toWorkerTask(t *Task, timeout time.Duration) (*worker.Task, error) {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &worker.Task{
		ID:          t.ID,
		Payload:     payload,
		Metadata:    map[string]string{"type": t.Type},
		Retry:       t.Attempt - 1,
		MaxRetry:    t.MaxRetries - 1,
		Timeout:     timeout,
		CreatedAt:   t.EnqueuedAt,
		ScheduledAt: t.NotBefore,
		Priority:    int(t.Priority),
		DedupKey:    t.DedupKey,
		UserID:      t.UserID,
		RetryPolicy: &worker.RetryPolicy{
			Strategy:  worker.BackoffStrategy(t.RetryConfig.Strategy),
			BaseDelay: t.RetryConfig.BaseDelay,
			MaxDelay:  t.RetryConfig.MaxDelay,
			Jitter:    t.RetryConfig.Jitter,
		},
	}, nil
}

// fromWorkerTask reconstructs a domain Task from an engine task recovered
// from the holding stream. The reconstructed task always starts life back
// in StateQueued: a resumed task was, by definition, not mid-terminal when
// the process stopped.
func fromWorkerTask(wt *worker.Task) (*Task, error) {
	var payload map[string]any
	if len(wt.Payload) > 0 {
		if err := json.Unmarshal(wt.Payload, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	retryCfg := RetryConfig{Strategy: string(worker.BackoffExponential)}
	if wt.RetryPolicy != nil {
		retryCfg = RetryConfig{
			Strategy:  string(wt.RetryPolicy.Strategy),
			BaseDelay: wt.RetryPolicy.BaseDelay,
			MaxDelay:  wt.RetryPolicy.MaxDelay,
			Jitter:    wt.RetryPolicy.Jitter,
		}
	}
	retryCfg.MaxAttempts = wt.MaxRetry + 1

	return &Task{
		ID:          wt.ID,
		Type:        wt.Metadata["type"],
		Payload:     payload,
		Priority:    Priority(wt.Priority),
		Attempt:     wt.Retry + 1,
		MaxRetries:  wt.MaxRetry + 1,
		RetryConfig: retryCfg,
		EnqueuedAt:  wt.CreatedAt,
		NotBefore:   wt.ScheduledAt,
		UserID:      wt.UserID,
		DedupKey:    wt.DedupKey,
		State:       StateQueued,
	}, nil
}
