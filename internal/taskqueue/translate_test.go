package taskqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWorkerTask_AttemptRetryProjection(t *testing.T) {
	now := time.Now()
	task := &Task{
		ID:         "t-1",
		Type:       "notification.send",
		Payload:    map[string]any{"userId": "u-1"},
		Priority:   PriorityHigh,
		Attempt:    2,
		MaxRetries: 4,
		RetryConfig: RetryConfig{
			Strategy:  "exponential",
			BaseDelay: time.Second,
			MaxDelay:  time.Minute,
			Jitter:    true,
		},
		EnqueuedAt: now,
		NotBefore:  now,
		UserID:     "u-1",
		DedupKey:   "notify:env-1",
	}

	wt, err := toWorkerTask(task, 30*time.Second)
	require.NoError(t, err)

	assert.Equal(t, 1, wt.Retry, "Retry should be Attempt-1")
	assert.Equal(t, 3, wt.MaxRetry, "MaxRetry should be MaxRetries-1")
	assert.Equal(t, "notification.send", wt.Metadata["type"])
	assert.Equal(t, int(PriorityHigh), wt.Priority)
	assert.Equal(t, "notify:env-1", wt.DedupKey)
	assert.Equal(t, "u-1", wt.UserID)
	assert.True(t, wt.RetryPolicy.Jitter)
}

func TestFromWorkerTask_ReconstructsQueuedState(t *testing.T) {
	now := time.Now()
	task := &Task{
		ID:         "t-2",
		Type:       "notification.send",
		Payload:    map[string]any{"userId": "u-2"},
		Priority:   PriorityNormal,
		Attempt:    3,
		MaxRetries: 5,
		RetryConfig: RetryConfig{
			Strategy:  "linear",
			BaseDelay: 2 * time.Second,
		},
		EnqueuedAt: now,
		NotBefore:  now,
		UserID:     "u-2",
		DedupKey:   "notify:env-2",
	}

	wt, err := toWorkerTask(task, 30*time.Second)
	require.NoError(t, err)

	// Simulate two prior retries the engine recorded in place.
	wt.Retry = 2

	restored, err := fromWorkerTask(wt)
	require.NoError(t, err)

	assert.Equal(t, StateQueued, restored.State, "a resumed task always restarts queued")
	assert.Equal(t, 3, restored.Attempt, "Attempt = Retry+1")
	assert.Equal(t, 5, restored.MaxRetries, "MaxRetries = MaxRetry+1")
	assert.Equal(t, "notification.send", restored.Type)
	assert.Equal(t, "u-2", restored.UserID)
	assert.Equal(t, "notify:env-2", restored.DedupKey)
	assert.Equal(t, "u-2", restored.Payload["userId"])
}
