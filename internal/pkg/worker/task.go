package worker

import (
	"time"
)

// Task represents a unit of work to be processed by the worker
type Task struct {
	// ID is the unique identifier for the task
	ID string

	// Payload contains the raw data for the task
	Payload []byte

	// Metadata holds additional information about the task
	Metadata map[string]string

	// Retry is the current retry attempt count
	Retry int

	// MaxRetry is the maximum number of retry attempts allowed
	MaxRetry int

	// Timeout is the maximum duration for task execution
	Timeout time.Duration

	// CreatedAt is the timestamp when the task was created
	CreatedAt time.Time

	// ScheduledAt is when the task should be processed (for delayed tasks)
	ScheduledAt time.Time

	// Priority influences scheduling order for providers that support
	// priority ordering; providers that don't (plain FIFO streams) ignore it.
	Priority int

	// DedupKey suppresses a duplicate enqueue of the same logical task while
	// one with this key is still queued or running.
	DedupKey string

	// UserID is an optional tenancy hint carried alongside the task.
	UserID string

	// RetryPolicy overrides the worker's Config-level backoff calculation
	// for this task specifically; nil means fall back to Config.
	RetryPolicy *RetryPolicy
}

// ShouldRetry returns true if the task can be retried
func (t *Task) ShouldRetry() bool {
	return t.Retry < t.MaxRetry
}

// IncrementRetry increments the retry counter
func (t *Task) IncrementRetry() {
	t.Retry++
}

