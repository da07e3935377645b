// Package taskqueue is an in-process scheduler over typed Tasks: a subset of
// events consumed off the Event Bus, plus a direct Queue API, run under a
// bounded worker pool with per-type handlers, retry policy, dedup and
// timeouts. It wraps internal/pkg/worker's generic engine with the domain
// semantics (priority levels, task state machine, stats) the engine itself
// does not know about.
package taskqueue

import (
	"fmt"
	"time"
)

// Priority orders the ready set; higher values run first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String renders the wire/log name for a Priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "normal"
	}
}

// ParsePriority accepts the four named levels and maps empty input to
// normal; any other input returns an error.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "", "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return PriorityNormal, fmt.Errorf("taskqueue: unknown priority %q", s)
	}
}

// State is a Task's position in its lifecycle.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateDead      State = "dead"
)

// RetryConfig is the per-task (or queue-default) backoff shape.
type RetryConfig struct {
	MaxAttempts int
	Strategy    string // exponential | linear | fixed
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// Task is the Task Queue's own record of a unit of work, distinct from the
// event that may have triggered it. Unlike internal/pkg/worker.Task (the
// engine's scheduling unit, keyed to the provider), a Task here also carries
// the fields the engine has no reason to know about: its lifecycle State,
// last failure reason, and arrival/attempt bookkeeping for Stats.
type Task struct {
	ID          string
	Type        string
	Payload     map[string]any
	Priority    Priority
	Attempt     int
	MaxRetries  int
	RetryConfig RetryConfig
	EnqueuedAt  time.Time
	NotBefore   time.Time
	UserID      string
	DedupKey    string
	State       State
	LastError   string
	StartedAt   time.Time
}

// Spec is the caller-supplied shape for QueueTask; a nil RetryConfig falls
// back to the queue's configured default. Priority is used as given, so its
// zero value is PriorityLow.
type Spec struct {
	Type        string
	Payload     map[string]any
	Priority    Priority
	MaxRetries  int
	RetryConfig *RetryConfig
	UserID      string
	DedupKey    string
}

// TypeStats is the per-type breakdown reported by Stats.
type TypeStats struct {
	CompletedTotal int64
	FailedTotal    int64
	DeadTotal      int64
	AvgLatencyMs   float64
}

// Stats is a point-in-time snapshot of queue health.
type Stats struct {
	Running        int
	Queued         int
	CompletedTotal int64
	FailedTotal    int64
	DeadTotal      int64
	AvgLatencyMs   float64
	PerType        map[string]TypeStats
}
