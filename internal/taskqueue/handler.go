package taskqueue

import (
	"context"
	"time"
)

// ResultKind tags a Result, the same explicit tagged-sum style the Event Bus
// uses for HandlerResult, kept as its own type since the two failure
// taxonomies diverge (the Task Queue has no "fatal means dead-letter on the
// origin stream" concept; it has "fail means dead immediately").
type ResultKind int

const (
	ResultKindOk ResultKind = iota
	ResultKindRetry
	ResultKindFail
)

// Result is returned by every Handler invocation.
type Result struct {
	Kind   ResultKind
	Reason string
}

// ResultOk is the canonical success result.
func ResultOk() Result { return Result{Kind: ResultKindOk} }

// ResultRetry marks a retryable failure (network blips, upstream 5xx,
// transient auth refresh); the task is requeued with backoff.
func ResultRetry(reason string) Result { return Result{Kind: ResultKindRetry, Reason: reason} }

// ResultFail marks a non-retryable failure (validation, permanent upstream
// 4xx); the task goes directly to dead.
func ResultFail(reason string) Result { return Result{Kind: ResultKindFail, Reason: reason} }

// Handler processes one Task. Handlers must be idempotent on their
// observable effects since delivery is at-least-once; handlers that need
// dedup take an idempotency.Service (or TypedService[T]) as a constructor
// dependency, the way notify.NewHandler does.
type Handler interface {
	Handle(ctx context.Context, task *Task) Result
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, task *Task) Result

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, task *Task) Result {
	return f(ctx, task)
}

// registration pairs a handler with the per-type timeout fixed at
// RegisterHandler time; registration is closed once Start is called.
type registration struct {
	handler Handler
	timeout time.Duration
}
