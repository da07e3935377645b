package worker

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"eventcore/internal/pkg/logger"

	"go.uber.org/zap"
)

// InProcessProvider is a Provider backed by an in-memory priority heap rather
// than an external backend. Ready tasks are ordered by (Priority desc,
// ScheduledAt asc, CreatedAt asc); a DedupKey suppresses a second enqueue
// while one task with that key is queued or running.
type InProcessProvider struct {
	mu      sync.Mutex
	ready   taskHeap
	dedup   map[string]string // dedup key -> task id, present while queued or running
	running map[string]*Task  // task id -> task, present while a worker holds it
	logger  *logger.Logger
}

// NewInProcessProvider constructs an empty provider.
func NewInProcessProvider(log *logger.Logger) *InProcessProvider {
	return &InProcessProvider{
		dedup:   make(map[string]string),
		running: make(map[string]*Task),
		logger:  log,
	}
}

// Enqueue adds task to the ready heap. If task.DedupKey is set and a task
// with that key is already queued or running, Enqueue returns that task's id
// and ok=false instead of creating a duplicate.
func (p *InProcessProvider) Enqueue(task *Task) (id string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if task.DedupKey != "" {
		if existing, dup := p.dedup[task.DedupKey]; dup {
			return existing, false
		}
		p.dedup[task.DedupKey] = task.ID
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	heap.Push(&p.ready, task)
	return task.ID, true
}

// Fetch pops the head of the ready heap if its ScheduledAt has arrived;
// while the head is still delayed it returns nil, even if a task behind the
// head is already due. It never blocks; the worker's poll loop handles backoff between empty reads.
func (p *InProcessProvider) Fetch(ctx context.Context) (*Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready.Len() == 0 {
		return nil, nil
	}
	head := p.ready[0]
	if !head.ScheduledAt.IsZero() && head.ScheduledAt.After(time.Now()) {
		return nil, nil
	}
	task := heap.Pop(&p.ready).(*Task)
	p.running[task.ID] = task
	return task, nil
}

// Ack marks task as terminally succeeded, releasing its dedup slot.
func (p *InProcessProvider) Ack(ctx context.Context, task *Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, task.ID)
	p.releaseDedup(task)
	return nil
}

// Nack either requeues task (retry) or releases it terminally (dead).
func (p *InProcessProvider) Nack(ctx context.Context, task *Task, requeue bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, task.ID)
	if requeue {
		heap.Push(&p.ready, task)
		return nil
	}
	p.releaseDedup(task)
	return nil
}

func (p *InProcessProvider) releaseDedup(task *Task) {
	if task.DedupKey == "" {
		return
	}
	if p.dedup[task.DedupKey] == task.ID {
		delete(p.dedup, task.DedupKey)
	}
}

// Close drains nothing; the provider holds no external resources.
func (p *InProcessProvider) Close() error {
	p.logger.Info("in-process provider closed")
	return nil
}

// Len reports the number of tasks currently ready (queued, not running).
func (p *InProcessProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready.Len()
}

// RunningCount reports the number of tasks currently held by a worker.
func (p *InProcessProvider) RunningCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.running)
}

// Drain removes and returns every ready task followed by every task still
// held as running, used when persisting the residual set across a graceful
// shutdown.
func (p *InProcessProvider) Drain() []*Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Task, 0, p.ready.Len())
	for p.ready.Len() > 0 {
		out = append(out, heap.Pop(&p.ready).(*Task))
	}
	for _, t := range p.running {
		out = append(out, t)
	}
	p.running = make(map[string]*Task)
	p.logger.Info("drained in-process provider", zap.Int("count", len(out)))
	return out
}

// Restore re-enqueues tasks previously returned by Drain, e.g. after loading
// them back from a holding stream at startup. Dedup keys are honored.
func (p *InProcessProvider) Restore(tasks []*Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range tasks {
		if t.DedupKey != "" {
			if _, dup := p.dedup[t.DedupKey]; dup {
				continue
			}
			p.dedup[t.DedupKey] = t.ID
		}
		heap.Push(&p.ready, t)
	}
}

// taskHeap implements container/heap.Interface over *Task, ordered by
// priority descending, then ScheduledAt ascending, then CreatedAt ascending.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	if !h[i].ScheduledAt.Equal(h[j].ScheduledAt) {
		return h[i].ScheduledAt.Before(h[j].ScheduledAt)
	}
	return h[i].CreatedAt.Before(h[j].CreatedAt)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*Task))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

