package taskqueue

import (
	"context"
	"fmt"
	"sync"

	"eventcore/internal/eventbus"
	"eventcore/internal/pkg/logger"

	"go.uber.org/zap"
)

// Binding maps one Event Bus event type onto a Task Queue task type: the
// Task Queue is itself one more Event Bus consumer (per the system's data
// flow), and a Binding is how a particular event becomes a particular task.
type Binding struct {
	Stream    string
	EventType string
	ToSpec    func(envelope eventbus.Envelope, payload any) (Spec, error)
}

// EventBridge subscribes the Task Queue to a fixed set of Bindings, turning
// matching envelopes into QueueTask calls. A validation or conversion
// failure dead-letters the envelope (it is not retryable by redelivery); a
// QueueTask failure (e.g. no handler registered) is retryable, since it may
// be a transient startup-ordering issue.
type EventBridge struct {
	bus      *eventbus.Bus
	q        *TaskQueue
	bindings []Binding
	log      *logger.Logger

	mu      sync.Mutex
	handles []eventbus.Handle
}

// NewEventBridge constructs a bridge over the given bindings. Bindings are
// grouped by stream so each stream gets exactly one subscription.
func NewEventBridge(bus *eventbus.Bus, q *TaskQueue, bindings []Binding, log *logger.Logger) *EventBridge {
	return &EventBridge{bus: bus, q: q, bindings: bindings, log: log}
}

// Start subscribes one handler per stream that carries at least one binding.
func (b *EventBridge) Start(ctx context.Context) error {
	byStream := make(map[string][]Binding)
	for _, bnd := range b.bindings {
		byStream[bnd.Stream] = append(byStream[bnd.Stream], bnd)
	}

	for stream, bindings := range byStream {
		bindings := bindings
		types := make([]string, 0, len(bindings))
		for _, bnd := range bindings {
			types = append(types, bnd.EventType)
		}

		handle, err := b.bus.Subscribe(ctx, stream, "taskqueue", b.dispatch(bindings), eventbus.SubscribeOptions{
			Concurrency: 1,
			FilterTypes: types,
		})
		if err != nil {
			return fmt.Errorf("subscribe task bridge on %s: %w", stream, err)
		}
		b.mu.Lock()
		b.handles = append(b.handles, handle)
		b.mu.Unlock()
	}

	b.log.Info("task queue event bridge started", zap.Int("bindings", len(b.bindings)))
	return nil
}

func (b *EventBridge) dispatch(bindings []Binding) eventbus.Handler {
	return eventbus.HandlerFunc(func(ctx context.Context, env eventbus.Envelope, payload any) eventbus.HandlerResult {
		for _, bnd := range bindings {
			if bnd.EventType != env.Type {
				continue
			}
			spec, err := bnd.ToSpec(env, payload)
			if err != nil {
				return eventbus.ResultFatal(fmt.Sprintf("build task spec: %v", err))
			}
			if _, err := b.q.QueueTask(spec); err != nil {
				return eventbus.ResultRetry(fmt.Sprintf("queue task: %v", err))
			}
			return eventbus.ResultOk()
		}
		return eventbus.ResultOk()
	})
}

// Stop unsubscribes every bridge subscription.
func (b *EventBridge) Stop() {
	b.mu.Lock()
	handles := b.handles
	b.handles = nil
	b.mu.Unlock()
	for _, h := range handles {
		_ = b.bus.Unsubscribe(h)
	}
}
