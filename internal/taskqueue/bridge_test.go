package taskqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventcore/internal/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnvelope(t *testing.T, eventType string) eventbus.Envelope {
	t.Helper()
	env, err := eventbus.NewEnvelope("test.events", eventType, 1, map[string]string{"hello": "world"})
	require.NoError(t, err)
	return env
}

func TestEventBridge_DispatchQueuesMatchingBinding(t *testing.T) {
	q, _ := newTestQueue(t)
	handled := make(chan struct{}, 1)
	require.NoError(t, q.RegisterHandler("notify.task", HandlerFunc(func(ctx context.Context, task *Task) Result {
		handled <- struct{}{}
		return ResultOk()
	}), time.Second))

	binding := Binding{
		Stream:    "test.events",
		EventType: "test.created",
		ToSpec: func(env eventbus.Envelope, payload any) (Spec, error) {
			return Spec{Type: "notify.task", Payload: map[string]any{"envelopeId": env.ID}}, nil
		},
	}

	bridge := NewEventBridge(nil, q, []Binding{binding}, newTestLogger(t))
	handler := bridge.dispatch([]Binding{binding})

	env := newTestEnvelope(t, "test.created")
	result := handler.Handle(context.Background(), env, map[string]string{"hello": "world"})
	assert.Equal(t, eventbus.Ok, result.Kind)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	defer func() { _ = q.Stop(context.Background()) }()

	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("bound handler never invoked after bridge queued the task")
	}
}

func TestEventBridge_DispatchIgnoresUnmatchedType(t *testing.T) {
	q, _ := newTestQueue(t)
	called := false
	require.NoError(t, q.RegisterHandler("notify.task", HandlerFunc(func(ctx context.Context, task *Task) Result {
		called = true
		return ResultOk()
	}), time.Second))

	binding := Binding{
		Stream:    "test.events",
		EventType: "test.created",
		ToSpec: func(env eventbus.Envelope, payload any) (Spec, error) {
			return Spec{Type: "notify.task"}, nil
		},
	}

	bridge := NewEventBridge(nil, q, []Binding{binding}, newTestLogger(t))
	handler := bridge.dispatch([]Binding{binding})

	env := newTestEnvelope(t, "test.other")
	result := handler.Handle(context.Background(), env, nil)
	assert.Equal(t, eventbus.Ok, result.Kind)
	assert.False(t, called, "a binding for a different event type must not fire")
	assert.Equal(t, 0, q.provider.Len())
}

func TestEventBridge_DispatchFatalOnSpecBuildError(t *testing.T) {
	q, _ := newTestQueue(t)
	require.NoError(t, q.RegisterHandler("notify.task", HandlerFunc(func(ctx context.Context, task *Task) Result {
		return ResultOk()
	}), time.Second))

	binding := Binding{
		Stream:    "test.events",
		EventType: "test.created",
		ToSpec: func(env eventbus.Envelope, payload any) (Spec, error) {
			return Spec{}, errors.New("malformed payload")
		},
	}

	bridge := NewEventBridge(nil, q, []Binding{binding}, newTestLogger(t))
	handler := bridge.dispatch([]Binding{binding})

	env := newTestEnvelope(t, "test.created")
	result := handler.Handle(context.Background(), env, nil)
	assert.Equal(t, eventbus.Fatal, result.Kind)
}

func TestEventBridge_DispatchRetryOnQueueFailure(t *testing.T) {
	q, _ := newTestQueue(t)
	// No handler registered for "unbound.task", so QueueTask fails.
	binding := Binding{
		Stream:    "test.events",
		EventType: "test.created",
		ToSpec: func(env eventbus.Envelope, payload any) (Spec, error) {
			return Spec{Type: "unbound.task"}, nil
		},
	}

	bridge := NewEventBridge(nil, q, []Binding{binding}, newTestLogger(t))
	handler := bridge.dispatch([]Binding{binding})

	env := newTestEnvelope(t, "test.created")
	result := handler.Handle(context.Background(), env, nil)
	assert.Equal(t, eventbus.Retry, result.Kind)
}

func TestNewEventBridge_RetainsEveryBinding(t *testing.T) {
	q, _ := newTestQueue(t)
	bindings := []Binding{
		{Stream: "a.events", EventType: "a.created", ToSpec: func(eventbus.Envelope, any) (Spec, error) { return Spec{}, nil }},
		{Stream: "a.events", EventType: "a.updated", ToSpec: func(eventbus.Envelope, any) (Spec, error) { return Spec{}, nil }},
	}
	bridge := NewEventBridge(nil, q, bindings, newTestLogger(t))
	assert.Len(t, bridge.bindings, 2)
}
