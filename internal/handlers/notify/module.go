package notify

import (
	"context"
	"time"

	"eventcore/internal/eventbus"
	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/taskqueue"

	"go.uber.org/fx"
)

// handlerTimeout bounds a single notification.send invocation, including
// the handler's own internal Expo retry loop.
const handlerTimeout = 20 * time.Second

// Module registers the notification.send handler with the Task Queue and
// bridges notification.events into it. It depends on taskqueue.Module and
// idempotency.Module rather than constructing either itself.
var Module = fx.Module("handlers-notify",
	fx.Provide(NewExpoConfig, NewHandler),
	fx.Invoke(register),
)

func NewExpoConfig(c *config.Config) config.ExpoConfig {
	return c.Expo
}

func register(lc fx.Lifecycle, q *taskqueue.TaskQueue, bus *eventbus.Bus, h *Handler, log *logger.Logger) error {
	if err := q.RegisterHandler(TaskType, h, handlerTimeout); err != nil {
		return err
	}

	bridge := taskqueue.NewEventBridge(bus, q, []taskqueue.Binding{Binding}, log)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return bridge.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			bridge.Stop()
			return nil
		},
	})
	return nil
}
