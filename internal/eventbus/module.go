package eventbus

import (
	"context"

	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/logger"

	"go.uber.org/fx"
)

// processGroup is the logical consumer group name every in-process handler
// subscribes under; it is namespaced by config.EventBusConfig.GroupPrefix
// before reaching the backend, so multiple deployments sharing a Redis
// instance never collide.
const processGroup = "workers"

// Module exports the event bus for FX.
var Module = fx.Module("eventbus",
	fx.Provide(NewRegistry, NewConfig, New),
	fx.Invoke(registerHooks),
)

// NewConfig translates the application-wide EventBusConfig section.
func NewConfig(c *config.Config) Config {
	return FromAppConfig(c.EventBus)
}

func registerHooks(lc fx.Lifecycle, bus *Bus, registry *Registry, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			RegisterDefaultSchemas(registry)
			registry.Close()
			if err := bus.EnsureBaseGroups(ctx, processGroup); err != nil {
				return err
			}
			log.Info("event bus started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			bus.Close()
			log.Info("event bus stopped")
			return nil
		},
	})
}
