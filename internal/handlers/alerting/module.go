package alerting

import (
	"context"

	"eventcore/internal/eventbus"
	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/logger"

	"go.uber.org/fx"
)

// Module subscribes the alerting handler to system.events when enabled.
var Module = fx.Module("handlers-alerting",
	fx.Provide(NewAlertingConfig, NewHandler),
	fx.Invoke(register),
)

func NewAlertingConfig(c *config.Config) config.AlertingConfig {
	return c.Alerting
}

func register(lc fx.Lifecycle, bus *eventbus.Bus, h *Handler, cfg config.AlertingConfig, log *logger.Logger) {
	if !cfg.Enabled {
		log.Info("alerting handler disabled")
		return
	}

	var handle eventbus.Handle
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			hdl := eventbus.HandlerFunc(h.Handle)
			got, err := bus.Subscribe(ctx, eventbus.StreamSystemEvents, "alerting", hdl, eventbus.SubscribeOptions{
				Concurrency: 1,
				FilterTypes: []string{eventbus.TypeCriticalError},
			})
			if err != nil {
				return err
			}
			handle = got
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if handle == "" {
				return nil
			}
			return bus.Unsubscribe(handle)
		},
	})
}
