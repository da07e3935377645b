package maintenance

import (
	"context"
	"time"

	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/health"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/pkg/redis/dlq"
	"eventcore/internal/pkg/scheduler"
	"eventcore/internal/taskqueue"

	"go.uber.org/fx"
)

// Module wires the maintenance scheduler's job set on top of scheduler.Module.
var Module = fx.Module("maintenance",
	fx.Provide(NewSchedulerConfig),
	fx.Invoke(registerHooks),
)

// NewSchedulerConfig adapts the shared config into scheduler.Module's
// expected *scheduler.SchedulerConfig.
func NewSchedulerConfig(c *config.Config) *scheduler.SchedulerConfig {
	return &scheduler.SchedulerConfig{
		TickInterval:        time.Duration(c.Scheduler.TickIntervalMs) * time.Millisecond,
		MaxConcurrent:       10,
		BackendType:         "memory",
		LockTTL:             time.Duration(c.Scheduler.LockTTLMs) * time.Millisecond,
		LockRefreshInterval: time.Duration(c.Scheduler.LockRefreshInterval) * time.Millisecond,
	}
}

func registerHooks(lc fx.Lifecycle, s scheduler.Scheduler, d *dlq.DLQ, q *taskqueue.TaskQueue, healthSvc *health.Service, c *config.Config, log *logger.Logger) error {
	retention := time.Duration(c.TaskQueue.DeadLetterRetentionMs) * time.Millisecond
	if err := RegisterJobs(s, d, q, healthSvc, retention, log); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
	return nil
}
