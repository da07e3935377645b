package taskqueue

import (
	"context"

	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/health"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/pkg/worker"

	"go.uber.org/fx"
)

// Module wires the core Task Queue: the in-process provider, the worker
// engine on top of it, and the TaskQueue that adds domain semantics. Handler
// registration and any Event Bus bridging are left to the packages that own
// those handlers (see internal/handlers/*), which depend on this module
// rather than the other way around.
var Module = fx.Module("taskqueue",
	fx.Provide(NewConfig, NewProvider, NewWorker, New),
	fx.Invoke(registerHealthProvider, registerHooks),
)

func NewConfig(c *config.Config) Config {
	return FromAppConfig(c.TaskQueue)
}

// NewProvider constructs the shared in-process ready-set provider.
func NewProvider(log *logger.Logger) *worker.InProcessProvider {
	return worker.NewInProcessProvider(log)
}

// NewWorker constructs the bounded worker pool over the provider, with the
// default middleware stack applied.
func NewWorker(provider *worker.InProcessProvider, cfg Config, log *logger.Logger) *worker.Worker {
	workerCfg := worker.DefaultConfig()
	workerCfg.Concurrency = cfg.MaxConcurrentTasks
	workerCfg.ShutdownTimeout = cfg.DrainGracePeriod

	w := worker.New(provider, workerCfg, log)
	worker.ApplyDefaultMiddlewares(w, worker.DefaultMiddlewareConfig(), log)
	return w
}

func registerHealthProvider(q *TaskQueue, svc *health.Service) {
	svc.RegisterProvider(health.NewWorkerProvider(health.WorkerProviderConfig{
		Name:    "task_queue",
		Checker: q,
	}))
}

func registerHooks(lc fx.Lifecycle, q *TaskQueue, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := q.Start(ctx); err != nil {
				return err
			}
			log.Info("task queue started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := q.Stop(ctx); err != nil {
				return err
			}
			log.Info("task queue stopped")
			return nil
		},
	})
}
