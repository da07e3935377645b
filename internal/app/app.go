// Package app composes every module into one fx.App: the Event Bus, the
// Task Queue, the admin HTTP surface, the maintenance scheduler, and the
// example handlers that exercise them end to end.
package app

import (
	"eventcore/internal/admin"
	"eventcore/internal/eventbus"
	"eventcore/internal/handlers/alerting"
	"eventcore/internal/handlers/notify"
	"eventcore/internal/maintenance"
	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/health"
	"eventcore/internal/pkg/httpclient"
	"eventcore/internal/pkg/idempotency"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/pkg/rate"
	"eventcore/internal/pkg/redis"
	"eventcore/internal/pkg/redis/dlq"
	"eventcore/internal/pkg/scheduler"
	"eventcore/internal/taskqueue"

	"go.uber.org/fx"
)

// Module is the full application graph.
var Module = fx.Options(
	config.Module,
	logger.Module,
	redis.Module,
	dlq.Module,
	httpclient.Module,
	health.Module,
	fx.Provide(newIdempotencyConfig),
	idempotency.Module,
	rate.Module,
	scheduler.Module,

	eventbus.Module,
	taskqueue.Module,

	notify.Module,
	alerting.Module,

	maintenance.Module,
	admin.Module,
)

func newIdempotencyConfig() *idempotency.Config {
	return &idempotency.Config{
		RedisPrefix:      "eventcore:idempotency",
		UseMemoryStorage: false,
	}
}
