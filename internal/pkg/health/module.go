package health

import (
	"context"

	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Module exports the health module for FX
var Module = fx.Module("health",
	fx.Provide(NewHealthService),
	fx.Invoke(registerHooks),
)

// HealthServiceParams defines the dependencies for the health service.
// The process is stateless beyond the stream backend, so Redis is the only
// infrastructure provider registered here; the task queue registers its own
// provider (see internal/taskqueue/module.go).
type HealthServiceParams struct {
	fx.In

	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client `optional:"true"`
}

// NewHealthService constructs a new health service with auto-registered providers
func NewHealthService(params HealthServiceParams) *Service {
	serviceConfig := DefaultServiceConfig()
	serviceConfig.AsyncMode = true
	serviceConfig.AggregationStrategy = StrategyAll

	service := NewService(serviceConfig)

	if params.RedisClient != nil {
		redisProvider := NewRedisProvider(RedisProviderConfig{
			Name:       "redis",
			Client:     params.RedisClient,
			DegradedMS: 100,
		})
		service.RegisterProvider(redisProvider)
		params.Logger.Info("Registered Redis health provider")
	}

	params.Logger.Info("Health service initialized")
	return service
}

// registerHooks registers lifecycle hooks for the health service
func registerHooks(lc fx.Lifecycle, service *Service, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Health service started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping health service")
			service.Stop()
			return nil
		},
	})
}
