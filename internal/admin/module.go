package admin

import (
	"context"
	"fmt"
	"time"

	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/pkg/rate"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// Module wires the admin HTTP surface as its own Echo instance, bound to
// config.AdminConfig rather than the main server's address, so it can be
// disabled or exposed on a different interface independently.
var Module = fx.Module("admin",
	fx.Provide(NewHandler, NewLimiterConfig, NewEcho),
	fx.Invoke(registerHooks),
)

// NewLimiterConfig adapts the shared rate-limit config into the shape
// rate.Module's limiter constructor expects.
func NewLimiterConfig(c *config.Config) *rate.LimiterConfig {
	return &rate.LimiterConfig{
		Strategy: c.RateLimit.Strategy,
		Rate:     c.RateLimit.Rate,
		Burst:    c.RateLimit.Burst,
		Interval: time.Second,
		FailOpen: c.RateLimit.FailOpen,
		Storage:  rate.StorageConfig{Type: "memory"},
	}
}

func NewEcho(h *Handler, limiter rate.Limiter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	RegisterRoutes(e, h, limiter)
	return e
}

func registerHooks(lc fx.Lifecycle, e *echo.Echo, c *config.Config, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !c.Admin.Enabled {
				log.Info("admin surface disabled")
				return nil
			}
			addr := fmt.Sprintf("%s:%d", c.Admin.Host, c.Admin.Port)
			go func() {
				if err := e.Start(addr); err != nil {
					log.Info("admin server stopped")
				}
			}()
			log.Info("admin surface started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if !c.Admin.Enabled {
				return nil
			}
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	})
}
