package worker

import (
	"eventcore/internal/pkg/logger"
)

// MiddlewareConfig toggles the default middleware stack a caller wires onto
// a freshly constructed Worker.
type MiddlewareConfig struct {
	EnableLogging  bool
	EnableMetrics  bool
	EnableRecovery bool
	EnableTracing  bool
	EnableTimeout  bool
}

// DefaultMiddlewareConfig enables every middleware except Timeout, which most
// callers instead enforce per-task via Task.Timeout and the worker's own
// context deadline.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		EnableLogging:  true,
		EnableMetrics:  true,
		EnableRecovery: true,
		EnableTracing:  true,
		EnableTimeout:  false,
	}
}

// ApplyDefaultMiddlewares wires w.Use calls for every middleware enabled in cfg.
// Call once, after construction and before Start.
func ApplyDefaultMiddlewares(w *Worker, cfg MiddlewareConfig, log *logger.Logger) {
	if cfg.EnableRecovery {
		w.Use(RecoveryMiddleware(log))
	}
	if cfg.EnableLogging {
		w.Use(LoggingMiddleware(log))
	}
	if cfg.EnableMetrics {
		w.Use(MetricsMiddleware(NewMetricsCollector(log)))
	}
	if cfg.EnableTracing {
		w.Use(TracingMiddleware())
	}
	if cfg.EnableTimeout {
		w.Use(TimeoutMiddleware(log))
	}
}
