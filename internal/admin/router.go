package admin

import (
	"net/http"

	"eventcore/internal/pkg/rate"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the admin surface described by the system's admin
// endpoint contract onto e. limiter guards the two write endpoints only;
// reads stay unthrottled since they only touch in-memory/cheap reads.
func RegisterRoutes(e *echo.Echo, h *Handler, limiter rate.Limiter) {
	e.GET("/health", h.Health)
	e.GET("/streams/:stream/info", h.StreamInfo)
	e.GET("/streams/:stream/groups", h.StreamGroups)
	e.GET("/tasks/stats", h.TaskStats)

	writeGuard := echo.WrapMiddleware(rate.NewHTTPMiddleware(limiter, rate.WithKeyFunc(func(r *http.Request) string {
		return r.Method + " " + r.URL.Path
	})).Middleware)

	e.POST("/streams/:stream/groups/:group/republish-dead-letters", h.RepublishDeadLetters, writeGuard)
	e.POST("/tasks/queue", h.QueueTask, writeGuard)
}
