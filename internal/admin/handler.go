// Package admin exposes the system's operational surface over HTTP: health,
// stream/group introspection, dead-letter republish, and manual task
// enqueue. It is intentionally thin — every handler delegates straight to
// the eventbus.Bus, taskqueue.TaskQueue, or health.Service method that
// already does the real work.
package admin

import (
	"errors"
	"net/http"
	"time"

	"eventcore/internal/eventbus"
	"eventcore/internal/pkg/errorsx"
	"eventcore/internal/pkg/health"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/pkg/server"
	"eventcore/internal/taskqueue"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handler groups the dependencies every admin route needs.
type Handler struct {
	bus    *eventbus.Bus
	queue  *taskqueue.TaskQueue
	health *health.Service
	log    *logger.Logger
}

func NewHandler(bus *eventbus.Bus, queue *taskqueue.TaskQueue, healthSvc *health.Service, log *logger.Logger) *Handler {
	return &Handler{bus: bus, queue: queue, health: healthSvc, log: log}
}

func (h *Handler) Health(c echo.Context) error {
	resp := h.health.GetHealthResponse(c.Request().Context())
	status := http.StatusOK
	if resp.Status == health.StatusDown {
		status = http.StatusServiceUnavailable
	}
	return server.SuccessResponse(c, status, resp, "")
}

func (h *Handler) StreamInfo(c echo.Context) error {
	stream := c.Param("stream")
	info, err := h.bus.GetStreamInfo(c.Request().Context(), stream)
	if err != nil {
		return server.ErrorResponse(c, http.StatusBadGateway, errorsx.Code(err), err, "failed to read stream info")
	}
	return server.SuccessResponse(c, http.StatusOK, info, "")
}

func (h *Handler) StreamGroups(c echo.Context) error {
	stream := c.Param("stream")
	groups, err := h.bus.GetConsumerGroupInfo(c.Request().Context(), stream)
	if err != nil {
		return server.ErrorResponse(c, http.StatusBadGateway, errorsx.Code(err), err, "failed to read group info")
	}
	return server.SuccessResponse(c, http.StatusOK, groups, "")
}

type republishRequest struct {
	MaxAgeMs int64 `json:"maxAge"`
}

func (h *Handler) RepublishDeadLetters(c echo.Context) error {
	stream := c.Param("stream")
	group := c.Param("group")

	var req republishRequest
	if err := c.Bind(&req); err != nil {
		return server.ErrorResponse(c, http.StatusBadRequest, errorsx.CodeValidation, err, "invalid request body")
	}
	maxAge := time.Duration(req.MaxAgeMs) * time.Millisecond
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	n, err := h.bus.RepublishDeadLetters(c.Request().Context(), stream, group, maxAge)
	if err != nil {
		h.log.Error("republish dead letters failed", zap.String("stream", stream), zap.Error(err))
		return server.ErrorResponse(c, http.StatusBadGateway, errorsx.Code(err), err, "failed to republish dead letters")
	}
	return server.SuccessResponse(c, http.StatusOK, map[string]int{"republished": n}, "")
}

func (h *Handler) TaskStats(c echo.Context) error {
	return server.SuccessResponse(c, http.StatusOK, h.queue.Stats(), "")
}

type queueTaskRequest struct {
	Type     string         `json:"type"`
	Payload  map[string]any `json:"payload"`
	Priority string         `json:"priority"`
	UserID   string         `json:"userId"`
}

func (h *Handler) QueueTask(c echo.Context) error {
	var req queueTaskRequest
	if err := c.Bind(&req); err != nil {
		return server.ErrorResponse(c, http.StatusBadRequest, errorsx.CodeValidation, err, "invalid request body")
	}
	if req.Type == "" {
		return server.ErrorResponse(c, http.StatusBadRequest, errorsx.CodeValidation, errors.New("type is required"), "invalid request body")
	}

	priority, err := taskqueue.ParsePriority(req.Priority)
	if err != nil {
		return server.ErrorResponse(c, http.StatusBadRequest, errorsx.CodeValidation, err, "invalid priority")
	}

	id, err := h.queue.QueueTask(taskqueue.Spec{
		Type:     req.Type,
		Payload:  req.Payload,
		Priority: priority,
		UserID:   req.UserID,
	})
	if err != nil {
		return server.ErrorResponse(c, http.StatusBadGateway, errorsx.Code(err), err, "failed to queue task")
	}
	return server.SuccessResponse(c, http.StatusAccepted, map[string]string{"id": id}, "")
}
