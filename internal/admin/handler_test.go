package admin

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/health"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/pkg/worker"
	"eventcore/internal/taskqueue"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&config.Config{
		Logger: config.LoggerConfig{Level: "error", Format: "json", OutputPath: "stdout"},
	})
	require.NoError(t, err)
	return log
}

func newTestTaskQueue(t *testing.T) *taskqueue.TaskQueue {
	t.Helper()
	log := newTestLogger(t)
	provider := worker.NewInProcessProvider(log)
	w := worker.New(provider, worker.DefaultConfig(), log)
	q := taskqueue.New(provider, w, nil, taskqueue.Config{
		MaxConcurrentTasks: 1,
		DrainGracePeriod:   100 * time.Millisecond,
	}, log)
	require.NoError(t, q.RegisterHandler("noop", taskqueue.HandlerFunc(func(ctx context.Context, task *taskqueue.Task) taskqueue.Result {
		return taskqueue.ResultOk()
	}), time.Second))
	return q
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	q := newTestTaskQueue(t)
	svc := health.NewService(health.DefaultServiceConfig())
	return NewHandler(nil, q, svc, newTestLogger(t))
}

func doRequest(h *Handler, method, path string, body []byte, route func(*Handler, echo.Context) error) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = route(h, c)
	return rec
}

func TestHealth_ReturnsServiceUnavailableWithNoProvidersRegistered(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/health", nil, (*Handler).Health)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "an empty health service reports down, not up")
}

func TestHealth_ReturnsOKWhenRegisteredProviderIsUp(t *testing.T) {
	h := newTestHandler(t)
	h.health.RegisterProvider(alwaysUpProvider{})
	rec := doRequest(h, http.MethodGet, "/health", nil, (*Handler).Health)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type alwaysUpProvider struct{}

func (alwaysUpProvider) Name() string { return "always-up" }
func (alwaysUpProvider) Check(ctx context.Context) health.HealthCheckResult {
	return health.HealthCheckResult{Name: "always-up", Status: health.StatusUp}
}

func TestTaskStats_ReturnsQueueSnapshot(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/tasks/stats", nil, (*Handler).TaskStats)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestQueueTask_RequiresType(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodPost, "/tasks/queue", []byte(`{}`), (*Handler).QueueTask)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"VALIDATION_ERROR"`)
	assert.NotContains(t, rec.Body.String(), `"error":"`, "error must be a structured object, not a bare string")
}

func TestQueueTask_RejectsUnknownPriority(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodPost, "/tasks/queue", []byte(`{"type":"noop","priority":"urgent"}`), (*Handler).QueueTask)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueTask_SucceedsForRegisteredType(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodPost, "/tasks/queue", []byte(`{"type":"noop","priority":"high"}`), (*Handler).QueueTask)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id"`)
}

func TestQueueTask_FailsForUnregisteredType(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodPost, "/tasks/queue", []byte(`{"type":"does-not-exist"}`), (*Handler).QueueTask)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"UNKNOWN_TYPE"`)
}
