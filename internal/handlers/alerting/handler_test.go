package alerting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventcore/internal/eventbus"
	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandlerAgainst(t *testing.T, srv *httptest.Server) *Handler {
	t.Helper()
	log, err := logger.NewLogger(&config.Config{
		Logger: config.LoggerConfig{Level: "error", Format: "json", OutputPath: "stdout"},
	})
	require.NoError(t, err)
	return NewHandler(config.AlertingConfig{Enabled: true, WebhookURL: srv.URL}, srv.Client(), log)
}

func criticalErrorEnvelope(t *testing.T) eventbus.Envelope {
	t.Helper()
	env, err := eventbus.NewEnvelope(eventbus.StreamSystemEvents, eventbus.TypeCriticalError, 1,
		eventbus.CriticalErrorPayload{Service: "notify", Message: "boom"})
	require.NoError(t, err)
	return env
}

func TestHandle_SuccessOnOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newTestHandlerAgainst(t, srv)
	env := criticalErrorEnvelope(t)
	result := h.Handle(context.Background(), env, &eventbus.CriticalErrorPayload{Service: "notify", Message: "boom"})
	assert.Equal(t, eventbus.Ok, result.Kind)
}

func TestHandle_RetryOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := newTestHandlerAgainst(t, srv)
	env := criticalErrorEnvelope(t)
	result := h.Handle(context.Background(), env, &eventbus.CriticalErrorPayload{Service: "notify", Message: "boom"})
	assert.Equal(t, eventbus.Retry, result.Kind)
}

func TestHandle_FatalOn4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	h := newTestHandlerAgainst(t, srv)
	env := criticalErrorEnvelope(t)
	result := h.Handle(context.Background(), env, &eventbus.CriticalErrorPayload{Service: "notify", Message: "boom"})
	assert.Equal(t, eventbus.Fatal, result.Kind)
}

func TestHandle_FatalOnWrongPayloadType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("webhook must not be called for a malformed payload")
	}))
	defer srv.Close()

	h := newTestHandlerAgainst(t, srv)
	env := criticalErrorEnvelope(t)
	result := h.Handle(context.Background(), env, &eventbus.ServiceHealthPayload{Service: "notify", Status: "UP"})
	assert.Equal(t, eventbus.Fatal, result.Kind)
}

func TestHandle_PostsExpectedBody(t *testing.T) {
	var received webhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, decodeJSONBody(r, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := newTestHandlerAgainst(t, srv)
	env := criticalErrorEnvelope(t)
	payload := &eventbus.CriticalErrorPayload{Service: "notify", Message: "boom", Trace: "trace-1"}
	result := h.Handle(context.Background(), env, payload)

	require.Equal(t, eventbus.Ok, result.Kind)
	assert.Equal(t, "notify", received.Service)
	assert.Equal(t, "boom", received.Message)
	assert.Equal(t, "trace-1", received.Trace)
	assert.Equal(t, env.ID, received.EnvelopeID)
}
