package notify

import (
	"context"
	"testing"

	"eventcore/internal/eventbus"
	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/taskqueue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, cfg config.ExpoConfig) *Handler {
	t.Helper()
	log, err := logger.NewLogger(&config.Config{
		Logger: config.LoggerConfig{Level: "error", Format: "json", OutputPath: "stdout"},
	})
	require.NoError(t, err)
	return &Handler{cfg: cfg, log: log}
}

func validPayload() map[string]any {
	return map[string]any{
		"user_id":     "u-1",
		"title":       "hello",
		"body":        "world",
		"push_tokens": []string{"ExponentPushToken[abc]"},
		"channel":     "expo",
	}
}

func TestHandle_DisabledChannelFailsImmediately(t *testing.T) {
	h := newTestHandler(t, config.ExpoConfig{Enabled: false})
	task := &taskqueue.Task{ID: "t-1", Payload: validPayload()}

	result := h.Handle(context.Background(), task)
	assert.Equal(t, taskqueue.ResultKindFail, result.Kind)
}

func TestHandle_UnsupportedChannelFails(t *testing.T) {
	h := newTestHandler(t, config.ExpoConfig{Enabled: true})
	task := &taskqueue.Task{ID: "t-2", Payload: map[string]any{
		"user_id":     "u-1",
		"title":       "hello",
		"body":        "world",
		"push_tokens": []string{"ExponentPushToken[abc]"},
		"channel":     "fcm",
	}}

	result := h.Handle(context.Background(), task)
	assert.Equal(t, taskqueue.ResultKindFail, result.Kind)
}

func TestHandle_NoPushTokensFails(t *testing.T) {
	h := newTestHandler(t, config.ExpoConfig{Enabled: true})
	task := &taskqueue.Task{ID: "t-3", Payload: map[string]any{
		"user_id":     "u-1",
		"title":       "hello",
		"body":        "world",
		"push_tokens": []string{},
		"channel":     "expo",
	}}

	result := h.Handle(context.Background(), task)
	assert.Equal(t, taskqueue.ResultKindFail, result.Kind)
}

func TestHandle_MalformedPayloadFails(t *testing.T) {
	h := newTestHandler(t, config.ExpoConfig{Enabled: true})
	task := &taskqueue.Task{ID: "t-4", Payload: map[string]any{
		"push_tokens": "not-a-slice",
	}}

	result := h.Handle(context.Background(), task)
	assert.Equal(t, taskqueue.ResultKindFail, result.Kind)
}

func TestDecodePayload_MapsSnakeCaseFields(t *testing.T) {
	var p payload
	require.NoError(t, decodePayload(validPayload(), &p))
	assert.Equal(t, "u-1", p.UserID)
	assert.Equal(t, "hello", p.Title)
	assert.Equal(t, "world", p.Body)
	assert.Equal(t, []string{"ExponentPushToken[abc]"}, p.PushTokens)
	assert.Equal(t, "expo", p.Channel)
}

func TestBinding_ToSpecBuildsTaskSpec(t *testing.T) {
	env, err := eventbus.NewEnvelope(eventbus.StreamNotificationEvents, eventbus.TypeNotificationSendRequested, 1,
		eventbus.NotificationSendRequestedPayload{
			UserID:     "u-1",
			Title:      "hi",
			Body:       "there",
			PushTokens: []string{"tok-1"},
			Channel:    "expo",
		})
	require.NoError(t, err)

	src := &eventbus.NotificationSendRequestedPayload{
		UserID: "u-1", Title: "hi", Body: "there", PushTokens: []string{"tok-1"}, Channel: "expo",
	}

	spec, err := Binding.ToSpec(env, src)
	require.NoError(t, err)
	assert.Equal(t, TaskType, spec.Type)
	assert.Equal(t, taskqueue.PriorityHigh, spec.Priority)
	assert.Equal(t, "u-1", spec.UserID)
	assert.Equal(t, "notification.send:"+env.ID, spec.DedupKey)
	assert.Equal(t, "expo", spec.Payload["channel"])
}

func TestBinding_ToSpecRejectsWrongPayloadType(t *testing.T) {
	env, err := eventbus.NewEnvelope(eventbus.StreamNotificationEvents, eventbus.TypeNotificationSendRequested, 1, map[string]string{})
	require.NoError(t, err)

	_, err = Binding.ToSpec(env, &eventbus.CriticalErrorPayload{})
	require.Error(t, err)
}
