// Package notify wires the Task Queue's example handler: push notifications
// delivered through Expo. It exists to exercise the Event Bus and Task Queue
// end to end with one real typed handler, and to demonstrate the
// idempotence contract every handler is expected to honor.
package notify

import (
	"context"
	"fmt"
	"time"

	"eventcore/internal/eventbus"
	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/idempotency"
	"eventcore/internal/pkg/logger"
	"eventcore/internal/taskqueue"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"

	"go.uber.org/zap"
)

// TaskType is the Task Queue task type this handler registers for.
const TaskType = "notification.send"

// idempotencyTTL bounds how long a completed send is remembered. It only
// needs to outlive the Event Bus's own redelivery window (claim idle time
// plus a few sweep intervals), not the lifetime of the notification itself.
const idempotencyTTL = 24 * time.Hour

// sendResult is what gets round-tripped through the idempotency store so a
// replayed delivery returns the original outcome instead of resending.
type sendResult struct {
	Sent int `json:"sent"`
}

// Handler sends Expo push notifications for queued notification.send tasks.
// The Expo client is a constructor parameter rather than a shared
// package-level client, so credentials stay scoped to the handler that
// needs them.
type Handler struct {
	cfg    config.ExpoConfig
	client *expo.PushClient
	idem   *idempotency.TypedService[sendResult]
	log    *logger.Logger
}

// NewHandler constructs the notification.send handler. idem is the shared
// idempotency service wrapped for this handler's result type.
func NewHandler(cfg config.ExpoConfig, idem idempotency.Service, log *logger.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		client: expo.NewPushClient(nil),
		idem:   idempotency.NewTypedService[sendResult](idem),
		log:    log,
	}
}

// payload is the shape QueueTask populates from NotificationSendRequestedPayload.
type payload struct {
	UserID     string   `mapstructure:"user_id"`
	Title      string   `mapstructure:"title"`
	Body       string   `mapstructure:"body"`
	PushTokens []string `mapstructure:"push_tokens"`
	Channel    string   `mapstructure:"channel"`
}

// Handle implements taskqueue.Handler. It only sends for the expo channel;
// other channels are accepted but reported as a non-retryable failure since
// this codebase ships no other sender.
func (h *Handler) Handle(ctx context.Context, task *taskqueue.Task) taskqueue.Result {
	if !h.cfg.Enabled {
		return taskqueue.ResultFail("expo channel disabled")
	}

	var p payload
	if err := decodePayload(task.Payload, &p); err != nil {
		return taskqueue.ResultFail(fmt.Sprintf("decode payload: %v", err))
	}
	if p.Channel != "expo" {
		return taskqueue.ResultFail(fmt.Sprintf("unsupported channel %q", p.Channel))
	}
	if len(p.PushTokens) == 0 {
		return taskqueue.ResultFail("no push tokens")
	}

	key := task.DedupKey
	if key == "" {
		key = "notification.send:" + task.ID
	}
	res, err := h.idem.Execute(ctx, key, idempotencyTTL, func(ctx context.Context) (sendResult, error) {
		sent, err := h.send(ctx, p)
		return sendResult{Sent: sent}, err
	})
	if err != nil {
		return taskqueue.ResultRetry(err.Error())
	}

	h.log.Info("notification sent",
		zap.String("task_id", task.ID),
		zap.String("user_id", p.UserID),
		zap.Int("sent", res.Sent),
	)
	return taskqueue.ResultOk()
}

func (h *Handler) send(ctx context.Context, p payload) (int, error) {
	messages := make([]expo.PushMessage, 0, len(p.PushTokens))
	for _, raw := range p.PushTokens {
		token, err := expo.NewExponentPushToken(raw)
		if err != nil {
			h.log.Warn("invalid expo push token", zap.String("token", raw), zap.Error(err))
			continue
		}
		messages = append(messages, expo.PushMessage{
			To:       []expo.ExponentPushToken{token},
			Title:    p.Title,
			Body:     p.Body,
			Sound:    "default",
			Priority: expo.DefaultPriority,
		})
	}
	if len(messages) == 0 {
		return 0, fmt.Errorf("no valid expo push tokens")
	}

	var lastErr error
	for attempt := 0; attempt < h.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		responses, err := h.client.PublishMultiple(messages)
		if err != nil {
			lastErr = err
			continue
		}

		sent := 0
		retryable := false
		for _, r := range responses {
			if r.Status == expo.SuccessStatus {
				sent++
				continue
			}
			if r.Status == expo.ErrorDeviceNotRegistered || r.Status == expo.ErrorMessageTooBig {
				continue
			}
			retryable = true
			lastErr = fmt.Errorf("expo response: %s - %s", r.Status, r.Message)
		}
		if !retryable {
			return sent, nil
		}
	}
	return 0, fmt.Errorf("expo send failed after %d attempts: %w", h.cfg.MaxRetries, lastErr)
}

// Binding is the Event Bus-to-Task Queue wiring for notification.send,
// kept alongside the handler it feeds rather than in the generic bridge
// package, since it is the one piece that knows this event's shape.
var Binding = taskqueue.Binding{
	Stream:    eventbus.StreamNotificationEvents,
	EventType: eventbus.TypeNotificationSendRequested,
	ToSpec: func(env eventbus.Envelope, raw any) (taskqueue.Spec, error) {
		p, ok := raw.(*eventbus.NotificationSendRequestedPayload)
		if !ok {
			return taskqueue.Spec{}, fmt.Errorf("unexpected payload type %T", raw)
		}
		return taskqueue.Spec{
			Type:     TaskType,
			Priority: taskqueue.PriorityHigh,
			UserID:   p.UserID,
			DedupKey: "notification.send:" + env.ID,
			Payload: map[string]any{
				"user_id":     p.UserID,
				"title":       p.Title,
				"body":        p.Body,
				"push_tokens": p.PushTokens,
				"channel":     p.Channel,
			},
		}, nil
	},
}
