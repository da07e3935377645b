// Package alerting is the second example Event Bus consumer: it subscribes
// directly to system.events (bypassing the Task Queue entirely, unlike
// notify) and posts critical errors to an outbound webhook. It exists to
// show that not every consumer needs to become a task — some belong as a
// plain Bus.Subscribe handler.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"eventcore/internal/eventbus"
	"eventcore/internal/pkg/config"
	"eventcore/internal/pkg/logger"

	"go.uber.org/zap"
)

// Handler posts system.critical_error events to a configured webhook.
type Handler struct {
	cfg    config.AlertingConfig
	client *http.Client
	log    *logger.Logger
}

func NewHandler(cfg config.AlertingConfig, client *http.Client, log *logger.Logger) *Handler {
	return &Handler{cfg: cfg, client: client, log: log}
}

type webhookMessage struct {
	Service       string `json:"service"`
	Message       string `json:"message"`
	Trace         string `json:"trace,omitempty"`
	EnvelopeID    string `json:"envelope_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Handle implements eventbus.Handler for TypeCriticalError.
func (h *Handler) Handle(ctx context.Context, env eventbus.Envelope, raw any) eventbus.HandlerResult {
	p, ok := raw.(*eventbus.CriticalErrorPayload)
	if !ok {
		return eventbus.ResultFatal(fmt.Sprintf("unexpected payload type %T", raw))
	}

	body, err := json.Marshal(webhookMessage{
		Service:       p.Service,
		Message:       p.Message,
		Trace:         p.Trace,
		EnvelopeID:    env.ID,
		CorrelationID: env.CorrelationID,
	})
	if err != nil {
		return eventbus.ResultFatal(fmt.Sprintf("marshal webhook body: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eventbus.ResultFatal(fmt.Sprintf("build webhook request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return eventbus.ResultRetry(fmt.Sprintf("webhook request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return eventbus.ResultRetry(fmt.Sprintf("webhook returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return eventbus.ResultFatal(fmt.Sprintf("webhook rejected alert: %d", resp.StatusCode))
	}

	h.log.Info("critical error alert delivered", zap.String("service", p.Service), zap.String("envelope_id", env.ID))
	return eventbus.ResultOk()
}
