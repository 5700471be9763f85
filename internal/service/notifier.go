package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DecisionEvent describes a ledger transition pushed to the notification sink.
type DecisionEvent struct {
	Action  string    `json:"action"`
	BatchID string    `json:"batch_id"`
	ActorID string    `json:"actor_id"`
	Lines   []string  `json:"lines,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier delivers decision events best-effort. Implementations must never
// fail the ledger operation that produced the event.
type Notifier interface {
	Notify(ctx context.Context, event DecisionEvent)
}

// NopNotifier drops every event.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, DecisionEvent) {}

// WebhookNotifier posts events to a configured webhook URL. Delivery
// failures are logged and swallowed.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier constructs the notifier. An empty URL disables delivery.
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, event DecisionEvent) {
	if n.url == "" {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("failed to encode notification", zap.Error(err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		n.logger.Warn("failed to build notification request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("notification delivery failed", zap.String("action", event.Action), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		n.logger.Warn("notification rejected", zap.String("action", event.Action), zap.Int("status", resp.StatusCode))
	}
}
