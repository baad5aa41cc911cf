package lead

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Notifier delivers captured leads to a CRM
type Notifier interface {
	// Notify sends lead and returns the resulting status and the response body
	Notify(ctx context.Context, lead *Lead) (WebhookStatus, string)
}

// maxResponseBody caps how much of the CRM response is kept on the lead
const maxResponseBody = 4096

// Webhook POSTs leads as JSON to a URL
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a Webhook for url
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify treats any status below 300 as delivered
func (w *Webhook) Notify(ctx context.Context, lead *Lead) (WebhookStatus, string) {
	payload, err := json.Marshal(lead)
	if err != nil {
		slog.Error("Failed to encode lead for webhook", "lead_id", lead.ID, "error", err)
		return WebhookFailed, err.Error()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		slog.Error("Failed to build webhook request", "lead_id", lead.ID, "error", err)
		return WebhookFailed, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		slog.Warn("Webhook delivery failed", "lead_id", lead.ID, "error", err)
		return WebhookFailed, "Connection failed"
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode >= 300 {
		slog.Warn("Webhook rejected lead", "lead_id", lead.ID, "status", resp.StatusCode)
		return WebhookFailed, string(body)
	}
	return WebhookSuccess, string(body)
}
