package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Payload is the JSON body posted to every custom webhook target.
type Payload struct {
	Type     string         `json:"type"`
	Username string         `json:"username"`
	Service  string         `json:"service"`
	Params   map[string]any `json:"params"`
	Time     int64          `json:"time"`
}

// WebhookDispatcher posts an event payload to a list of custom webhook URLs.
type WebhookDispatcher struct {
	urls    []string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewWebhookDispatcher creates a dispatcher for the given target URLs.
// With no URLs configured the dispatcher is a no-op.
func NewWebhookDispatcher(urls []string, timeout time.Duration, logger *slog.Logger) *WebhookDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookDispatcher{
		urls:    urls,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Send posts the payload to every configured URL. Each target is attempted
// independently; a failing target is logged and does not stop the others.
func (d *WebhookDispatcher) Send(ctx context.Context, payload Payload) {
	if len(d.urls) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("failed to marshal webhook payload", "error", err)
		return
	}

	for _, url := range d.urls {
		if err := d.post(ctx, url, body); err != nil {
			d.logger.Error("webhook delivery failed", "url", url, "error", err)
		}
	}
}

// post issues one POST with its own timeout boundary.
func (d *WebhookDispatcher) post(ctx context.Context, url string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
