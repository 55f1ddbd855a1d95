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

// Slack message colors for the two framings.
const (
	// ColorBlocked marks attempt_* (denied) events.
	ColorBlocked = "danger"
	// ColorExecuted marks executed events.
	ColorExecuted = "good"
)

// SlackField is one titled value in a Slack message.
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// SlackMessage is the structured body posted to the Slack webhook.
type SlackMessage struct {
	Fallback string       `json:"fallback"`
	Text     string       `json:"text"`
	Color    string       `json:"color"`
	Fields   []SlackField `json:"fields"`
}

// SlackDispatcher posts structured messages to a single Slack webhook URL.
type SlackDispatcher struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewSlackDispatcher creates a dispatcher for the given webhook URL.
// With no URL configured the dispatcher is a no-op.
func NewSlackDispatcher(url string, timeout time.Duration, logger *slog.Logger) *SlackDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SlackDispatcher{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Send posts the message. Failures are logged and swallowed.
func (d *SlackDispatcher) Send(ctx context.Context, msg SlackMessage) {
	if d.url == "" {
		return
	}

	body, err := json.Marshal(msg)
	if err != nil {
		d.logger.Error("failed to marshal slack message", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		d.logger.Error("slack delivery failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("slack delivery failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		d.logger.Error("slack delivery failed", "error", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}
