package notify

import (
	"context"
	"log/slog"
)

// Notification is one fully rendered fan-out: a webhook payload, a Slack
// message and an email, all derived from the same ActionEvent.
type Notification struct {
	Webhook    Payload
	Slack      SlackMessage
	EmailTitle string
	EmailBody  string
}

// Notifier fans a notification out to all three channels. Each channel is
// wrapped in its own error boundary inside the dispatcher, so a failing
// channel cannot stop the others or surface to the caller.
type Notifier struct {
	webhook *WebhookDispatcher
	slack   *SlackDispatcher
	email   *EmailDispatcher
	logger  *slog.Logger
}

// NewNotifier builds the three dispatchers from the configuration.
func NewNotifier(cfg *Config, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		webhook: NewWebhookDispatcher(cfg.WebhookURLs, cfg.DispatchTimeout, logger),
		slack:   NewSlackDispatcher(cfg.SlackWebhookURL, cfg.DispatchTimeout, logger),
		email:   NewEmailDispatcher(cfg, logger),
		logger:  logger,
	}
}

// Dispatch delivers the notification on every configured channel. All
// channels are always attempted; none is skipped because another failed.
func (n *Notifier) Dispatch(ctx context.Context, note Notification) {
	n.webhook.Send(ctx, note.Webhook)
	n.slack.Send(ctx, note.Slack)
	n.email.Send(ctx, note.EmailTitle, note.EmailBody)
}
