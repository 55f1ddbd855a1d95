package notify

import (
	"context"
	_ "embed"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

//go:embed email.html
var emailTemplate string

// EmailDispatcher renders the HTML notification template and sends it via
// SMTP. With no SMTP host configured the dispatcher is a no-op.
type EmailDispatcher struct {
	host    string
	port    int
	secure  bool
	from    string
	to      string
	timeout time.Duration
	logger  *slog.Logger
}

// NewEmailDispatcher creates a dispatcher from the email section of the
// notification config.
func NewEmailDispatcher(cfg *Config, logger *slog.Logger) *EmailDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.DispatchTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EmailDispatcher{
		host:    cfg.EmailSMTPHost,
		port:    cfg.EmailSMTPPort,
		secure:  cfg.EmailSMTPSecure,
		from:    cfg.EmailFrom,
		to:      cfg.EmailTo,
		timeout: timeout,
		logger:  logger,
	}
}

// Send renders the template with the title and message body and delivers the
// mail. Failures are logged and swallowed.
func (d *EmailDispatcher) Send(ctx context.Context, title, message string) {
	if d.host == "" {
		return
	}

	html := renderEmail(title, message)

	msg := mail.NewMsg()
	if err := msg.From(d.from); err != nil {
		d.logger.Error("email delivery failed", "error", err)
		return
	}
	if err := msg.To(d.to); err != nil {
		d.logger.Error("email delivery failed", "error", err)
		return
	}
	msg.Subject(title)
	msg.SetBodyString(mail.TypeTextHTML, html)

	opts := []mail.Option{
		mail.WithPort(d.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(d.timeout),
	}
	if d.secure {
		opts = append(opts, mail.WithSSL())
	}

	client, err := mail.NewClient(d.host, opts...)
	if err != nil {
		d.logger.Error("email delivery failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		d.logger.Error("email delivery failed", "host", d.host, "error", err)
	}
}

// renderEmail fills the embedded HTML template placeholders.
func renderEmail(title, message string) string {
	html := strings.Replace(emailTemplate, "__CONTENT__", message, 1)
	html = strings.Replace(html, "__PRE_HEADER__", title, 1)
	html = strings.Replace(html, "__TITLE__", title, 1)
	return html
}
