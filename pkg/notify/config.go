// Package notify implements the three outbound notification channels fired
// for every gated action: custom webhooks, Slack, and email. Every channel is
// independent and best-effort: a delivery failure is logged and swallowed, it
// never reaches the caller and never blocks a sibling channel.
package notify

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the notification targets, read once at startup. All targets
// are independently optional.
type Config struct {
	WebhookURLs     []string // CUSTOM_WEBHOOK, comma-separated
	SlackWebhookURL string   // SLACK_WEBHOOK

	EmailSMTPHost   string // EMAIL_SMTP_HOST; empty disables email entirely
	EmailSMTPPort   int    // EMAIL_SMTP_PORT, default 25
	EmailSMTPSecure bool   // EMAIL_SMTP_SECURE
	EmailFrom       string // EMAIL_FROM
	EmailTo         string // EMAIL_TO

	// DispatchTimeout bounds every single delivery attempt so a slow target
	// cannot hang the request indefinitely.
	DispatchTimeout time.Duration
}

// DefaultConfig returns a configuration with every channel disabled.
func DefaultConfig() *Config {
	return &Config{
		EmailSMTPPort:   25,
		DispatchTimeout: 5 * time.Second,
	}
}

// ConfigFromEnv loads the notification targets from environment variables.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("CUSTOM_WEBHOOK"); v != "" {
		for _, u := range strings.Split(v, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				cfg.WebhookURLs = append(cfg.WebhookURLs, u)
			}
		}
	}

	cfg.SlackWebhookURL = os.Getenv("SLACK_WEBHOOK")

	cfg.EmailSMTPHost = os.Getenv("EMAIL_SMTP_HOST")
	if v := os.Getenv("EMAIL_SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.EmailSMTPPort = p
		}
	}
	if v := os.Getenv("EMAIL_SMTP_SECURE"); v != "" {
		cfg.EmailSMTPSecure, _ = strconv.ParseBool(v)
	}
	cfg.EmailFrom = os.Getenv("EMAIL_FROM")
	cfg.EmailTo = os.Getenv("EMAIL_TO")

	return cfg
}
