// Package actions implements the audit/notify pipeline every mutating action
// passes through: lockout decision, exactly one audit event, then best-effort
// notification fan-out. The orchestrator mutation itself stays with the
// caller and only runs when the pipeline allowed the action.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shipops/ship/pkg/events"
	"github.com/shipops/ship/pkg/lockout"
	"github.com/shipops/ship/pkg/notify"
)

// Unit nouns used in user-facing notification text.
const (
	UnitService    = "service"
	UnitDeployment = "deployment"
)

// Pipeline gates actions and records the outcome. One Pipeline serves all
// in-flight requests; it holds no per-request state.
type Pipeline struct {
	evaluator *lockout.Evaluator
	store     events.Store
	notifier  *notify.Notifier
	unit      string
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline creates a Pipeline. unit is the platform noun used in
// notification text ("service" on Swarm, "deployment" on Kubernetes).
func NewPipeline(evaluator *lockout.Evaluator, store events.Store, notifier *notify.Notifier, unit string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if unit == "" {
		unit = UnitService
	}
	return &Pipeline{
		evaluator: evaluator,
		store:     store,
		notifier:  notifier,
		unit:      unit,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleAction runs the gating sequence for one action and reports whether
// the caller may perform the orchestrator mutation. Exactly one event is
// appended per call: an attempt_* record with empty parameters on denial, or
// the real action record with full parameters on allowance. The audit append
// always precedes the notification fan-out.
func (p *Pipeline) HandleAction(ctx context.Context, actionType, username, service string, params map[string]any) bool {
	allowed := p.evaluator.Allowed(username, service)
	millis := p.now().UnixMilli()

	event := &events.ActionEvent{
		Username:   username,
		Service:    service,
		Parameters: map[string]any{},
		Time:       millis,
	}
	if allowed {
		event.Type = actionType
		if params != nil {
			event.Parameters = params
		}
	} else {
		event.Type = events.AttemptType(actionType)
	}

	// Audit before notifying and before any mutation, so the trail reflects
	// intent even when a later step fails. An append failure is logged loudly
	// but does not block the action: losing one audit record is preferred
	// over taking the whole feature down with the logging backend.
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.Error("failed to append audit event",
			"type", event.Type,
			"service", service,
			"error", err)
	}

	p.notifier.Dispatch(ctx, p.buildNotification(actionType, event, allowed))

	return allowed
}

// buildNotification renders the webhook, Slack and email content for one
// event in either the blocked or the executed framing.
func (p *Pipeline) buildNotification(actionType string, event *events.ActionEvent, allowed bool) notify.Notification {
	var (
		text   string
		color  string
		fields []notify.SlackField
	)

	unitTitle := titleCase(p.unit)
	fields = append(fields,
		notify.SlackField{Title: "User", Value: event.Username},
		notify.SlackField{Title: unitTitle, Value: event.Service},
	)

	if allowed {
		color = notify.ColorExecuted
		switch actionType {
		case events.ActionUpdate:
			image := stringParam(event.Parameters, "image")
			oldVersion := stringParam(event.Parameters, "old_image_version")
			newVersion := stringParam(event.Parameters, "new_image_version")
			text = fmt.Sprintf("Updated the %s %s image from %s:%s to %s:%s",
				event.Service, p.unit, image, oldVersion, image, newVersion)
			fields = append(fields,
				notify.SlackField{Title: "Current Image", Value: fmt.Sprintf("%s:%s", image, oldVersion)},
				notify.SlackField{Title: "New Image", Value: fmt.Sprintf("%s:%s", image, newVersion)},
			)
		case events.ActionForceUpdate:
			text = fmt.Sprintf("Force re-deployed the %s %s", event.Service, p.unit)
		case events.ActionScale:
			scale := fmt.Sprintf("%v", event.Parameters["scale"])
			text = fmt.Sprintf("Scaled the %s %s to %s container(s)", event.Service, p.unit, scale)
			fields = append(fields, notify.SlackField{Title: "Scale", Value: scale})
		case events.ActionRestore:
			text = fmt.Sprintf("Restored the %s %s to the previous version", event.Service, p.unit)
		default:
			text = fmt.Sprintf("Performed %s on the %s %s", actionType, event.Service, p.unit)
		}
	} else {
		color = notify.ColorBlocked
		text = fmt.Sprintf("Attempt to %s the %s %s during lockout days/hours",
			actionVerb(actionType), event.Service, p.unit)
	}

	slackText := text + "\n\n---"

	title := "Ship: " + text
	body := emailParagraph(text, 15) + "<br/>" +
		emailField("User", event.Username) +
		emailField(unitTitle, event.Service)
	if allowed {
		switch actionType {
		case events.ActionUpdate:
			image := stringParam(event.Parameters, "image")
			body += emailField("Current Image", fmt.Sprintf("%s:%s", image, stringParam(event.Parameters, "old_image_version")))
			body += emailField("New Image", fmt.Sprintf("%s:%s", image, stringParam(event.Parameters, "new_image_version")))
		case events.ActionScale:
			body += emailField("Scale", fmt.Sprintf("%v", event.Parameters["scale"]))
		}
	}

	return notify.Notification{
		Webhook: notify.Payload{
			Type:     event.Type,
			Username: event.Username,
			Service:  event.Service,
			Params:   event.Parameters,
			Time:     event.Time,
		},
		Slack: notify.SlackMessage{
			Fallback: slackText,
			Text:     slackText,
			Color:    color,
			Fields:   fields,
		},
		EmailTitle: title,
		EmailBody:  body,
	}
}

// actionVerb maps an action type to the verb used in blocked notifications.
func actionVerb(actionType string) string {
	switch actionType {
	case events.ActionForceUpdate:
		return "force re-deploy"
	case events.ActionScale:
		return "scale"
	case events.ActionRestore:
		return "restore"
	default:
		return "update"
	}
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// emailParagraph renders one paragraph in the original notification style.
func emailParagraph(text string, marginBottom int) string {
	return fmt.Sprintf(`<p style="font-family: sans-serif; font-size: 14px; font-weight: normal; margin: 0; margin-bottom: %dpx;">%s</p>`, marginBottom, text)
}

// emailField renders one bolded key/value line.
func emailField(title, value string) string {
	return emailParagraph(fmt.Sprintf("<b>%s:</b> %s", title, value), 5)
}
