// Package notify pings the events team when a visitor asks for a live
// agent, so hand-off requests are seen even with no console open.
package notify

import (
	"context"
	"fmt"

	"eventchat-backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

// Notifier is implemented by hand-off notification channels.
type Notifier interface {
	HandoffRequested(ctx context.Context, conv *models.Conversation)
}

// SlackNotifier posts hand-off notifications to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL}
}

// HandoffRequested is best-effort: failures are logged, never surfaced to
// the visitor.
func (n *SlackNotifier) HandoffRequested(ctx context.Context, conv *models.Conversation) {
	name := "a visitor"
	if conv.VisitorName != nil && *conv.VisitorName != "" {
		name = *conv.VisitorName
	}
	eventType := "event"
	if conv.EventType != nil && *conv.EventType != "" {
		eventType = *conv.EventType
	}
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("Live chat requested by %s (%s inquiry). Conversation: %s", name, eventType, conv.ID),
	}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		log.Warn().Err(err).Str("conv_id", conv.ID.String()).Msg("notify: slack webhook post failed")
	}
}

// NoopNotifier is used when no webhook is configured.
type NoopNotifier struct{}

func (NoopNotifier) HandoffRequested(context.Context, *models.Conversation) {}
