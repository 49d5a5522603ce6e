package notification

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"opssight/internal/domain"
)

// slackPoster is the subset of the Slack client the channel uses.
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackChannel delivers notifications as Slack messages. The recipient is a
// Slack channel ID.
type SlackChannel struct {
	client slackPoster
}

// NewSlackChannel creates a Slack channel using a bot token.
func NewSlackChannel(botToken string) *SlackChannel {
	return &SlackChannel{client: slack.New(botToken)}
}

// Name returns "slack".
func (c *SlackChannel) Name() string {
	return "slack"
}

// Send posts one notification message to a Slack channel.
func (c *SlackChannel) Send(ctx context.Context, alert *domain.Alert, event domain.AlertEventType, recipient string) error {
	message := fmt.Sprintf("%s %s\n%s",
		severityEmoji(alert.Severity), subjectFor(alert, event), bodyFor(alert, event))

	_, _, err := c.client.PostMessageContext(
		ctx,
		recipient,
		slack.MsgOptionText(message, false),
	)
	if err != nil {
		return fmt.Errorf("failed to post slack message: %w", err)
	}
	return nil
}

func severityEmoji(severity domain.Severity) string {
	switch severity {
	case domain.SeverityCritical:
		return ":rotating_light:"
	case domain.SeverityHigh:
		return ":fire:"
	case domain.SeverityMedium:
		return ":warning:"
	default:
		return ":information_source:"
	}
}
