package source

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"opssight/internal/domain"
)

// slackEventEnvelope is the Slack Events API wrapper. The url_verification
// handshake is handled at the HTTP layer before parsing; this parser only
// sees event callbacks and raw message payloads.
type slackEventEnvelope struct {
	Type  string       `json:"type"`
	Event *slackMessage `json:"event"`

	// Fields present when the payload is a bare message rather than an
	// event callback (e.g. interactive-component synthesis).
	Text      string `json:"text"`
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
	User      string `json:"user"`
}

type slackMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
	User      string `json:"user"`
}

// alertSignalPattern matches explicit alert markers at the start of a line,
// e.g. "ALERT:", "ERROR -", or alarm emoji used by ops channels.
var alertSignalPattern = regexp.MustCompile(`(?im)^\s*(?:🚨|🔥|❌|⚠️)?\s*(alert|error|critical|incident|failure|outage|down)\b\s*[:\-]?`)

// resolutionPattern matches messages announcing that a problem is over.
var resolutionPattern = regexp.MustCompile(`(?i)\b(resolved|fixed|recovered|back to normal|ok now)\b|✅`)

// SlackParser extracts alerts from free-text Slack messages. Only messages
// carrying an explicit alert signal produce an alert; ordinary chat is
// ignored.
type SlackParser struct{}

// NewSlackParser creates the Slack message parser.
func NewSlackParser() *SlackParser {
	return &SlackParser{}
}

// Source returns the Slack source identifier.
func (p *SlackParser) Source() domain.Source {
	return domain.SourceSlack
}

// Parse extracts a normalized alert from a Slack event callback or message.
func (p *SlackParser) Parse(body []byte, headers map[string]string) ([]*domain.NormalizedAlert, error) {
	var envelope slackEventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode slack payload: %w", err)
	}

	msg := envelope.message()
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return nil, nil
	}

	if !alertSignalPattern.MatchString(msg.Text) && !resolutionPattern.MatchString(msg.Text) {
		return nil, nil
	}

	alert := &domain.NormalizedAlert{
		Title:       firstLine(msg.Text),
		Description: msg.Text,
		Severity:    domain.NormalizeSeverity(msg.Text),
		Source:      domain.SourceSlack,
		Resolved:    resolutionPattern.MatchString(msg.Text),
		Tags: map[string]any{
			"channel": msg.Channel,
			"user":    msg.User,
		},
	}

	// The channel plus message timestamp uniquely identifies a Slack
	// message, giving idempotency across Slack's retry deliveries.
	if msg.Channel != "" && msg.Timestamp != "" {
		alert.ExternalID = fmt.Sprintf("slack_%s_%s", msg.Channel, msg.Timestamp)
	}

	alert.Normalize()
	return []*domain.NormalizedAlert{alert}, nil
}

// message returns the inner event for an event callback, or a message built
// from top-level fields for bare payloads.
func (e *slackEventEnvelope) message() *slackMessage {
	if e.Event != nil {
		if e.Event.Type != "" && e.Event.Type != "message" && e.Event.Type != "app_mention" {
			return nil
		}
		return e.Event
	}
	if e.Text == "" {
		return nil
	}
	return &slackMessage{
		Text:      e.Text,
		Channel:   e.Channel,
		Timestamp: e.Timestamp,
		User:      e.User,
	}
}

// firstLine returns the first non-empty line of a message with alert
// markers trimmed.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return text
}
