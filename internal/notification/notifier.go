// Package notification delivers alert notifications across channels.
// Delivery fans out to every configured channel in parallel with a
// per-channel timeout, so one slow channel cannot stall the others.
package notification

import (
	"context"

	"opssight/internal/domain"
)

// Dispatch records one delivery attempt to a single recipient.
type Dispatch struct {
	// Channel is the channel name ("email", "slack", "webhook").
	Channel string `json:"channel"`

	// Recipient is the channel-specific address the attempt targeted.
	Recipient string `json:"recipient"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// Summary aggregates the outcome of one notification fan-out.
type Summary struct {
	// Sent lists the deliveries that succeeded.
	Sent []Dispatch `json:"sent"`

	// Failed lists the deliveries that did not.
	Failed []Dispatch `json:"failed"`
}

// SentCount returns the number of successful deliveries.
func (s Summary) SentCount() int {
	return len(s.Sent)
}

// Notifier sends notifications for alert lifecycle transitions.
type Notifier interface {
	// Notify delivers notifications for the given transition and reports
	// the per-recipient outcome. Delivery failures never fail ingestion,
	// so Notify returns a summary rather than an error.
	Notify(ctx context.Context, alert *domain.Alert, event domain.AlertEventType) Summary
}

// Channel delivers one notification to one recipient.
type Channel interface {
	// Name identifies the channel in config and dispatch summaries.
	Name() string

	// Send delivers a notification about the alert transition.
	Send(ctx context.Context, alert *domain.Alert, event domain.AlertEventType, recipient string) error
}

// Directory resolves which recipients get notified per channel.
// The static implementation reads recipients from config; a future
// implementation can route by team or severity.
type Directory interface {
	// Recipients returns the recipients for a channel and alert.
	Recipients(channel string, alert *domain.Alert) []string
}

// StaticDirectory returns the same recipient list for every alert.
type StaticDirectory struct {
	recipients map[string][]string
}

// NewStaticDirectory creates a directory from a channel-to-recipients map.
func NewStaticDirectory(recipients map[string][]string) *StaticDirectory {
	return &StaticDirectory{recipients: recipients}
}

// Recipients returns the configured recipients for a channel.
func (d *StaticDirectory) Recipients(channel string, _ *domain.Alert) []string {
	return d.recipients[channel]
}

// NopNotifier discards all notifications. Used when notifications are
// disabled in config.
type NopNotifier struct{}

// Notify returns an empty summary.
func (NopNotifier) Notify(_ context.Context, _ *domain.Alert, _ domain.AlertEventType) Summary {
	return Summary{}
}
