package domain

import "time"

// AlertEventType classifies entries in an alert's event timeline.
type AlertEventType string

const (
	// AlertEventCreated records the initial creation of an alert.
	AlertEventCreated AlertEventType = "created"
	// AlertEventResolved records an automated or manual resolution.
	AlertEventResolved AlertEventType = "resolved"
	// AlertEventAcknowledged records a human acknowledgement.
	AlertEventAcknowledged AlertEventType = "acknowledged"
	// AlertEventSuppressed records the start of a suppression window.
	AlertEventSuppressed AlertEventType = "suppressed"
)

// AlertEvent is one entry in an alert's lifecycle timeline. Events are
// published to the event stream after persistence and recorded
// asynchronously, so the ingestion response never waits on them.
type AlertEvent struct {
	// ID is the unique identifier of the event record.
	ID string `json:"id"`

	// AlertID references the alert this event belongs to.
	AlertID string `json:"alert_id"`

	// Type classifies the lifecycle transition.
	Type AlertEventType `json:"type"`

	// Source is the integration that triggered the transition.
	Source Source `json:"source"`

	// Severity is the alert severity at the time of the event.
	Severity Severity `json:"severity"`

	// Fingerprint is the alert's dedup fingerprint, used as the stream
	// partition key so one alert's events stay ordered.
	Fingerprint string `json:"fingerprint"`

	// CreatedAt is when the transition happened.
	CreatedAt time.Time `json:"created_at"`
}
