// Package domain contains the core business entities and value objects for
// OpsSight alert ingestion. These models represent the ubiquitous language of
// the alert management domain.
package domain

import (
	"errors"
	"time"
)

// ErrAlertNotFound is returned when an alert cannot be found.
var ErrAlertNotFound = errors.New("alert not found")

// AlertStatus represents the current state of an alert.
type AlertStatus string

const (
	// AlertStatusActive indicates the alert condition is currently active.
	AlertStatusActive AlertStatus = "active"
	// AlertStatusAcknowledged indicates someone has taken ownership of the alert.
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	// AlertStatusResolved indicates the alert has been resolved.
	AlertStatusResolved AlertStatus = "resolved"
	// AlertStatusSuppressed indicates the alert is temporarily muted.
	AlertStatusSuppressed AlertStatus = "suppressed"
)

// Alert represents a persisted alert in the system.
// Alerts are created from normalized source payloads after deduplication.
// The pair (ExternalID, Source) is the natural idempotency key: at most one
// non-resolved alert may exist for it at a time.
type Alert struct {
	// ID is the unique database identifier for this alert.
	ID string `json:"id"`

	// Fingerprint is the deduplication fingerprint computed at ingestion.
	Fingerprint string `json:"fingerprint"`

	// ExternalID is the source-native identifier, empty when the source
	// provides none.
	ExternalID string `json:"external_id,omitempty"`

	// Source identifies the integration that produced this alert.
	Source Source `json:"source"`

	// Title is a human-readable summary of the alert.
	Title string `json:"title"`

	// Description carries the longer alert text.
	Description string `json:"description"`

	// Severity indicates the normalized severity level.
	Severity Severity `json:"severity"`

	// Category is the classification of the alert.
	Category Category `json:"category"`

	// Tags holds free-form labels from the source.
	Tags map[string]any `json:"tags,omitempty"`

	// Metadata holds semi-structured source payload fields.
	Metadata map[string]any `json:"metadata,omitempty"`

	// URL is a deep link back to the source system.
	URL string `json:"url,omitempty"`

	// Status indicates the current lifecycle state.
	Status AlertStatus `json:"status"`

	// SuppressedUntil is set while the alert is suppressed. The alert is
	// excluded from active views until this time but never deleted.
	SuppressedUntil *time.Time `json:"suppressed_until,omitempty"`

	// CreatedAt is when the alert was first created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the alert was last modified.
	UpdatedAt time.Time `json:"updated_at"`

	// AcknowledgedAt is when the alert was acknowledged, if ever.
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	// ResolvedAt is when the alert was resolved. Nil while active.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// NewAlert creates an active alert from a normalized source alert.
// The caller assigns the storage ID.
func NewAlert(n *NormalizedAlert, fingerprint string) *Alert {
	now := time.Now().UTC()
	return &Alert{
		Fingerprint: fingerprint,
		ExternalID:  n.ExternalID,
		Source:      n.Source,
		Title:       n.Title,
		Description: n.Description,
		Severity:    n.Severity,
		Category:    n.Category,
		Tags:        n.Tags,
		Metadata:    n.Metadata,
		URL:         n.URL,
		Status:      AlertStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsActive returns true if the alert is currently active.
func (a *Alert) IsActive() bool {
	return a.Status == AlertStatusActive
}

// IsResolved returns true if the alert has been resolved.
func (a *Alert) IsResolved() bool {
	return a.Status == AlertStatusResolved
}

// IsSuppressed returns true while a suppression window is in effect.
func (a *Alert) IsSuppressed() bool {
	return a.Status == AlertStatusSuppressed &&
		a.SuppressedUntil != nil &&
		time.Now().UTC().Before(*a.SuppressedUntil)
}

// Acknowledge marks the alert as acknowledged. Acknowledging a resolved
// alert is a no-op.
func (a *Alert) Acknowledge() {
	if a.IsResolved() {
		return
	}
	now := time.Now().UTC()
	a.Status = AlertStatusAcknowledged
	a.AcknowledgedAt = &now
	a.UpdatedAt = now
}

// Resolve marks the alert as resolved. Resolved is terminal for the
// automated pipeline.
func (a *Alert) Resolve() {
	now := time.Now().UTC()
	a.Status = AlertStatusResolved
	a.ResolvedAt = &now
	a.SuppressedUntil = nil
	a.UpdatedAt = now
}

// Suppress mutes the alert until now plus the given duration. The alert is
// excluded from active views while suppressed but not deleted.
func (a *Alert) Suppress(d time.Duration) {
	if a.IsResolved() {
		return
	}
	now := time.Now().UTC()
	until := now.Add(d)
	a.Status = AlertStatusSuppressed
	a.SuppressedUntil = &until
	a.UpdatedAt = now
}

// Unsuppress returns a suppressed alert to active once its window expires.
func (a *Alert) Unsuppress() {
	if a.Status != AlertStatusSuppressed {
		return
	}
	a.Status = AlertStatusActive
	a.SuppressedUntil = nil
	a.UpdatedAt = time.Now().UTC()
}

// AlertFilter provides filtering options for querying alerts.
type AlertFilter struct {
	Source   Source
	Status   AlertStatus
	Severity Severity
	Category Category
	Limit    int
	Offset   int
}
