// Package store defines interfaces for alert persistence. These abstractions
// allow swapping implementations (PostgreSQL, in-memory) without changing
// business logic.
package store

import (
	"context"

	"opssight/internal/domain"
)

// UpsertOutcome describes what an idempotent upsert did.
type UpsertOutcome string

const (
	// UpsertCreated means a new alert row was inserted.
	UpsertCreated UpsertOutcome = "created"
	// UpsertResolved means an existing open alert was transitioned to resolved.
	UpsertResolved UpsertOutcome = "resolved"
	// UpsertUnchanged means an open alert already existed and was left as is.
	UpsertUnchanged UpsertOutcome = "unchanged"
	// UpsertSkipped means the incoming alert arrived already resolved with no
	// matching open alert, so nothing was materialized.
	UpsertSkipped UpsertOutcome = "skipped"
)

// AlertRepository persists alerts with idempotent upsert semantics.
// At most one non-resolved alert exists per fingerprint; the fingerprint is
// derived from (source, external_id) when the source provides a stable id,
// so cross-delivery idempotency follows from fingerprint uniqueness.
// All methods must be safe for concurrent use.
type AlertRepository interface {
	// Upsert applies one normalized alert delivery:
	//  - open alert exists and the delivery signals resolution: resolve it;
	//  - open alert exists otherwise: leave it unchanged;
	//  - no open alert and the delivery is already resolved: skip;
	//  - no open alert otherwise: insert a new active alert.
	// The returned alert is nil only for UpsertSkipped.
	Upsert(ctx context.Context, n *domain.NormalizedAlert, fingerprint string) (*domain.Alert, UpsertOutcome, error)

	// GetByID retrieves an alert by its storage id.
	GetByID(ctx context.Context, id string) (*domain.Alert, error)

	// GetOpenByExternalID retrieves the non-resolved alert for a
	// (external_id, source) pair, or domain.ErrAlertNotFound.
	GetOpenByExternalID(ctx context.Context, externalID string, src domain.Source) (*domain.Alert, error)

	// List retrieves alerts matching the filter criteria, newest first.
	List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error)

	// Update persists lifecycle mutations (acknowledge, resolve, suppress)
	// made on an alert loaded from the repository.
	Update(ctx context.Context, alert *domain.Alert) error
}

// EventRepository persists the per-alert lifecycle event timeline.
type EventRepository interface {
	// Create appends one event to the timeline.
	Create(ctx context.Context, event *domain.AlertEvent) error

	// ListByAlert returns an alert's events, oldest first.
	ListByAlert(ctx context.Context, alertID string) ([]*domain.AlertEvent, error)
}
