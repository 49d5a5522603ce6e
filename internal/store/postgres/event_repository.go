package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"opssight/internal/domain"
)

// EventRepository implements store.EventRepository backed by PostgreSQL.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new PostgreSQL-backed event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{pool: db.Pool()}
}

// Create persists an alert lifecycle event.
func (r *EventRepository) Create(ctx context.Context, event *domain.AlertEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO alert_events (id, alert_id, type, source, severity, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.AlertID,
		string(event.Type),
		string(event.Source),
		string(event.Severity),
		event.Fingerprint,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert event: %w", err)
	}

	return nil
}

// ListByAlert retrieves the events recorded for an alert, oldest first.
func (r *EventRepository) ListByAlert(ctx context.Context, alertID string) ([]*domain.AlertEvent, error) {
	query := `
		SELECT id, alert_id, type, source, severity, fingerprint, created_at
		FROM alert_events
		WHERE alert_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert events: %w", err)
	}
	defer rows.Close()

	events := []*domain.AlertEvent{}
	for rows.Next() {
		var (
			event    domain.AlertEvent
			typ      string
			source   string
			severity string
		)
		if err := rows.Scan(&event.ID, &event.AlertID, &typ, &source, &severity, &event.Fingerprint, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		event.Type = domain.AlertEventType(typ)
		event.Source = domain.Source(source)
		event.Severity = domain.Severity(severity)
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert events: %w", err)
	}

	return events, nil
}
