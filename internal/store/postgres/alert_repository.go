package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"opssight/internal/domain"
	"opssight/internal/store"
)

const alertColumns = `id, fingerprint, external_id, source, title, description,
	severity, category, tags, metadata, url, status, suppressed_until,
	created_at, updated_at, acknowledged_at, resolved_at`

// AlertRepository implements store.AlertRepository backed by PostgreSQL.
type AlertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository creates a new PostgreSQL-backed alert repository.
func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{pool: db.Pool()}
}

// Upsert applies an incoming normalized alert against the open alert sharing
// its fingerprint, if any. Insert races on the same fingerprint are resolved
// by the partial unique index: the losing insert becomes a no-op and the
// existing row is re-read and treated as a duplicate.
func (r *AlertRepository) Upsert(ctx context.Context, n *domain.NormalizedAlert, fingerprint string) (*domain.Alert, store.UpsertOutcome, error) {
	existing, err := r.getOpenByFingerprint(ctx, fingerprint)
	if err != nil && !errors.Is(err, domain.ErrAlertNotFound) {
		return nil, store.UpsertSkipped, err
	}

	if existing != nil {
		if n.Resolved {
			existing.Resolve()
			if err := r.update(ctx, existing); err != nil {
				return nil, store.UpsertSkipped, err
			}
			return existing, store.UpsertResolved, nil
		}
		return existing, store.UpsertUnchanged, nil
	}

	if n.Resolved {
		// Resolution for an alert that was never open (or already
		// resolved). Nothing to transition.
		return nil, store.UpsertSkipped, nil
	}

	alert := domain.NewAlert(n, fingerprint)
	alert.ID = uuid.NewString()
	inserted, err := r.insertOpen(ctx, alert)
	if err != nil {
		return nil, store.UpsertSkipped, err
	}
	if !inserted {
		// Lost the insert race; the winner's row is the open alert now.
		winner, err := r.getOpenByFingerprint(ctx, fingerprint)
		if err != nil {
			return nil, store.UpsertSkipped, err
		}
		return winner, store.UpsertUnchanged, nil
	}

	return alert, store.UpsertCreated, nil
}

func (r *AlertRepository) insertOpen(ctx context.Context, alert *domain.Alert) (bool, error) {
	tags, err := json.Marshal(alert.Tags)
	if err != nil {
		return false, fmt.Errorf("failed to marshal tags: %w", err)
	}
	metadata, err := json.Marshal(alert.Metadata)
	if err != nil {
		return false, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (fingerprint) WHERE status <> 'resolved' DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		alert.ID,
		alert.Fingerprint,
		nullString(alert.ExternalID),
		string(alert.Source),
		alert.Title,
		alert.Description,
		string(alert.Severity),
		string(alert.Category),
		tags,
		metadata,
		nullString(alert.URL),
		string(alert.Status),
		alert.SuppressedUntil,
		alert.CreatedAt,
		alert.UpdatedAt,
		alert.AcknowledgedAt,
		alert.ResolvedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert alert: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves an alert by its ID.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanAlert(row)
}

// GetOpenByExternalID retrieves the unresolved alert with the given external
// identifier from the given source.
func (r *AlertRepository) GetOpenByExternalID(ctx context.Context, externalID string, src domain.Source) (*domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + ` FROM alerts
		WHERE external_id = $1 AND source = $2 AND status <> 'resolved'
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := r.pool.QueryRow(ctx, query, externalID, string(src))
	return scanAlert(row)
}

func (r *AlertRepository) getOpenByFingerprint(ctx context.Context, fingerprint string) (*domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + ` FROM alerts
		WHERE fingerprint = $1 AND status <> 'resolved'
		LIMIT 1
	`
	row := r.pool.QueryRow(ctx, query, fingerprint)
	return scanAlert(row)
}

// List retrieves alerts matching the given filter, newest first.
func (r *AlertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	args := []any{}
	argPos := 1

	if filter.Source != "" {
		query += fmt.Sprintf(" AND source = $%d", argPos)
		args = append(args, string(filter.Source))
		argPos++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(filter.Status))
		argPos++
	}
	if filter.Severity != "" {
		query += fmt.Sprintf(" AND severity = $%d", argPos)
		args = append(args, string(filter.Severity))
		argPos++
	}
	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argPos)
		args = append(args, string(filter.Category))
		argPos++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
		argPos++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// Update persists lifecycle changes to an existing alert.
func (r *AlertRepository) Update(ctx context.Context, alert *domain.Alert) error {
	alert.UpdatedAt = time.Now().UTC()
	return r.update(ctx, alert)
}

func (r *AlertRepository) update(ctx context.Context, alert *domain.Alert) error {
	query := `
		UPDATE alerts
		SET severity = $2, status = $3, suppressed_until = $4,
			updated_at = $5, acknowledged_at = $6, resolved_at = $7
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		alert.ID,
		string(alert.Severity),
		string(alert.Status),
		alert.SuppressedUntil,
		alert.UpdatedAt,
		alert.AcknowledgedAt,
		alert.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*domain.Alert, error) {
	var (
		alert      domain.Alert
		externalID *string
		url        *string
		source     string
		severity   string
		category   string
		status     string
		tags       []byte
		metadata   []byte
	)

	err := row.Scan(
		&alert.ID,
		&alert.Fingerprint,
		&externalID,
		&source,
		&alert.Title,
		&alert.Description,
		&severity,
		&category,
		&tags,
		&metadata,
		&url,
		&status,
		&alert.SuppressedUntil,
		&alert.CreatedAt,
		&alert.UpdatedAt,
		&alert.AcknowledgedAt,
		&alert.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	if externalID != nil {
		alert.ExternalID = *externalID
	}
	if url != nil {
		alert.URL = *url
	}
	alert.Source = domain.Source(source)
	alert.Severity = domain.Severity(severity)
	alert.Category = domain.Category(category)
	alert.Status = domain.AlertStatus(status)

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &alert.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &alert.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &alert, nil
}

func scanAlerts(rows pgx.Rows) ([]*domain.Alert, error) {
	alerts := []*domain.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
