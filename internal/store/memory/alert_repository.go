// Package memory provides in-memory implementations of the store interfaces
// for testing and development without external dependencies.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"opssight/internal/domain"
	"opssight/internal/store"
)

// AlertRepository is an in-memory implementation of store.AlertRepository.
// Alerts are indexed by storage id and, while open, by fingerprint. Holding
// the mutex across the whole upsert gives the same race safety the partial
// unique index provides in PostgreSQL.
type AlertRepository struct {
	mu sync.RWMutex

	// alerts stores all alerts by their storage id.
	alerts map[string]*domain.Alert

	// openByFingerprint indexes non-resolved alerts.
	openByFingerprint map[string]*domain.Alert
}

// NewAlertRepository creates a new in-memory alert repository.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{
		alerts:            make(map[string]*domain.Alert),
		openByFingerprint: make(map[string]*domain.Alert),
	}
}

// Upsert applies one normalized delivery with idempotent semantics.
func (r *AlertRepository) Upsert(ctx context.Context, n *domain.NormalizedAlert, fingerprint string) (*domain.Alert, store.UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.openByFingerprint[fingerprint]; ok {
		if n.Resolved && !existing.IsResolved() {
			existing.Resolve()
			delete(r.openByFingerprint, fingerprint)
			result := *existing
			return &result, store.UpsertResolved, nil
		}
		result := *existing
		return &result, store.UpsertUnchanged, nil
	}

	if n.Resolved {
		return nil, store.UpsertSkipped, nil
	}

	alert := domain.NewAlert(n, fingerprint)
	alert.ID = uuid.NewString()

	stored := *alert
	r.alerts[alert.ID] = &stored
	r.openByFingerprint[fingerprint] = &stored

	return alert, store.UpsertCreated, nil
}

// GetByID retrieves an alert by its storage id.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, ok := r.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	result := *alert
	return &result, nil
}

// GetOpenByExternalID retrieves the non-resolved alert for an external key.
func (r *AlertRepository) GetOpenByExternalID(ctx context.Context, externalID string, src domain.Source) (*domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, alert := range r.openByFingerprint {
		if alert.ExternalID == externalID && alert.Source == src {
			result := *alert
			return &result, nil
		}
	}
	return nil, domain.ErrAlertNotFound
}

// List retrieves alerts matching the filter, newest first.
func (r *AlertRepository) List(ctx context.Context, filter domain.AlertFilter) ([]*domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*domain.Alert
	for _, alert := range r.alerts {
		if filter.Source != "" && alert.Source != filter.Source {
			continue
		}
		if filter.Status != "" && alert.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if filter.Category != "" && alert.Category != filter.Category {
			continue
		}
		result := *alert
		results = append(results, &result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	start := filter.Offset
	if start > len(results) {
		start = len(results)
	}
	end := len(results)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	return results[start:end], nil
}

// Update persists lifecycle mutations to an existing alert.
func (r *AlertRepository) Update(ctx context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.alerts[alert.ID]
	if !ok {
		return domain.ErrAlertNotFound
	}

	stored := *alert
	r.alerts[alert.ID] = &stored

	if existing.Fingerprint != "" {
		if alert.IsResolved() {
			delete(r.openByFingerprint, existing.Fingerprint)
		} else {
			r.openByFingerprint[existing.Fingerprint] = &stored
		}
	}

	return nil
}
