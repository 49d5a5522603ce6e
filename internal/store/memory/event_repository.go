package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"opssight/internal/domain"
)

// EventRepository is an in-memory implementation of store.EventRepository.
type EventRepository struct {
	mu      sync.RWMutex
	byAlert map[string][]*domain.AlertEvent
}

// NewEventRepository creates a new in-memory event repository.
func NewEventRepository() *EventRepository {
	return &EventRepository{
		byAlert: make(map[string][]*domain.AlertEvent),
	}
}

// Create appends one event to the timeline.
func (r *EventRepository) Create(ctx context.Context, event *domain.AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *event
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	r.byAlert[event.AlertID] = append(r.byAlert[event.AlertID], &stored)
	return nil
}

// ListByAlert returns an alert's events, oldest first.
func (r *EventRepository) ListByAlert(ctx context.Context, alertID string) ([]*domain.AlertEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.byAlert[alertID]
	results := make([]*domain.AlertEvent, 0, len(events))
	for _, e := range events {
		result := *e
		results = append(results, &result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})

	return results, nil
}
