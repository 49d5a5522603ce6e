// Package events wires alert lifecycle events through the event stream.
// The ingestion pipeline publishes an event after each persisted state
// change; the Recorder consumes the stream and appends the events to the
// per-alert timeline.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"opssight/internal/domain"
	"opssight/internal/queue"
)

// Publisher publishes alert lifecycle events to the stream.
type Publisher struct {
	producer queue.Producer
	logger   *slog.Logger
}

// NewPublisher creates a new event publisher.
func NewPublisher(producer queue.Producer, logger *slog.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   logger,
	}
}

// Publish emits one lifecycle event for an alert. The alert fingerprint is
// the partition key, so events for the same alert are consumed in order.
func (p *Publisher) Publish(ctx context.Context, alert *domain.Alert, eventType domain.AlertEventType) error {
	event := &domain.AlertEvent{
		ID:          uuid.NewString(),
		AlertID:     alert.ID,
		Type:        eventType,
		Source:      alert.Source,
		Severity:    alert.Severity,
		Fingerprint: alert.Fingerprint,
		CreatedAt:   time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	msg := &queue.Message{
		Key:   []byte(alert.Fingerprint),
		Value: payload,
		Headers: map[string]string{
			queue.HeaderEventType: string(eventType),
		},
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish alert event: %w", err)
	}

	p.logger.Debug("published alert event",
		"alert_id", alert.ID,
		"type", eventType,
		"fingerprint", alert.Fingerprint,
	)

	return nil
}
