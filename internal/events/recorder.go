package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"opssight/internal/domain"
	"opssight/internal/queue"
	"opssight/internal/store"
)

// Recorder consumes the alert event stream and persists each event to the
// per-alert timeline.
type Recorder struct {
	consumer  queue.Consumer
	eventRepo store.EventRepository
	logger    *slog.Logger
}

// NewRecorder creates a new event recorder.
func NewRecorder(consumer queue.Consumer, eventRepo store.EventRepository, logger *slog.Logger) *Recorder {
	return &Recorder{
		consumer:  consumer,
		eventRepo: eventRepo,
		logger:    logger,
	}
}

// Start begins consuming events from the stream and recording them.
// This is a blocking call that runs until the context is canceled.
func (r *Recorder) Start(ctx context.Context) error {
	r.logger.Info("starting event recorder")
	return r.consumer.Start(ctx, r.handleMessage)
}

func (r *Recorder) handleMessage(ctx context.Context, msg *queue.Message) error {
	var event domain.AlertEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		r.logger.Error("failed to deserialize alert event", "error", err)
		// Do not error out: malformed messages would be redelivered forever.
		return nil
	}

	if event.AlertID == "" {
		r.logger.Warn("dropping alert event without alert id", "type", event.Type)
		return nil
	}

	if err := r.eventRepo.Create(ctx, &event); err != nil {
		r.logger.Error("failed to record alert event",
			"error", err,
			"alert_id", event.AlertID,
			"type", event.Type,
		)
		return err
	}

	r.logger.Debug("recorded alert event",
		"alert_id", event.AlertID,
		"type", event.Type,
	)

	return nil
}
