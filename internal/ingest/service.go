// Package ingest orchestrates the alert ingestion pipeline: validation,
// parsing, enrichment, deduplication, persistence, notification, and event
// publication.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"opssight/internal/dedup"
	"opssight/internal/domain"
	"opssight/internal/metrics"
	"opssight/internal/notification"
	"opssight/internal/source"
	"opssight/internal/store"
	"opssight/internal/webhook"
)

// Status is the outcome of processing one webhook delivery.
type Status string

const (
	// StatusProcessed means at least one alert was created or transitioned.
	StatusProcessed Status = "processed"
	// StatusIgnored means the payload was valid but produced no alert.
	StatusIgnored Status = "ignored"
	// StatusDuplicate means every alert in the delivery was suppressed by
	// the dedup window or an existing open alert.
	StatusDuplicate Status = "duplicate"
	// StatusRejected means validation failed.
	StatusRejected Status = "rejected"
)

// Result describes the outcome of one delivery for the HTTP response.
type Result struct {
	Status            Status `json:"status"`
	Message           string `json:"message,omitempty"`
	AlertID           string `json:"alert_id,omitempty"`
	Source            string `json:"source"`
	NotificationsSent int    `json:"notifications_sent"`
}

// EventPublisher publishes alert lifecycle events to the event stream.
type EventPublisher interface {
	Publish(ctx context.Context, alert *domain.Alert, eventType domain.AlertEventType) error
}

// Service runs the ingestion pipeline for webhook deliveries.
type Service struct {
	validator   *webhook.Validator
	registry    *source.Registry
	cache       dedup.Cache
	dedupWindow time.Duration
	alertRepo   store.AlertRepository
	notifier    notification.Notifier
	publisher   EventPublisher
	logger      *slog.Logger
}

// NewService creates a new ingestion service.
func NewService(
	validator *webhook.Validator,
	registry *source.Registry,
	cache dedup.Cache,
	dedupWindow time.Duration,
	alertRepo store.AlertRepository,
	notifier notification.Notifier,
	publisher EventPublisher,
	logger *slog.Logger,
) *Service {
	if dedupWindow <= 0 {
		dedupWindow = dedup.DefaultWindow
	}
	return &Service{
		validator:   validator,
		registry:    registry,
		cache:       cache,
		dedupWindow: dedupWindow,
		alertRepo:   alertRepo,
		notifier:    notifier,
		publisher:   publisher,
		logger:      logger,
	}
}

// Ingest processes one webhook delivery end to end.
func (s *Service) Ingest(ctx context.Context, src domain.Source, body []byte, headers map[string]string) (*Result, error) {
	start := time.Now()
	metrics.WebhooksReceivedTotal.WithLabelValues(string(src)).Inc()
	defer func() {
		metrics.IngestLatency.WithLabelValues(string(src)).Observe(time.Since(start).Seconds())
	}()

	validation := s.validator.Validate(src, body, headers)
	if !validation.Valid {
		metrics.WebhooksRejectedTotal.WithLabelValues(string(src), "validation").Inc()
		s.logger.Warn("rejected webhook delivery",
			"source", src,
			"reason", validation.Error,
		)
		return &Result{
			Status:  StatusRejected,
			Message: validation.Error,
			Source:  string(src),
		}, nil
	}
	if validation.Warning != "" {
		s.logger.Warn("webhook validation warning", "source", src, "warning", validation.Warning)
	}

	parser, ok := s.registry.Get(src)
	if !ok {
		metrics.WebhooksRejectedTotal.WithLabelValues(string(src), "unknown_source").Inc()
		return &Result{
			Status:  StatusRejected,
			Message: fmt.Sprintf("unknown source: %s", src),
			Source:  string(src),
		}, nil
	}

	alerts, err := parser.Parse(body, headers)
	if err != nil {
		metrics.WebhooksRejectedTotal.WithLabelValues(string(src), "payload").Inc()
		s.logger.Warn("failed to parse webhook payload",
			"source", src,
			"error", err,
		)
		return &Result{
			Status:  StatusRejected,
			Message: fmt.Sprintf("unparseable payload: %v", err),
			Source:  string(src),
		}, nil
	}
	if len(alerts) == 0 {
		metrics.AlertsIgnoredTotal.WithLabelValues(string(src)).Inc()
		return &Result{
			Status:  StatusIgnored,
			Message: "payload produced no alert",
			Source:  string(src),
		}, nil
	}

	result := &Result{Source: string(src)}
	var processed, duplicate bool
	for _, alert := range alerts {
		outcome, err := s.processOne(ctx, alert, result)
		if err != nil {
			return nil, err
		}
		switch outcome {
		case store.UpsertCreated, store.UpsertResolved:
			processed = true
		case store.UpsertUnchanged:
			duplicate = true
		}
	}

	switch {
	case processed:
		result.Status = StatusProcessed
	case duplicate:
		result.Status = StatusDuplicate
		result.Message = "duplicate delivery suppressed"
	default:
		result.Status = StatusIgnored
		result.Message = "payload produced no alert transition"
	}

	return result, nil
}

// IngestAlert runs a single alert through dedup, persistence,
// notification, and event publication, skipping the webhook validation and
// parsing stages. It serves alerts synthesized outside a webhook delivery,
// e.g. from Slack interactive components.
func (s *Service) IngestAlert(ctx context.Context, n *domain.NormalizedAlert) (*Result, error) {
	n.Normalize()

	result := &Result{Source: string(n.Source)}
	outcome, err := s.processOne(ctx, n, result)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case store.UpsertCreated, store.UpsertResolved:
		result.Status = StatusProcessed
	case store.UpsertUnchanged:
		result.Status = StatusDuplicate
		result.Message = "duplicate delivery suppressed"
	default:
		result.Status = StatusIgnored
		result.Message = "payload produced no alert transition"
	}

	return result, nil
}

// processOne runs dedup, persistence, notification, and event publication
// for a single normalized alert. Resolution deliveries bypass the dedup
// short-circuit so a resolution arriving inside the window of its own
// firing still closes the alert.
func (s *Service) processOne(ctx context.Context, n *domain.NormalizedAlert, result *Result) (store.UpsertOutcome, error) {
	fingerprint := dedup.Fingerprint(n)

	var recorded bool
	if !n.Resolved {
		seen, err := s.cache.CheckAndSet(ctx, fingerprint, s.dedupWindow)
		if err != nil {
			metrics.DedupChecksTotal.WithLabelValues("error").Inc()
			s.logger.Error("dedup cache check failed, continuing without dedup",
				"fingerprint", fingerprint,
				"error", err,
			)
		} else if seen {
			metrics.DedupChecksTotal.WithLabelValues("hit").Inc()
			metrics.AlertsDuplicateTotal.WithLabelValues(string(n.Source)).Inc()
			s.logger.Debug("suppressed duplicate delivery",
				"source", n.Source,
				"fingerprint", fingerprint,
			)
			return store.UpsertUnchanged, nil
		} else {
			metrics.DedupChecksTotal.WithLabelValues("miss").Inc()
			recorded = true
		}
	}

	alert, outcome, err := s.alertRepo.Upsert(ctx, n, fingerprint)
	if err != nil {
		// The fingerprint was recorded but nothing was persisted; clear it
		// so a retried delivery is not answered as a duplicate.
		if recorded {
			if forgetErr := s.cache.Forget(ctx, fingerprint); forgetErr != nil {
				s.logger.Error("failed to clear dedup entry after persistence failure",
					"fingerprint", fingerprint,
					"error", forgetErr,
				)
			}
		}
		return outcome, fmt.Errorf("failed to persist alert: %w", err)
	}

	switch outcome {
	case store.UpsertCreated:
		metrics.AlertsCreatedTotal.WithLabelValues(string(alert.Source), string(alert.Severity)).Inc()
		s.logger.Info("created alert",
			"alert_id", alert.ID,
			"source", alert.Source,
			"severity", alert.Severity,
			"title", alert.Title,
		)
		if result.AlertID == "" {
			result.AlertID = alert.ID
		}
		summary := s.notifier.Notify(ctx, alert, domain.AlertEventCreated)
		result.NotificationsSent += summary.SentCount()
		s.publishEvent(ctx, alert, domain.AlertEventCreated)

	case store.UpsertResolved:
		metrics.AlertsResolvedTotal.WithLabelValues(string(alert.Source)).Inc()
		s.logger.Info("resolved alert",
			"alert_id", alert.ID,
			"source", alert.Source,
		)
		if result.AlertID == "" {
			result.AlertID = alert.ID
		}
		summary := s.notifier.Notify(ctx, alert, domain.AlertEventResolved)
		result.NotificationsSent += summary.SentCount()
		s.publishEvent(ctx, alert, domain.AlertEventResolved)

	case store.UpsertUnchanged:
		metrics.AlertsDuplicateTotal.WithLabelValues(string(n.Source)).Inc()
		s.logger.Debug("delivery matched existing open alert",
			"source", n.Source,
			"fingerprint", fingerprint,
		)

	case store.UpsertSkipped:
		s.logger.Debug("skipped resolution without open alert",
			"source", n.Source,
			"fingerprint", fingerprint,
		)
	}

	return outcome, nil
}

// publishEvent emits a lifecycle event. Publish failures are logged, never
// surfaced: the alert is already persisted and the response must not fail.
func (s *Service) publishEvent(ctx context.Context, alert *domain.Alert, eventType domain.AlertEventType) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, alert, eventType); err != nil {
		s.logger.Error("failed to publish alert event",
			"alert_id", alert.ID,
			"type", eventType,
			"error", err,
		)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(eventType)).Inc()
}
