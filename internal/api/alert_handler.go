package api

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"opssight/internal/domain"
	"opssight/internal/events"
	"opssight/internal/store"
)

// defaultSuppressDuration applies when a suppress request names none.
const defaultSuppressDuration = time.Hour

// AlertHandler handles HTTP requests for alert lifecycle operations.
type AlertHandler struct {
	repo      store.AlertRepository
	eventRepo store.EventRepository
	publisher *events.Publisher
	logger    *slog.Logger
}

// NewAlertHandler creates a new alert handler. The publisher may be nil
// when the event stream is disabled.
func NewAlertHandler(repo store.AlertRepository, eventRepo store.EventRepository, publisher *events.Publisher, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		repo:      repo,
		eventRepo: eventRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// List handles GET /v1/alerts
// Returns alerts matching query parameters.
func (h *AlertHandler) List(c *fiber.Ctx) error {
	filter := domain.AlertFilter{}

	if status := c.Query("status"); status != "" {
		filter.Status = domain.AlertStatus(status)
	}
	if src := c.Query("source"); src != "" {
		filter.Source = domain.Source(src)
	}
	if severity := c.Query("severity"); severity != "" {
		filter.Severity = domain.Severity(severity)
	}
	if category := c.Query("category"); category != "" {
		filter.Category = domain.Category(category)
	}

	if limit := c.Query("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			filter.Offset = o
		}
	}
	if filter.Limit == 0 {
		filter.Limit = 100
	}

	alerts, err := h.repo.List(c.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list alerts", "error", err)
		return InternalError(c, "failed to list alerts")
	}

	return Success(c, alerts)
}

// GetByID handles GET /v1/alerts/:id
func (h *AlertHandler) GetByID(c *fiber.Ctx) error {
	alert, handled := h.loadAlert(c)
	if handled != nil || alert == nil {
		return handled
	}
	return Success(c, alert)
}

// Acknowledge handles POST /v1/alerts/:id/acknowledge
// Acknowledging a resolved alert is a no-op and returns a conflict.
func (h *AlertHandler) Acknowledge(c *fiber.Ctx) error {
	alert, handled := h.loadAlert(c)
	if handled != nil || alert == nil {
		return handled
	}
	if alert.IsResolved() {
		return Conflict(c, "alert is already resolved")
	}

	alert.Acknowledge()
	if err := h.repo.Update(c.Context(), alert); err != nil {
		h.logger.Error("failed to acknowledge alert", "alert_id", alert.ID, "error", err)
		return InternalError(c, "failed to acknowledge alert")
	}

	h.publishEvent(c, alert, domain.AlertEventAcknowledged)
	return Success(c, alert)
}

// Resolve handles POST /v1/alerts/:id/resolve
func (h *AlertHandler) Resolve(c *fiber.Ctx) error {
	alert, handled := h.loadAlert(c)
	if handled != nil || alert == nil {
		return handled
	}
	if alert.IsResolved() {
		return Conflict(c, "alert is already resolved")
	}

	alert.Resolve()
	if err := h.repo.Update(c.Context(), alert); err != nil {
		h.logger.Error("failed to resolve alert", "alert_id", alert.ID, "error", err)
		return InternalError(c, "failed to resolve alert")
	}

	h.publishEvent(c, alert, domain.AlertEventResolved)
	return Success(c, alert)
}

// Suppress handles POST /v1/alerts/:id/suppress
// The optional JSON body carries {"duration": "2h"}.
func (h *AlertHandler) Suppress(c *fiber.Ctx) error {
	alert, handled := h.loadAlert(c)
	if handled != nil || alert == nil {
		return handled
	}
	if alert.IsResolved() {
		return Conflict(c, "alert is already resolved")
	}

	duration := defaultSuppressDuration
	var body struct {
		Duration string `json:"duration"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return BadRequest(c, "invalid request body")
		}
		if body.Duration != "" {
			d, err := time.ParseDuration(body.Duration)
			if err != nil || d <= 0 {
				return ValidationError(c, "duration must be a positive Go duration string")
			}
			duration = d
		}
	}

	alert.Suppress(duration)
	if err := h.repo.Update(c.Context(), alert); err != nil {
		h.logger.Error("failed to suppress alert", "alert_id", alert.ID, "error", err)
		return InternalError(c, "failed to suppress alert")
	}

	h.publishEvent(c, alert, domain.AlertEventSuppressed)
	return Success(c, alert)
}

// Events handles GET /v1/alerts/:id/events
// Returns the alert's lifecycle timeline, oldest first.
func (h *AlertHandler) Events(c *fiber.Ctx) error {
	alert, handled := h.loadAlert(c)
	if handled != nil || alert == nil {
		return handled
	}

	timeline, err := h.eventRepo.ListByAlert(c.Context(), alert.ID)
	if err != nil {
		h.logger.Error("failed to list alert events", "alert_id", alert.ID, "error", err)
		return InternalError(c, "failed to list alert events")
	}

	return Success(c, timeline)
}

// loadAlert resolves the :id path parameter. On failure the error
// response has already been written and the returned alert is nil.
func (h *AlertHandler) loadAlert(c *fiber.Ctx) (*domain.Alert, error) {
	id := c.Params("id")
	if id == "" {
		return nil, BadRequest(c, "alert id is required")
	}

	alert, err := h.repo.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			return nil, NotFound(c, "alert not found")
		}
		h.logger.Error("failed to get alert", "alert_id", id, "error", err)
		return nil, InternalError(c, "failed to get alert")
	}

	return alert, nil
}

func (h *AlertHandler) publishEvent(c *fiber.Ctx, alert *domain.Alert, eventType domain.AlertEventType) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(c.Context(), alert, eventType); err != nil {
		h.logger.Error("failed to publish alert event",
			"alert_id", alert.ID,
			"type", eventType,
			"error", err,
		)
	}
}
