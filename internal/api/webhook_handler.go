package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"opssight/internal/domain"
	"opssight/internal/ingest"
)

// WebhookHandler handles inbound webhook deliveries from all sources.
type WebhookHandler struct {
	service *ingest.Service
	logger  *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(service *ingest.Service, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		logger:  logger,
	}
}

// headersFromCtx flattens the request headers into the canonical-key map
// the validation and parsing layers expect.
func headersFromCtx(c *fiber.Ctx) map[string]string {
	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers[string(key)] = string(value)
	})
	return headers
}

// ingest runs the pipeline and writes the flat result object. Rejections
// map to 400, pipeline errors to 500, everything else to 200.
func (h *WebhookHandler) ingest(c *fiber.Ctx, src domain.Source) error {
	result, err := h.service.Ingest(c.Context(), src, c.Body(), headersFromCtx(c))
	if err != nil {
		h.logger.Error("ingestion pipeline failed", "source", src, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "internal error",
			"source":  string(src),
		})
	}

	status := fiber.StatusOK
	if result.Status == ingest.StatusRejected {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(result)
}

// Generic handles POST /webhook and POST /webhook/:webhook_id.
func (h *WebhookHandler) Generic(c *fiber.Ctx) error {
	return h.ingest(c, domain.SourceWebhook)
}

// GitHub handles POST /github/webhook.
func (h *WebhookHandler) GitHub(c *fiber.Ctx) error {
	return h.ingest(c, domain.SourceGitHub)
}

// Prometheus handles POST /prometheus/webhook.
func (h *WebhookHandler) Prometheus(c *fiber.Ctx) error {
	return h.ingest(c, domain.SourcePrometheus)
}

// Grafana handles POST /grafana/webhook.
func (h *WebhookHandler) Grafana(c *fiber.Ctx) error {
	return h.ingest(c, domain.SourceGrafana)
}

// PagerDuty handles POST /pagerduty/webhook.
func (h *WebhookHandler) PagerDuty(c *fiber.Ctx) error {
	return h.ingest(c, domain.SourcePagerDuty)
}

// SlackEvents handles POST /slack/events. Slack's URL verification
// handshake is answered with the challenge echo; everything else goes
// through the pipeline.
func (h *WebhookHandler) SlackEvents(c *fiber.Ctx) error {
	var envelope struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(c.Body(), &envelope); err == nil && envelope.Type == "url_verification" {
		return c.JSON(fiber.Map{"challenge": envelope.Challenge})
	}

	return h.ingest(c, domain.SourceSlack)
}

// slackInteraction is the block_actions payload shape sent to the
// interactivity endpoint.
type slackInteraction struct {
	Type    string        `json:"type"`
	Actions []slackAction `json:"actions"`
	User    struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

type slackAction struct {
	ActionID string `json:"action_id"`
	Value    string `json:"value"`
}

// slackAlertActions maps the recognized interactive action ids to the
// resolved state of the alert they synthesize. Unrecognized actions are
// acknowledged without creating anything.
var slackAlertActions = map[string]bool{
	"create_alert":  false,
	"resolve_alert": true,
}

// SlackInteractive handles POST /slack/interactive. Slack sends
// interactions as a form-encoded "payload" field holding JSON. Recognized
// block actions synthesize an alert from the interaction context and run
// it through the pipeline; the response is an ephemeral confirmation so
// the interaction does not error in the Slack client.
func (h *WebhookHandler) SlackInteractive(c *fiber.Ctx) error {
	payload := c.FormValue("payload")
	if payload == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "rejected",
			"message": "missing payload field",
		})
	}

	var interaction slackInteraction
	if err := json.Unmarshal([]byte(payload), &interaction); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "rejected",
			"message": "malformed payload",
		})
	}

	text := "Got it."
	if interaction.Type == "block_actions" {
		for _, action := range interaction.Actions {
			resolved, ok := slackAlertActions[action.ActionID]
			if !ok {
				continue
			}

			result, err := h.service.IngestAlert(c.Context(), alertFromInteraction(&interaction, action, resolved))
			if err != nil {
				h.logger.Error("failed to ingest slack interaction",
					"action", action.ActionID,
					"user", interaction.User.ID,
					"error", err,
				)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"response_type": "ephemeral",
					"text":          "Something went wrong, please try again.",
				})
			}

			switch result.Status {
			case ingest.StatusProcessed:
				if resolved {
					text = "Alert resolved."
				} else {
					text = "Alert created."
				}
			case ingest.StatusDuplicate:
				text = "Already tracking that alert."
			case ingest.StatusIgnored:
				text = "No open alert matched."
			}
		}
	}

	h.logger.Info("handled slack interaction",
		"type", interaction.Type,
		"user", interaction.User.ID,
	)

	return c.JSON(fiber.Map{
		"response_type": "ephemeral",
		"text":          text,
	})
}

// alertFromInteraction builds a normalized alert from a block action's
// context. The action value carries the operator-entered summary and is the
// alert's identity: no external id is set, so a later resolve action with
// the same summary fingerprints onto the alert it created.
func alertFromInteraction(in *slackInteraction, action slackAction, resolved bool) *domain.NormalizedAlert {
	title := strings.TrimSpace(action.Value)
	if title == "" {
		title = "Alert reported from Slack"
	}

	reporter := in.User.Username
	if reporter == "" {
		reporter = in.User.ID
	}

	n := &domain.NormalizedAlert{
		Title:       title,
		Description: fmt.Sprintf("Reported by %s via Slack interaction", reporter),
		Severity:    domain.NormalizeSeverity(action.Value),
		Source:      domain.SourceSlack,
		Resolved:    resolved,
		Tags: map[string]any{
			"channel":   in.Channel.ID,
			"user":      in.User.ID,
			"action_id": action.ActionID,
		},
	}
	n.Normalize()
	return n
}
