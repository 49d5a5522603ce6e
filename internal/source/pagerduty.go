package source

import (
	"encoding/json"
	"fmt"

	"opssight/internal/domain"
)

// pagerdutyWebhook is the PagerDuty webhook payload shape: a batch of
// messages, each wrapping an incident.
type pagerdutyWebhook struct {
	Messages []pagerdutyMessage `json:"messages"`
}

type pagerdutyMessage struct {
	ID       string             `json:"id"`
	Event    string             `json:"event"`
	Incident *pagerdutyIncident `json:"incident"`
}

type pagerdutyIncident struct {
	ID             string            `json:"id"`
	IncidentNumber int               `json:"incident_number"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Status         string            `json:"status"`
	Urgency        string            `json:"urgency"`
	HTMLURL        string            `json:"html_url"`
	Service        *pagerdutyService `json:"service"`
}

type pagerdutyService struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PagerDutyParser handles PagerDuty webhook batches. Each message's incident
// yields one normalized alert keyed by the incident id, so acknowledge and
// resolve deliveries converge on the same stored alert.
type PagerDutyParser struct{}

// NewPagerDutyParser creates the PagerDuty parser.
func NewPagerDutyParser() *PagerDutyParser {
	return &PagerDutyParser{}
}

// Source returns the PagerDuty source identifier.
func (p *PagerDutyParser) Source() domain.Source {
	return domain.SourcePagerDuty
}

// Parse extracts normalized alerts from a PagerDuty webhook batch.
func (p *PagerDutyParser) Parse(body []byte, headers map[string]string) ([]*domain.NormalizedAlert, error) {
	var payload pagerdutyWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode pagerduty payload: %w", err)
	}

	var alerts []*domain.NormalizedAlert
	for _, msg := range payload.Messages {
		incident := msg.Incident
		if incident == nil {
			continue
		}

		title := incident.Title
		if title == "" {
			title = incident.Description
		}
		if title == "" {
			continue
		}

		alert := &domain.NormalizedAlert{
			Title:       title,
			Description: incident.Description,
			Severity:    pagerdutySeverity(incident.Urgency),
			Source:      domain.SourcePagerDuty,
			ExternalID:  incident.ID,
			URL:         incident.HTMLURL,
			Resolved:    incident.Status == "resolved",
			Metadata: map[string]any{
				"incident_number": incident.IncidentNumber,
				"status":          incident.Status,
				"event":           msg.Event,
			},
		}

		if incident.Service != nil {
			alert.Tags = map[string]any{"service": incident.Service.Name}
		}

		alert.Normalize()
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// pagerdutySeverity maps PagerDuty urgency onto the normalized scale.
// PagerDuty only distinguishes low and high; anything else defaults to
// medium.
func pagerdutySeverity(urgency string) domain.Severity {
	switch urgency {
	case "high":
		return domain.SeverityHigh
	case "low":
		return domain.SeverityLow
	default:
		return domain.SeverityMedium
	}
}
