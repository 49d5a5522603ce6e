package source

import (
	"encoding/json"
	"fmt"

	"opssight/internal/domain"
)

// prometheusWebhook is the Alertmanager webhook payload shape.
type prometheusWebhook struct {
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	Status            string            `json:"status"`
	Receiver          string            `json:"receiver"`
	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Alerts            []prometheusAlert `json:"alerts"`
}

type prometheusAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     string            `json:"startsAt"`
	EndsAt       string            `json:"endsAt"`
	GeneratorURL string            `json:"generatorURL"`
	Fingerprint  string            `json:"fingerprint"`
}

// PrometheusParser handles Alertmanager webhook deliveries. Each entry of the
// alerts array yields one normalized alert; the Alertmanager fingerprint is
// carried as the external id so re-deliveries and resolutions converge on the
// same stored alert.
type PrometheusParser struct{}

// NewPrometheusParser creates the Prometheus Alertmanager parser.
func NewPrometheusParser() *PrometheusParser {
	return &PrometheusParser{}
}

// Source returns the Prometheus source identifier.
func (p *PrometheusParser) Source() domain.Source {
	return domain.SourcePrometheus
}

// Parse extracts normalized alerts from an Alertmanager webhook payload.
func (p *PrometheusParser) Parse(body []byte, headers map[string]string) ([]*domain.NormalizedAlert, error) {
	var payload prometheusWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode prometheus payload: %w", err)
	}

	var alerts []*domain.NormalizedAlert
	for _, entry := range payload.Alerts {
		title := entry.Annotations["summary"]
		if title == "" {
			title = entry.Labels["alertname"]
		}
		if title == "" {
			continue
		}

		alert := &domain.NormalizedAlert{
			Title:       title,
			Description: entry.Annotations["description"],
			Severity:    prometheusSeverity(entry.Labels["severity"]),
			Source:      domain.SourcePrometheus,
			ExternalID:  entry.Fingerprint,
			URL:         entry.GeneratorURL,
			Resolved:    entry.Status == "resolved",
			Tags:        stringMapToAny(entry.Labels),
			Metadata: map[string]any{
				"annotations": entry.Annotations,
				"starts_at":   entry.StartsAt,
				"ends_at":     entry.EndsAt,
				"receiver":    payload.Receiver,
				"group_key":   payload.GroupKey,
			},
		}

		alert.Normalize()
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// prometheusSeverity maps Alertmanager severity labels onto the normalized
// scale. Alertmanager vocabularies use warning for medium and info or an
// absent label for low-priority alerts.
func prometheusSeverity(label string) domain.Severity {
	switch label {
	case "critical":
		return domain.SeverityCritical
	case "warning":
		return domain.SeverityMedium
	case "info", "none", "":
		return domain.SeverityLow
	default:
		return domain.NormalizeSeverity(label)
	}
}

// stringMapToAny widens a string map for the free-form tags field.
func stringMapToAny(m map[string]string) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
