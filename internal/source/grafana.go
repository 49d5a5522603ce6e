package source

import (
	"encoding/json"
	"fmt"
	"strconv"

	"opssight/internal/domain"
)

// grafanaWebhook is the Grafana alert notification payload shape.
type grafanaWebhook struct {
	Title       string            `json:"title"`
	RuleID      int64             `json:"ruleId"`
	RuleName    string            `json:"ruleName"`
	RuleURL     string            `json:"ruleUrl"`
	State       string            `json:"state"`
	Message     string            `json:"message"`
	Tags        map[string]string `json:"tags"`
	EvalMatches []grafanaMatch    `json:"evalMatches"`
}

type grafanaMatch struct {
	Metric string            `json:"metric"`
	Value  float64           `json:"value"`
	Tags   map[string]string `json:"tags"`
}

// GrafanaParser handles Grafana alert notification webhooks. The rule state
// drives both severity and resolution: alerting is high, no_data and pending
// are medium, ok and paused are low, and an ok state resolves the alert.
type GrafanaParser struct{}

// NewGrafanaParser creates the Grafana parser.
func NewGrafanaParser() *GrafanaParser {
	return &GrafanaParser{}
}

// Source returns the Grafana source identifier.
func (p *GrafanaParser) Source() domain.Source {
	return domain.SourceGrafana
}

// Parse extracts a normalized alert from a Grafana notification.
func (p *GrafanaParser) Parse(body []byte, headers map[string]string) ([]*domain.NormalizedAlert, error) {
	var payload grafanaWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode grafana payload: %w", err)
	}

	title := payload.Title
	if title == "" {
		title = payload.RuleName
	}
	if title == "" {
		return nil, nil
	}

	alert := &domain.NormalizedAlert{
		Title:       title,
		Description: payload.Message,
		Severity:    grafanaSeverity(payload.State),
		Source:      domain.SourceGrafana,
		Category:    domain.CategoryMonitoring,
		URL:         payload.RuleURL,
		Resolved:    payload.State == "ok",
		Tags:        stringMapToAny(payload.Tags),
		Metadata: map[string]any{
			"state":     payload.State,
			"rule_name": payload.RuleName,
		},
	}

	if payload.RuleID != 0 {
		alert.ExternalID = "grafana_rule_" + strconv.FormatInt(payload.RuleID, 10)
	}

	if len(payload.EvalMatches) > 0 {
		matches := make([]map[string]any, 0, len(payload.EvalMatches))
		for _, m := range payload.EvalMatches {
			matches = append(matches, map[string]any{
				"metric": m.Metric,
				"value":  m.Value,
			})
		}
		alert.Metadata["eval_matches"] = matches
	}

	alert.Normalize()
	return []*domain.NormalizedAlert{alert}, nil
}

// grafanaSeverity maps a Grafana rule state onto the normalized scale.
func grafanaSeverity(state string) domain.Severity {
	switch state {
	case "alerting":
		return domain.SeverityHigh
	case "no_data", "pending":
		return domain.SeverityMedium
	case "ok", "paused":
		return domain.SeverityLow
	default:
		return domain.SeverityMedium
	}
}
