package source

import (
	"testing"

	"opssight/internal/domain"
)

func TestGrafanaParser_Alerting(t *testing.T) {
	parser := NewGrafanaParser()

	body := []byte(`{
		"title": "[Alerting] Memory usage",
		"ruleId": 7,
		"ruleName": "Memory usage",
		"ruleUrl": "http://grafana/d/abc",
		"state": "alerting",
		"message": "memory above 95%",
		"evalMatches": [{"metric": "mem_used", "value": 96.2}]
	}`)

	alerts, err := parser.Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("Parse() returned %d alerts, want 1", len(alerts))
	}

	alert := alerts[0]
	if alert.Severity != domain.SeverityHigh {
		t.Errorf("Severity = %v, alerting should map to high", alert.Severity)
	}
	if alert.ExternalID != "grafana_rule_7" {
		t.Errorf("ExternalID = %q", alert.ExternalID)
	}
	if alert.Resolved {
		t.Error("alerting state must not be resolved")
	}
	if alert.URL != "http://grafana/d/abc" {
		t.Errorf("URL = %q", alert.URL)
	}
}

func TestGrafanaParser_StateMapping(t *testing.T) {
	tests := []struct {
		state    string
		severity domain.Severity
		resolved bool
	}{
		{"alerting", domain.SeverityHigh, false},
		{"no_data", domain.SeverityMedium, false},
		{"pending", domain.SeverityMedium, false},
		{"ok", domain.SeverityLow, true},
		{"paused", domain.SeverityLow, false},
	}

	parser := NewGrafanaParser()
	for _, tt := range tests {
		body := []byte(`{"title": "t", "state": "` + tt.state + `"}`)
		alerts, err := parser.Parse(body, nil)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if alerts[0].Severity != tt.severity {
			t.Errorf("state %q: Severity = %v, want %v", tt.state, alerts[0].Severity, tt.severity)
		}
		if alerts[0].Resolved != tt.resolved {
			t.Errorf("state %q: Resolved = %v, want %v", tt.state, alerts[0].Resolved, tt.resolved)
		}
	}
}

func TestGrafanaParser_NoTitleIgnored(t *testing.T) {
	parser := NewGrafanaParser()

	alerts, err := parser.Parse([]byte(`{"state": "alerting"}`), nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if alerts != nil {
		t.Errorf("payload without title or rule name must be ignored, got %v", alerts)
	}
}
