package source

import (
	"testing"

	"opssight/internal/domain"
)

func TestPagerDutyParser_TriggeredIncident(t *testing.T) {
	parser := NewPagerDutyParser()

	body := []byte(`{
		"messages": [{
			"id": "msg-1",
			"event": "incident.trigger",
			"incident": {
				"id": "PD123",
				"incident_number": 42,
				"title": "API error rate elevated",
				"status": "triggered",
				"urgency": "high",
				"html_url": "https://acme.pagerduty.com/incidents/PD123",
				"service": {"id": "SVC1", "name": "api"}
			}
		}]
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
		t.Errorf("Severity = %v, high urgency should map to high", alert.Severity)
	}
	if alert.ExternalID != "PD123" {
		t.Errorf("ExternalID = %q, want the incident id", alert.ExternalID)
	}
	if alert.Resolved {
		t.Error("triggered incident must not be resolved")
	}
	if alert.Tags["service"] != "api" {
		t.Errorf("Tags[service] = %v", alert.Tags["service"])
	}
}

func TestPagerDutyParser_ResolvedIncident(t *testing.T) {
	parser := NewPagerDutyParser()

	body := []byte(`{
		"messages": [{
			"event": "incident.resolve",
			"incident": {"id": "PD123", "title": "API error rate elevated", "status": "resolved", "urgency": "high"}
		}]
	}`)

	alerts, err := parser.Parse(body, nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("Parse() returned %d alerts, want 1", len(alerts))
	}
	if !alerts[0].Resolved {
		t.Error("resolved incident must carry Resolved=true")
	}
}

func TestPagerDutyParser_UrgencyMapping(t *testing.T) {
	tests := []struct {
		urgency string
		want    domain.Severity
	}{
		{"high", domain.SeverityHigh},
		{"low", domain.SeverityLow},
		{"", domain.SeverityMedium},
		{"unknown", domain.SeverityMedium},
	}

	for _, tt := range tests {
		if got := pagerdutySeverity(tt.urgency); got != tt.want {
			t.Errorf("pagerdutySeverity(%q) = %v, want %v", tt.urgency, got, tt.want)
		}
	}
}

func TestPagerDutyParser_MessagesWithoutIncidentSkipped(t *testing.T) {
	parser := NewPagerDutyParser()

	alerts, err := parser.Parse([]byte(`{"messages": [{"id": "msg-1", "event": "ping"}]}`), nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("messages without incidents must be skipped, got %d", len(alerts))
	}
}
