package source

import (
	"encoding/json"
	"fmt"
	"strings"

	"opssight/internal/domain"
)

// Candidate keys tried in order for each logical field of a generic webhook.
var (
	genericTitleKeys       = []string{"title", "summary", "name", "alertname", "subject"}
	genericDescriptionKeys = []string{"description", "message", "details", "body", "text"}
	genericSeverityKeys    = []string{"severity", "priority", "level"}
	genericTagKeys         = []string{"tags", "labels", "metadata"}
	genericURLKeys         = []string{"url", "link", "runbook_url"}
	genericIDKeys          = []string{"external_id", "alert_id", "incident_id", "id"}
	genericStatusKeys      = []string{"status", "state"}
)

// resolvedStates are status/state values that signal a closed alert.
var resolvedStates = []string{"resolved", "ok", "closed", "cleared"}

// maxMetadataKeys bounds how much of an arbitrary payload is carried along
// as alert metadata.
const maxMetadataKeys = 32

// GenericParser handles arbitrary JSON webhook payloads with best-effort
// field extraction. It tries an ordered list of candidate keys per logical
// field and recurses one level into a nested "alert" object when the top
// level yields no title.
type GenericParser struct{}

// NewGenericParser creates the generic webhook parser.
func NewGenericParser() *GenericParser {
	return &GenericParser{}
}

// Source returns the generic webhook source identifier.
func (p *GenericParser) Source() domain.Source {
	return domain.SourceWebhook
}

// Parse extracts a normalized alert from an arbitrary JSON object.
func (p *GenericParser) Parse(body []byte, headers map[string]string) ([]*domain.NormalizedAlert, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	alert := p.extract(payload)
	if alert == nil {
		// A nested "alert" object is a common envelope shape.
		if nested, ok := payload["alert"].(map[string]any); ok {
			alert = p.extract(nested)
		}
	}
	if alert == nil {
		return nil, nil
	}

	alert.Normalize()
	return []*domain.NormalizedAlert{alert}, nil
}

// extract attempts to build a normalized alert from one JSON object level.
// Returns nil when no usable title can be found.
func (p *GenericParser) extract(payload map[string]any) *domain.NormalizedAlert {
	title := firstString(payload, genericTitleKeys)
	if title == "" {
		return nil
	}

	alert := &domain.NormalizedAlert{
		Title:       title,
		Description: firstString(payload, genericDescriptionKeys),
		Severity:    domain.NormalizeSeverity(firstString(payload, genericSeverityKeys)),
		Source:      domain.SourceWebhook,
		Tags:        firstMap(payload, genericTagKeys),
		Metadata:    capMetadata(payload),
		ExternalID:  firstString(payload, genericIDKeys),
		URL:         firstString(payload, genericURLKeys),
		Resolved:    isResolvedState(firstString(payload, genericStatusKeys)),
	}

	if cat := firstString(payload, []string{"category"}); cat != "" {
		alert.Category = domain.Category(strings.ToLower(cat))
	}

	return alert
}

// firstString returns the first candidate key that holds a non-empty string
// or number, rendered as a string.
func firstString(payload map[string]any, keys []string) string {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case float64:
			return formatNumber(v)
		}
	}
	return ""
}

// firstMap returns the first candidate key holding a JSON object.
func firstMap(payload map[string]any, keys []string) map[string]any {
	for _, key := range keys {
		if m, ok := payload[key].(map[string]any); ok && len(m) > 0 {
			return m
		}
	}
	return nil
}

// capMetadata copies at most maxMetadataKeys top-level fields of the payload.
func capMetadata(payload map[string]any) map[string]any {
	meta := make(map[string]any, len(payload))
	for k, v := range payload {
		if len(meta) >= maxMetadataKeys {
			break
		}
		meta[k] = v
	}
	return meta
}

// isResolvedState reports whether a status/state value signals closure.
func isResolvedState(state string) bool {
	lowered := strings.ToLower(strings.TrimSpace(state))
	if lowered == "" {
		return false
	}
	for _, s := range resolvedStates {
		if lowered == s {
			return true
		}
		// "ok" is too short for substring matching ("broken" is not resolved).
		if len(s) > 2 && strings.Contains(lowered, s) {
			return true
		}
	}
	return false
}

// formatNumber renders a JSON number without a trailing ".000000" when it is
// integral, matching how source systems print their numeric ids.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
