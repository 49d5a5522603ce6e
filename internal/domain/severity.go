package domain

import "strings"

// Severity represents the normalized severity level of an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// IsValid returns true if the severity is a known valid value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// severityKeywords maps substrings found in source severity vocabularies to
// the normalized scale. Order matters: the first matching set wins, so
// "critical error" normalizes to critical rather than high.
var severityKeywords = []struct {
	severity Severity
	keywords []string
}{
	{SeverityCritical, []string{"critical", "fatal", "emergency"}},
	{SeverityHigh, []string{"high", "error", "major"}},
	{SeverityMedium, []string{"warning", "warn", "minor"}},
	{SeverityLow, []string{"info", "informational"}},
}

// NormalizeSeverity maps a free-text severity value from any source into the
// four-level scale. Matching is case-insensitive substring matching.
// Unrecognized or empty input defaults to medium. The function is total:
// it always returns a valid Severity and never fails.
func NormalizeSeverity(raw string) Severity {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return SeverityMedium
	}

	for _, set := range severityKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(lowered, kw) {
				return set.severity
			}
		}
	}

	return SeverityMedium
}
