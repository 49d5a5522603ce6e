package domain

import "unicode/utf8"

// Limits applied to normalized alert fields before persistence.
// Oversized source payloads are truncated rather than rejected.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 1000
)

// DefaultDescription is used when a source payload carries no usable
// description text.
const DefaultDescription = "No description provided"

// Source identifies the integration an alert arrived from.
type Source string

const (
	SourceWebhook    Source = "webhook"
	SourceSlack      Source = "slack"
	SourceGitHub     Source = "github"
	SourcePrometheus Source = "prometheus"
	SourceGrafana    Source = "grafana"
	SourcePagerDuty  Source = "pagerduty"
)

// IsValid returns true if the source is a supported integration.
func (s Source) IsValid() bool {
	switch s {
	case SourceWebhook, SourceSlack, SourceGitHub, SourcePrometheus, SourceGrafana, SourcePagerDuty:
		return true
	default:
		return false
	}
}

// NormalizedAlert is the common intermediate shape every source parser
// produces. It is ephemeral: the ingestion pipeline enriches it, fingerprints
// it, and hands it to the alert store, which owns the persisted Alert.
type NormalizedAlert struct {
	// Title is the short human-readable summary. Always non-empty for a
	// parsed alert; parsers that cannot extract a title return no alert.
	Title string `json:"title"`

	// Description carries the longer alert text.
	Description string `json:"description"`

	// Severity is the normalized severity level.
	Severity Severity `json:"severity"`

	// Source identifies the integration that produced this alert.
	Source Source `json:"source"`

	// Category is the inferred or source-provided classification.
	Category Category `json:"category"`

	// Tags holds free-form labels merged from source labels and metadata.
	Tags map[string]any `json:"tags,omitempty"`

	// Metadata holds raw or semi-structured source payload fields.
	Metadata map[string]any `json:"metadata,omitempty"`

	// ExternalID is the source-native identifier used for cross-delivery
	// idempotency, e.g. a Prometheus fingerprint or PagerDuty incident id.
	// Empty when the source has no stable identifier.
	ExternalID string `json:"external_id,omitempty"`

	// URL is a deep link back to the source system.
	URL string `json:"url,omitempty"`

	// Resolved indicates the source signals a closed/ok state.
	Resolved bool `json:"resolved"`
}

// Normalize applies field limits and fills defaults. Parsers call this as
// their final step so every alert entering the pipeline satisfies the
// bounded-length invariants.
func (n *NormalizedAlert) Normalize() {
	n.Title = truncate(n.Title, MaxTitleLength)
	if n.Description == "" {
		n.Description = DefaultDescription
	}
	n.Description = truncate(n.Description, MaxDescriptionLength)
	if !n.Severity.IsValid() {
		n.Severity = NormalizeSeverity(string(n.Severity))
	}
	if n.Category == "" {
		n.Category = InferCategory(n.Title, n.Description)
	}
}

// truncate cuts s to at most limit bytes, backing up to a rune boundary
// so multibyte text is never left with a split rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
