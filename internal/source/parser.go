// Package source contains the per-integration parsers that turn heterogeneous
// webhook payloads into normalized alerts. Each parser understands exactly one
// source's payload shape; the registry maps source identifiers to parsers so
// new integrations plug in without touching the ingestion orchestrator.
package source

import (
	"opssight/internal/domain"
)

// Parser extracts normalized alerts from a source-specific payload.
// Implementations must be stateless and safe for concurrent use.
type Parser interface {
	// Source returns the integration identifier this parser handles.
	Source() domain.Source

	// Parse extracts zero or more normalized alerts from the raw body.
	// An empty result with a nil error means the payload carries nothing
	// actionable (no usable title, wrong event type) and must be ignored,
	// not treated as a failure. A non-nil error means the payload could
	// not be decoded at all.
	Parse(body []byte, headers map[string]string) ([]*domain.NormalizedAlert, error)
}

// Registry maps source identifiers to their parsers.
type Registry struct {
	parsers map[domain.Source]Parser
}

// NewRegistry creates a registry containing the given parsers.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: make(map[domain.Source]Parser, len(parsers))}
	for _, p := range parsers {
		r.parsers[p.Source()] = p
	}
	return r
}

// Get returns the parser for a source, or false when the source is unsupported.
func (r *Registry) Get(src domain.Source) (Parser, bool) {
	p, ok := r.parsers[src]
	return p, ok
}

// DefaultRegistry returns a registry with all supported source parsers.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewGenericParser(),
		NewSlackParser(),
		NewGitHubParser(),
		NewPrometheusParser(),
		NewGrafanaParser(),
		NewPagerDutyParser(),
	)
}
