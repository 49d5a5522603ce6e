package domain

import "strings"

// Category is the coarse classification assigned to an alert.
type Category string

const (
	CategoryCICD        Category = "ci_cd"
	CategoryDatabase    Category = "database"
	CategoryNetwork     Category = "network"
	CategorySecurity    Category = "security"
	CategoryPerformance Category = "performance"
	CategoryMonitoring  Category = "monitoring"
	CategoryGeneral     Category = "general"
)

// categoryRules is an ordered keyword table. The first rule with a matching
// keyword wins, so more specific vocabularies come before generic ones.
// Keywords are matched case-insensitively against title plus description.
var categoryRules = []struct {
	category Category
	keywords []string
}{
	{CategoryCICD, []string{"ci", "cd", "pipeline", "build", "deploy", "workflow"}},
	{CategoryDatabase, []string{"database", "db", "sql", "query", "postgres", "mysql", "redis"}},
	{CategoryNetwork, []string{"network", "timeout", "connection", "dns", "latency"}},
	{CategorySecurity, []string{"auth", "login", "security", "unauthorized", "permission"}},
	{CategoryPerformance, []string{"cpu", "memory", "disk", "load", "performance", "slow"}},
	{CategoryMonitoring, []string{"monitor", "health", "uptime", "heartbeat"}},
}

// InferCategory classifies an alert from its title and description text.
// It is a pure function: identical input always yields the same category,
// which keeps fingerprints stable. Unmatched text yields CategoryGeneral.
func InferCategory(title, description string) Category {
	text := strings.ToLower(title + " " + description)
	words := tokenize(text)

	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			// Short keywords like "ci" and "db" must match whole words to
			// avoid classifying "circuit" as ci_cd.
			if len(kw) <= 2 {
				if words[kw] {
					return rule.category
				}
				continue
			}
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}

	return CategoryGeneral
}

// tokenize splits text into a set of lowercase words, treating any
// non-alphanumeric rune as a separator.
func tokenize(text string) map[string]bool {
	words := make(map[string]bool)
	var b strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			words[b.String()] = true
			b.Reset()
		}
	}
	if b.Len() > 0 {
		words[b.String()] = true
	}
	return words
}
