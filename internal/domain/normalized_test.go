package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeAppliesFieldLimits(t *testing.T) {
	n := &NormalizedAlert{
		Title:       strings.Repeat("x", MaxTitleLength+50),
		Description: strings.Repeat("y", MaxDescriptionLength+50),
		Severity:    "critical",
		Source:      SourceWebhook,
		Category:    CategoryGeneral,
	}
	n.Normalize()

	if len(n.Title) != MaxTitleLength {
		t.Errorf("expected title truncated to %d bytes, got %d", MaxTitleLength, len(n.Title))
	}
	if len(n.Description) != MaxDescriptionLength {
		t.Errorf("expected description truncated to %d bytes, got %d", MaxDescriptionLength, len(n.Description))
	}
}

func TestNormalizeTruncatesOnRuneBoundary(t *testing.T) {
	// A multibyte rune crossing the byte limit must be dropped whole, not
	// split into an invalid tail.
	n := &NormalizedAlert{
		Title:    strings.Repeat("a", MaxTitleLength-1) + "é",
		Severity: "high",
		Source:   SourceWebhook,
		Category: CategoryGeneral,
	}
	n.Normalize()

	if !utf8.ValidString(n.Title) {
		t.Fatalf("truncated title is not valid UTF-8: %q", n.Title[MaxTitleLength-8:])
	}
	if len(n.Title) != MaxTitleLength-1 {
		t.Errorf("expected %d bytes after dropping the split rune, got %d", MaxTitleLength-1, len(n.Title))
	}

	n = &NormalizedAlert{
		Title:    strings.Repeat("界", 100),
		Severity: "high",
		Source:   SourceWebhook,
		Category: CategoryGeneral,
	}
	n.Normalize()
	if !utf8.ValidString(n.Title) {
		t.Error("expected all-multibyte title to stay valid UTF-8 after truncation")
	}
	if len(n.Title) > MaxTitleLength {
		t.Errorf("expected title within %d bytes, got %d", MaxTitleLength, len(n.Title))
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	n := &NormalizedAlert{
		Title:    "Disk almost full",
		Severity: "warn",
		Source:   SourceWebhook,
	}
	n.Normalize()

	if n.Description != DefaultDescription {
		t.Errorf("expected default description, got %q", n.Description)
	}
	if n.Category == "" {
		t.Error("expected category inferred from title")
	}
}
