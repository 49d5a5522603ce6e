package notification

import (
	"fmt"
	"strings"

	"opssight/internal/domain"
)

// subjectFor builds a one-line summary of the transition, used as the email
// subject and the first line of chat messages.
func subjectFor(alert *domain.Alert, event domain.AlertEventType) string {
	verb := "Alert"
	switch event {
	case domain.AlertEventCreated:
		verb = "New alert"
	case domain.AlertEventResolved:
		verb = "Resolved"
	case domain.AlertEventAcknowledged:
		verb = "Acknowledged"
	case domain.AlertEventSuppressed:
		verb = "Suppressed"
	}
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(alert.Severity)), verb, alert.Title)
}

// bodyFor builds the multi-line plain-text body shared by email and chat
// channels.
func bodyFor(alert *domain.Alert, event domain.AlertEventType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", subjectFor(alert, event))
	fmt.Fprintf(&b, "Source: %s\n", alert.Source)
	fmt.Fprintf(&b, "Severity: %s\n", alert.Severity)
	fmt.Fprintf(&b, "Category: %s\n", alert.Category)
	fmt.Fprintf(&b, "Status: %s\n", alert.Status)
	if alert.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", alert.Description)
	}
	if alert.URL != "" {
		fmt.Fprintf(&b, "\nLink: %s\n", alert.URL)
	}
	return b.String()
}
