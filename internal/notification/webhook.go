package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"opssight/internal/domain"
)

// WebhookPayload is the JSON body posted to outbound webhook recipients.
type WebhookPayload struct {
	AlertID     string    `json:"alert_id"`
	Event       string    `json:"event"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	URL         string    `json:"url,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// WebhookChannel delivers notifications as HTTP POSTs. The recipient is the
// target URL.
type WebhookChannel struct {
	client *http.Client
}

// NewWebhookChannel creates an outbound webhook channel.
func NewWebhookChannel() *WebhookChannel {
	return &WebhookChannel{
		client: &http.Client{Timeout: DefaultSendTimeout},
	}
}

// Name returns "webhook".
func (c *WebhookChannel) Name() string {
	return "webhook"
}

// Send posts one notification payload to the recipient URL.
func (c *WebhookChannel) Send(ctx context.Context, alert *domain.Alert, event domain.AlertEventType, recipient string) error {
	payload := WebhookPayload{
		AlertID:     alert.ID,
		Event:       string(event),
		Source:      string(alert.Source),
		Title:       alert.Title,
		Description: alert.Description,
		Severity:    string(alert.Severity),
		Category:    string(alert.Category),
		Status:      string(alert.Status),
		URL:         alert.URL,
		Timestamp:   time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recipient, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
