package notification

import (
	"context"
	"fmt"
	"net/smtp"

	"opssight/internal/config"
	"opssight/internal/domain"
)

// EmailChannel delivers notifications over SMTP.
type EmailChannel struct {
	addr string
	from string
	auth smtp.Auth

	// send allows tests to intercept SMTP delivery.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailChannel creates an email channel from SMTP config.
func NewEmailChannel(cfg *config.EmailConfig) *EmailChannel {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &EmailChannel{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from: cfg.From,
		auth: auth,
		send: smtp.SendMail,
	}
}

// Name returns "email".
func (c *EmailChannel) Name() string {
	return "email"
}

// Send delivers one notification email. net/smtp has no context support, so
// the caller's timeout only bounds the wait, not the dial.
func (c *EmailChannel) Send(ctx context.Context, alert *domain.Alert, event domain.AlertEventType, recipient string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		c.from, recipient, subjectFor(alert, event), bodyFor(alert, event))

	done := make(chan error, 1)
	go func() {
		done <- c.send(c.addr, c.auth, c.from, []string{recipient}, []byte(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
