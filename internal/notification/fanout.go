package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"opssight/internal/domain"
	"opssight/internal/metrics"
)

// DefaultSendTimeout bounds each individual delivery attempt.
const DefaultSendTimeout = 5 * time.Second

// Fanout implements Notifier by delivering to every configured channel's
// recipients in parallel. Notify blocks until all attempts finish or time
// out, so the caller gets an accurate sent count.
type Fanout struct {
	channels  []Channel
	directory Directory
	timeout   time.Duration
	logger    *slog.Logger
}

// NewFanout creates a fan-out notifier over the given channels.
// A non-positive timeout falls back to DefaultSendTimeout.
func NewFanout(channels []Channel, directory Directory, timeout time.Duration, logger *slog.Logger) *Fanout {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Fanout{
		channels:  channels,
		directory: directory,
		timeout:   timeout,
		logger:    logger,
	}
}

// Notify delivers the transition to every recipient of every channel.
func (f *Fanout) Notify(ctx context.Context, alert *domain.Alert, event domain.AlertEventType) Summary {
	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)

	for _, ch := range f.channels {
		recipients := f.directory.Recipients(ch.Name(), alert)
		for _, recipient := range recipients {
			wg.Add(1)
			go func(ch Channel, recipient string) {
				defer wg.Done()

				sendCtx, cancel := context.WithTimeout(ctx, f.timeout)
				defer cancel()

				start := time.Now()
				err := ch.Send(sendCtx, alert, event, recipient)
				metrics.NotificationLatency.WithLabelValues(ch.Name()).Observe(time.Since(start).Seconds())

				dispatch := Dispatch{Channel: ch.Name(), Recipient: recipient}
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					dispatch.Error = err.Error()
					summary.Failed = append(summary.Failed, dispatch)
					metrics.NotificationsTotal.WithLabelValues(ch.Name(), "failed").Inc()
					f.logger.Error("notification delivery failed",
						"channel", ch.Name(),
						"recipient", recipient,
						"alert_id", alert.ID,
						"error", err,
					)
					return
				}
				summary.Sent = append(summary.Sent, dispatch)
				metrics.NotificationsTotal.WithLabelValues(ch.Name(), "sent").Inc()
				f.logger.Debug("notification delivered",
					"channel", ch.Name(),
					"recipient", recipient,
					"alert_id", alert.ID,
				)
			}(ch, recipient)
		}
	}

	wg.Wait()
	return summary
}
