// Package metrics provides Prometheus metrics for OpsSight.
// It tracks webhook ingestion, alert lifecycle, and notification delivery
// to help identify bottlenecks and measure SLOs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "opssight"
)

// Webhook metrics track the ingestion surface.
var (
	// WebhooksReceivedTotal counts webhook deliveries received per source.
	WebhooksReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_received_total",
			Help:      "Total number of webhook deliveries received",
		},
		[]string{"source"},
	)

	// WebhooksRejectedTotal counts deliveries rejected by validation.
	WebhooksRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_rejected_total",
			Help:      "Total number of webhook deliveries rejected by validation",
		},
		[]string{"source", "reason"}, // reason: signature, payload, size
	)

	// IngestLatency measures time from webhook receipt to pipeline outcome.
	IngestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_latency_seconds",
			Help:      "Time from webhook receipt to ingestion outcome in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"source"},
	)
)

// Alert metrics track alert lifecycle.
var (
	// AlertsCreatedTotal counts alerts created per source and severity.
	AlertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Total number of alerts created",
		},
		[]string{"source", "severity"},
	)

	// AlertsResolvedTotal counts alerts resolved through ingestion.
	AlertsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_resolved_total",
			Help:      "Total number of alerts resolved",
		},
		[]string{"source"},
	)

	// AlertsDuplicateTotal counts deliveries suppressed by deduplication.
	AlertsDuplicateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_duplicate_total",
			Help:      "Total number of deliveries suppressed as duplicates",
		},
		[]string{"source"},
	)

	// AlertsIgnoredTotal counts deliveries that parsed to no alert.
	AlertsIgnoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_ignored_total",
			Help:      "Total number of deliveries that produced no alert",
		},
		[]string{"source"},
	)
)

// Notification metrics track delivery fan-out.
var (
	// NotificationsTotal counts notification deliveries per channel.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of notification delivery attempts",
		},
		[]string{"channel", "status"}, // status: sent, failed
	)

	// NotificationLatency measures per-channel delivery time.
	NotificationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_latency_seconds",
			Help:      "Time to deliver one notification in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)
)

// Dedup metrics track the fingerprint cache.
var (
	// DedupChecksTotal counts fingerprint cache checks.
	DedupChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_checks_total",
			Help:      "Total number of dedup cache checks",
		},
		[]string{"result"}, // result: hit, miss, error
	)
)

// Event stream metrics track the publish side.
var (
	// EventsPublishedTotal counts alert events published to the stream.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of alert events published to the event stream",
		},
		[]string{"type"},
	)
)
