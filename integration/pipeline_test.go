package integration

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"opssight/internal/api"
	"opssight/internal/config"
	"opssight/internal/dedup"
	dedupmemory "opssight/internal/dedup/memory"
	"opssight/internal/domain"
	"opssight/internal/events"
	"opssight/internal/ingest"
	"opssight/internal/notification"
	queuememory "opssight/internal/queue/memory"
	"opssight/internal/source"
	storememory "opssight/internal/store/memory"
	"opssight/internal/webhook"
)

const (
	githubSecret  = "github-integration-secret"
	slackSecret   = "slack-signing-secret"
	genericSecret = "generic-webhook-secret"
)

// countingChannel is a notification channel that records deliveries.
type countingChannel struct {
	mu   sync.Mutex
	sent int
}

func (c *countingChannel) Name() string { return "webhook" }

func (c *countingChannel) Send(_ context.Context, _ *domain.Alert, _ domain.AlertEventType, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent++
	return nil
}

func (c *countingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// testApp bundles the in-process application and its observable internals.
type testApp struct {
	server   *api.Server
	repo     *storememory.AlertRepository
	events   *storememory.EventRepository
	channel  *countingChannel
	shutdown func()
}

func newTestApp() *testApp {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := storememory.NewAlertRepository()
	eventRepo := storememory.NewEventRepository()
	cache := dedupmemory.NewCache()
	q := queuememory.NewQueue(1000)

	publisher := events.NewPublisher(q, logger)
	recorder := events.NewRecorder(q, eventRepo, logger)

	recorderCtx, cancelRecorder := context.WithCancel(context.Background())
	go func() {
		_ = recorder.Start(recorderCtx)
	}()

	channel := &countingChannel{}
	directory := notification.NewStaticDirectory(map[string][]string{
		"webhook": {"https://hooks.example.com/opssight"},
	})
	notifier := notification.NewFanout([]notification.Channel{channel}, directory, time.Second, logger)

	validator := webhook.NewValidator(webhook.Secrets{
		Webhook:      genericSecret,
		GitHub:       githubSecret,
		SlackSigning: slackSecret,
	})

	service := ingest.NewService(
		validator,
		source.DefaultRegistry(),
		cache,
		dedup.DefaultWindow,
		repo,
		notifier,
		publisher,
		logger,
	)

	serverCfg := &config.ServerConfig{Host: "127.0.0.1", Port: 0}
	server := api.NewServer(api.ServerDeps{
		Config:         serverCfg,
		Logger:         logger,
		WebhookHandler: api.NewWebhookHandler(service, logger),
		AlertHandler:   api.NewAlertHandler(repo, eventRepo, publisher, logger),
	})

	return &testApp{
		server:  server,
		repo:    repo,
		events:  eventRepo,
		channel: channel,
		shutdown: func() {
			cancelRecorder()
			_ = q.Close()
			_ = cache.Close()
		},
	}
}

func (a *testApp) request(method, path string, body []byte, headers map[string]string) *http.Response {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	Expect(err).NotTo(HaveOccurred())
	if body != nil && headers["Content-Type"] == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.server.App().Test(req, 5000)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func decodeBody(resp *http.Response, target interface{}) {
	defer resp.Body.Close()
	Expect(json.NewDecoder(resp.Body).Decode(target)).To(Succeed())
}

func signSHA256(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func signSlack(secret string, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:", timestamp)
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func prometheusPayload(status, fingerprint string) []byte {
	body, _ := json.Marshal(map[string]any{
		"status": status,
		"alerts": []map[string]any{
			{
				"status":      status,
				"fingerprint": fingerprint,
				"labels": map[string]string{
					"alertname": "HighErrorRate",
					"severity":  "critical",
					"service":   "api-gateway",
				},
				"annotations": map[string]string{
					"summary":     "High error rate on api-gateway",
					"description": "5xx rate above 5% for 10 minutes",
				},
				"generatorURL": "http://prometheus:9090/graph",
			},
		},
	})
	return body
}

var _ = Describe("Alert ingestion pipeline", func() {
	var app *testApp

	BeforeEach(func() {
		app = newTestApp()
	})

	AfterEach(func() {
		app.shutdown()
	})

	Describe("Health check", func() {
		It("returns healthy status", func() {
			resp := app.request("GET", "/healthz", nil, nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("Prometheus end to end", func() {
		It("creates, deduplicates, and resolves an alert across deliveries", func() {
			By("ingesting a firing alert")
			resp := app.request("POST", "/prometheus/webhook", prometheusPayload("firing", "prom-e2e-1"), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result ingest.Result
			decodeBody(resp, &result)
			Expect(result.Status).To(Equal(ingest.StatusProcessed))
			Expect(result.AlertID).NotTo(BeEmpty())
			Expect(result.NotificationsSent).To(Equal(1))

			alertID := result.AlertID

			By("reading the alert back through the API")
			resp = app.request("GET", "/v1/alerts/"+alertID, nil, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var envelope struct {
				Success bool         `json:"success"`
				Data    domain.Alert `json:"data"`
			}
			decodeBody(resp, &envelope)
			Expect(envelope.Success).To(BeTrue())
			Expect(envelope.Data.Status).To(Equal(domain.AlertStatusActive))
			Expect(envelope.Data.Severity).To(Equal(domain.SeverityCritical))
			Expect(envelope.Data.Source).To(Equal(domain.SourcePrometheus))

			By("suppressing an identical redelivery")
			resp = app.request("POST", "/prometheus/webhook", prometheusPayload("firing", "prom-e2e-1"), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var dup ingest.Result
			decodeBody(resp, &dup)
			Expect(dup.Status).To(Equal(ingest.StatusDuplicate))
			Expect(dup.NotificationsSent).To(BeZero())

			By("resolving the alert inside the dedup window")
			resp = app.request("POST", "/prometheus/webhook", prometheusPayload("resolved", "prom-e2e-1"), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var resolved ingest.Result
			decodeBody(resp, &resolved)
			Expect(resolved.Status).To(Equal(ingest.StatusProcessed))
			Expect(resolved.AlertID).To(Equal(alertID))

			By("verifying the stored alert is resolved")
			stored, err := app.repo.GetByID(context.Background(), alertID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(domain.AlertStatusResolved))
			Expect(stored.ResolvedAt).NotTo(BeNil())

			By("recording the lifecycle on the event timeline")
			Eventually(func() int {
				timeline, _ := app.events.ListByAlert(context.Background(), alertID)
				return len(timeline)
			}, 2*time.Second, 20*time.Millisecond).Should(Equal(2))

			resp = app.request("GET", "/v1/alerts/"+alertID+"/events", nil, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var timelineEnvelope struct {
				Data []domain.AlertEvent `json:"data"`
			}
			decodeBody(resp, &timelineEnvelope)
			Expect(timelineEnvelope.Data).To(HaveLen(2))
			Expect(timelineEnvelope.Data[0].Type).To(Equal(domain.AlertEventCreated))
			Expect(timelineEnvelope.Data[1].Type).To(Equal(domain.AlertEventResolved))

			Expect(app.channel.count()).To(Equal(2))
		})

		It("ignores a resolution that never fired", func() {
			resp := app.request("POST", "/prometheus/webhook", prometheusPayload("resolved", "prom-never-fired"), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result ingest.Result
			decodeBody(resp, &result)
			Expect(result.Status).To(Equal(ingest.StatusIgnored))
		})
	})

	Describe("GitHub webhook", func() {
		workflowBody := []byte(`{"action":"completed","workflow_run":{"id":987,"name":"deploy","conclusion":"failure","html_url":"https://github.com/acme/app/actions/runs/987"}}`)

		It("creates an alert for a signed failed workflow run", func() {
			headers := map[string]string{
				"X-Github-Event":      "workflow_run",
				"X-Hub-Signature-256": signSHA256(githubSecret, workflowBody),
			}
			resp := app.request("POST", "/github/webhook", workflowBody, headers)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result ingest.Result
			decodeBody(resp, &result)
			Expect(result.Status).To(Equal(ingest.StatusProcessed))

			alert, err := app.repo.GetByID(context.Background(), result.AlertID)
			Expect(err).NotTo(HaveOccurred())
			Expect(alert.Category).To(Equal(domain.CategoryCICD))
			Expect(alert.Severity).To(Equal(domain.SeverityHigh))
			Expect(alert.ExternalID).To(Equal("987"))
		})

		It("rejects a delivery with an invalid signature", func() {
			headers := map[string]string{
				"X-Github-Event":      "workflow_run",
				"X-Hub-Signature-256": "sha256=" + strings.Repeat("0", 64),
			}
			resp := app.request("POST", "/github/webhook", workflowBody, headers)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("ignores non-workflow events", func() {
			body := []byte(`{"zen":"Anything added dilutes everything else.","hook_id":7}`)
			headers := map[string]string{
				"X-Github-Event":      "ping",
				"X-Hub-Signature-256": signSHA256(githubSecret, body),
			}
			resp := app.request("POST", "/github/webhook", body, headers)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result ingest.Result
			decodeBody(resp, &result)
			Expect(result.Status).To(Equal(ingest.StatusIgnored))
		})
	})

	Describe("Slack events", func() {
		It("answers the URL verification handshake", func() {
			body := []byte(`{"type":"url_verification","challenge":"challenge-token-123"}`)
			resp := app.request("POST", "/slack/events", body, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var echo map[string]string
			decodeBody(resp, &echo)
			Expect(echo["challenge"]).To(Equal("challenge-token-123"))
		})

		It("creates an alert from a signed alert message", func() {
			body := []byte(`{"type":"event_callback","event":{"type":"message","channel":"C0123","ts":"1726000000.000100","text":"ALERT: payment service is down"}}`)
			ts := fmt.Sprintf("%d", time.Now().Unix())
			headers := map[string]string{
				"X-Slack-Request-Timestamp": ts,
				"X-Slack-Signature":         signSlack(slackSecret, ts, body),
			}

			resp := app.request("POST", "/slack/events", body, headers)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result ingest.Result
			decodeBody(resp, &result)
			Expect(result.Status).To(Equal(ingest.StatusProcessed))

			alert, err := app.repo.GetByID(context.Background(), result.AlertID)
			Expect(err).NotTo(HaveOccurred())
			Expect(alert.Source).To(Equal(domain.SourceSlack))
			Expect(alert.ExternalID).To(Equal("slack_C0123_1726000000.000100"))
		})

		It("rejects a replayed timestamp outside the window", func() {
			body := []byte(`{"type":"event_callback","event":{"type":"message","channel":"C0123","ts":"1726000000.000200","text":"ALERT: stale delivery"}}`)
			ts := fmt.Sprintf("%d", time.Now().Add(-10*time.Minute).Unix())
			headers := map[string]string{
				"X-Slack-Request-Timestamp": ts,
				"X-Slack-Signature":         signSlack(slackSecret, ts, body),
			}

			resp := app.request("POST", "/slack/events", body, headers)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("creates an alert from a recognized interactive action", func() {
			payload := `{"type":"block_actions","user":{"id":"U42","username":"oncall"},"channel":{"id":"C0123"},"actions":[{"action_id":"create_alert","value":"Checkout latency spike"}]}`
			form := url.Values{"payload": {payload}}
			headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}

			resp := app.request("POST", "/slack/interactive", []byte(form.Encode()), headers)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var reply map[string]string
			decodeBody(resp, &reply)
			Expect(reply["response_type"]).To(Equal("ephemeral"))
			Expect(reply["text"]).To(Equal("Alert created."))

			alerts, err := app.repo.List(context.Background(), domain.AlertFilter{Source: domain.SourceSlack})
			Expect(err).NotTo(HaveOccurred())
			Expect(alerts).To(HaveLen(1))
			Expect(alerts[0].Title).To(Equal("Checkout latency spike"))
			Expect(alerts[0].Status).To(Equal(domain.AlertStatusActive))
			Expect(alerts[0].Description).To(ContainSubstring("oncall"))
		})

		It("resolves the alert a matching resolve action targets", func() {
			headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
			create := url.Values{"payload": {`{"type":"block_actions","user":{"id":"U42"},"channel":{"id":"C0123"},"actions":[{"action_id":"create_alert","value":"Checkout latency spike"}]}`}}
			resolve := url.Values{"payload": {`{"type":"block_actions","user":{"id":"U42"},"channel":{"id":"C0123"},"actions":[{"action_id":"resolve_alert","value":"Checkout latency spike"}]}`}}

			resp := app.request("POST", "/slack/interactive", []byte(create.Encode()), headers)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()

			resp = app.request("POST", "/slack/interactive", []byte(resolve.Encode()), headers)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var reply map[string]string
			decodeBody(resp, &reply)
			Expect(reply["text"]).To(Equal("Alert resolved."))

			alerts, err := app.repo.List(context.Background(), domain.AlertFilter{Source: domain.SourceSlack})
			Expect(err).NotTo(HaveOccurred())
			Expect(alerts).To(HaveLen(1))
			Expect(alerts[0].Status).To(Equal(domain.AlertStatusResolved))
		})

		It("acknowledges unrecognized interactive actions without creating alerts", func() {
			payload := `{"type":"block_actions","user":{"id":"U42"},"actions":[{"action_id":"ack","value":"alert-1"}]}`
			form := url.Values{"payload": {payload}}
			headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}

			resp := app.request("POST", "/slack/interactive", []byte(form.Encode()), headers)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var reply map[string]string
			decodeBody(resp, &reply)
			Expect(reply["response_type"]).To(Equal("ephemeral"))
			Expect(reply["text"]).To(Equal("Got it."))

			alerts, err := app.repo.List(context.Background(), domain.AlertFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(alerts).To(BeEmpty())
		})
	})

	Describe("Generic webhook", func() {
		It("rejects payloads carrying malicious content even when signed", func() {
			body := []byte(`{"title":"<script>alert(1)</script>","severity":"critical"}`)
			headers := map[string]string{
				"X-Hub-Signature-256": signSHA256(genericSecret, body),
			}
			resp := app.request("POST", "/webhook", body, headers)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("accepts a signed custom payload on the tokenized route", func() {
			body := []byte(`{"title":"Disk almost full on db-01","severity":"high","category":"database","url":"https://runbooks.example.com/disk"}`)
			headers := map[string]string{
				"X-Hub-Signature-256": signSHA256(genericSecret, body),
			}
			resp := app.request("POST", "/webhook/team-a-token", body, headers)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result ingest.Result
			decodeBody(resp, &result)
			Expect(result.Status).To(Equal(ingest.StatusProcessed))

			alert, err := app.repo.GetByID(context.Background(), result.AlertID)
			Expect(err).NotTo(HaveOccurred())
			Expect(alert.Category).To(Equal(domain.CategoryDatabase))
			Expect(alert.Severity).To(Equal(domain.SeverityHigh))
		})
	})

	Describe("Alert lifecycle API", func() {
		var alertID string

		BeforeEach(func() {
			resp := app.request("POST", "/prometheus/webhook", prometheusPayload("firing", "lifecycle-1"), nil)
			var result ingest.Result
			decodeBody(resp, &result)
			Expect(result.AlertID).NotTo(BeEmpty())
			alertID = result.AlertID
		})

		It("acknowledges an active alert", func() {
			resp := app.request("POST", "/v1/alerts/"+alertID+"/acknowledge", nil, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var envelope struct {
				Data domain.Alert `json:"data"`
			}
			decodeBody(resp, &envelope)
			Expect(envelope.Data.Status).To(Equal(domain.AlertStatusAcknowledged))
			Expect(envelope.Data.AcknowledgedAt).NotTo(BeNil())
		})

		It("suppresses an alert for a requested duration", func() {
			body := []byte(`{"duration":"30m"}`)
			resp := app.request("POST", "/v1/alerts/"+alertID+"/suppress", body, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var envelope struct {
				Data domain.Alert `json:"data"`
			}
			decodeBody(resp, &envelope)
			Expect(envelope.Data.Status).To(Equal(domain.AlertStatusSuppressed))
			Expect(envelope.Data.SuppressedUntil).NotTo(BeNil())
		})

		It("refuses lifecycle actions on a resolved alert", func() {
			resp := app.request("POST", "/v1/alerts/"+alertID+"/resolve", nil, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()

			resp = app.request("POST", "/v1/alerts/"+alertID+"/acknowledge", nil, nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("lists alerts by status filter", func() {
			resp := app.request("GET", "/v1/alerts?status=active&source=prometheus", nil, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var envelope struct {
				Data []domain.Alert `json:"data"`
			}
			decodeBody(resp, &envelope)
			Expect(envelope.Data).To(HaveLen(1))
			Expect(envelope.Data[0].ID).To(Equal(alertID))
		})

		It("returns 404 for an unknown alert", func() {
			resp := app.request("GET", "/v1/alerts/no-such-alert", nil, nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})
})
