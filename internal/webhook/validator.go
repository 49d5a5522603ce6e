// Package webhook validates inbound webhook deliveries before any parsing
// happens: payload size, signature authenticity, structural shape, and a
// content scan for injection payloads. All checks are stateless except the
// Slack replay window, which reads the clock.
package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"strconv"
	"strings"
	"time"

	"opssight/internal/domain"
)

// MaxBodySize is the request body cap applied before any parsing.
const MaxBodySize = 1 << 20

// slackReplayWindow bounds how old a signed Slack request may be.
const slackReplayWindow = 5 * time.Minute

// Header names consumed for signature validation, in canonical MIME form.
const (
	HeaderHubSignature256     = "X-Hub-Signature-256"
	HeaderHubSignature        = "X-Hub-Signature"
	HeaderSlackSignature      = "X-Slack-Signature"
	HeaderSlackTimestamp      = "X-Slack-Request-Timestamp"
)

// Result is the outcome of validating one delivery.
type Result struct {
	Valid   bool
	Error   string
	Warning string
}

func invalid(format string, args ...any) Result {
	return Result{Valid: false, Error: fmt.Sprintf(format, args...)}
}

// Secrets holds the per-source shared secrets used for signature checks.
// An empty secret disables signature verification for that source and the
// validation result carries a warning instead.
type Secrets struct {
	Webhook      string
	GitHub       string
	SlackSigning string
}

// maliciousPatterns is the content denylist. A single hit rejects the
// delivery regardless of signature validity.
var maliciousPatterns = []string{
	"<script",
	"javascript:",
	"onerror=",
	"onload=",
	"<iframe",
	"../",
	"..\\",
	"drop table",
	"truncate table",
	"delete from",
	"insert into",
	"union select",
	"exec(",
	"eval(",
	"; rm -",
	"$(",
	"| bash",
	"ldap://",
}

// Validator performs per-source authenticity and integrity checks.
type Validator struct {
	secrets Secrets

	// now is injectable for replay-window tests.
	now func() time.Time
}

// NewValidator creates a validator with the given secrets.
func NewValidator(secrets Secrets) *Validator {
	return &Validator{
		secrets: secrets,
		now:     time.Now,
	}
}

// Validate runs all checks for one delivery. It never panics and performs
// no I/O; rejection reasons are descriptive but free of payload content.
func (v *Validator) Validate(src domain.Source, body []byte, headers map[string]string) Result {
	if len(body) > MaxBodySize {
		return invalid("payload exceeds %d byte limit", MaxBodySize)
	}
	if len(body) == 0 {
		return invalid("empty payload")
	}
	if !json.Valid(body) {
		return invalid("malformed JSON payload")
	}

	if reason := scanMalicious(body); reason != "" {
		return invalid("payload contains suspicious content: %s", reason)
	}

	switch src {
	case domain.SourceWebhook:
		return v.validateSigned(body, headers, v.secrets.Webhook)
	case domain.SourceGitHub:
		return v.validateSigned(body, headers, v.secrets.GitHub)
	case domain.SourceSlack:
		return v.validateSlack(body, headers)
	case domain.SourcePrometheus:
		return validatePrometheusShape(body)
	case domain.SourceGrafana:
		return validateGrafanaShape(body)
	case domain.SourcePagerDuty:
		return validatePagerDutyShape(body)
	default:
		return invalid("unsupported source %q", src)
	}
}

// scanMalicious substring-matches the payload against the denylist and
// returns the matched pattern, or empty when clean.
func scanMalicious(body []byte) string {
	lowered := strings.ToLower(string(body))
	for _, pattern := range maliciousPatterns {
		if strings.Contains(lowered, pattern) {
			return pattern
		}
	}
	return ""
}

// validateSigned checks an HMAC digest header against the raw body.
// Accepted digest forms: "sha256=<hex>", "sha1=<hex>", or bare hex (treated
// as SHA-256). Comparison is constant-time.
func (v *Validator) validateSigned(body []byte, headers map[string]string, secret string) Result {
	if secret == "" {
		return Result{Valid: true, Warning: "no signing secret configured; signature not verified"}
	}

	signature := headers[HeaderHubSignature256]
	if signature == "" {
		signature = headers[HeaderHubSignature]
	}
	if signature == "" {
		return invalid("missing signature header")
	}

	var hashFn func() hash.Hash
	digest := signature
	switch {
	case strings.HasPrefix(signature, "sha256="):
		hashFn = sha256.New
		digest = strings.TrimPrefix(signature, "sha256=")
	case strings.HasPrefix(signature, "sha1="):
		hashFn = sha1.New
		digest = strings.TrimPrefix(signature, "sha1=")
	default:
		hashFn = sha256.New
	}

	if !verifyHMAC(hashFn, secret, body, digest) {
		return invalid("signature mismatch")
	}
	return Result{Valid: true}
}

// validateSlack checks the Slack v0 signing scheme: both signature and
// timestamp headers must be present, the timestamp must fall inside the
// replay window, and the recomputed base-string HMAC must match.
func (v *Validator) validateSlack(body []byte, headers map[string]string) Result {
	if v.secrets.SlackSigning == "" {
		return Result{Valid: true, Warning: "no slack signing secret configured; signature not verified"}
	}

	signature := headers[HeaderSlackSignature]
	timestamp := headers[HeaderSlackTimestamp]
	if signature == "" || timestamp == "" {
		return invalid("missing slack signature headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return invalid("invalid slack request timestamp")
	}

	age := v.now().UTC().Sub(time.Unix(ts, 0))
	if age > slackReplayWindow || age < -slackReplayWindow {
		return invalid("slack request timestamp outside replay window")
	}

	base := fmt.Sprintf("v0:%s:%s", timestamp, body)
	digest := strings.TrimPrefix(signature, "v0=")
	mac := hmac.New(sha256.New, []byte(v.secrets.SlackSigning))
	mac.Write([]byte(base))
	expected := mac.Sum(nil)

	actual, err := hex.DecodeString(digest)
	if err != nil || !hmac.Equal(expected, actual) {
		return invalid("slack signature mismatch")
	}
	return Result{Valid: true}
}

// verifyHMAC recomputes HMAC(secret, body) with the given hash and compares
// it against the hex digest in constant time.
func verifyHMAC(hashFn func() hash.Hash, secret string, body []byte, digest string) bool {
	mac := hmac.New(hashFn, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	actual, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, actual)
}

// validatePrometheusShape requires a list-typed "alerts" field whose entries
// each carry "status" and "labels".
func validatePrometheusShape(body []byte) Result {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return invalid("prometheus payload must be a JSON object")
	}

	raw, ok := payload["alerts"]
	if !ok {
		return invalid("prometheus payload missing alerts field")
	}

	var alerts []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &alerts); err != nil {
		return invalid("prometheus alerts field must be a list")
	}

	for i, entry := range alerts {
		if _, ok := entry["status"]; !ok {
			return invalid("prometheus alert %d missing status", i)
		}
		if _, ok := entry["labels"]; !ok {
			return invalid("prometheus alert %d missing labels", i)
		}
	}
	return Result{Valid: true}
}

// validateGrafanaShape requires a string "state" field.
func validateGrafanaShape(body []byte) Result {
	var payload struct {
		State *string `json:"state"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return invalid("grafana payload must be a JSON object")
	}
	if payload.State == nil || *payload.State == "" {
		return invalid("grafana payload missing state field")
	}
	return Result{Valid: true}
}

// validatePagerDutyShape requires a list-typed "messages" field whose entries
// each contain an "incident" object.
func validatePagerDutyShape(body []byte) Result {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return invalid("pagerduty payload must be a JSON object")
	}

	raw, ok := payload["messages"]
	if !ok {
		return invalid("pagerduty payload missing messages field")
	}

	var messages []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return invalid("pagerduty messages field must be a list")
	}

	for i, msg := range messages {
		if _, ok := msg["incident"]; !ok {
			return invalid("pagerduty message %d missing incident", i)
		}
	}
	return Result{Valid: true}
}
