// Package dedup derives stable alert fingerprints and suppresses duplicate
// deliveries inside a bounded time window. Sources routinely re-deliver the
// same alert, so the cache check must be an atomic check-and-set to keep two
// near-simultaneous deliveries from both passing.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"

	"opssight/internal/domain"
)

// Fingerprint derives the canonical deduplication fingerprint for a
// normalized alert. When the source supplies a stable external id the
// fingerprint is built from (source, external_id) so every delivery about
// the same source-side object converges; otherwise it falls back to
// (title, source, category). Metadata and description never participate,
// so cosmetic payload differences cannot defeat deduplication.
func Fingerprint(a *domain.NormalizedAlert) string {
	h := sha256.New()
	if a.ExternalID != "" {
		h.Write([]byte(string(a.Source)))
		h.Write([]byte{0})
		h.Write([]byte(a.ExternalID))
	} else {
		h.Write([]byte(a.Title))
		h.Write([]byte{0})
		h.Write([]byte(string(a.Source)))
		h.Write([]byte{0})
		h.Write([]byte(string(a.Category)))
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
