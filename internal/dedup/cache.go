package dedup

import (
	"context"
	"time"
)

// DefaultWindow is the duplicate-suppression window applied when the
// configuration does not specify one.
const DefaultWindow = 5 * time.Minute

// Cache records fingerprints for the duration of the suppression window.
// Implementations must be safe for concurrent use and CheckAndSet must be
// atomic per fingerprint: when two deliveries race, exactly one observes
// seen=false.
type Cache interface {
	// CheckAndSet records the fingerprint with the given TTL and reports
	// whether it was already present.
	CheckAndSet(ctx context.Context, fingerprint string, ttl time.Duration) (seen bool, err error)

	// Forget removes a recorded fingerprint. The pipeline uses it to undo
	// a CheckAndSet when persistence fails, so a retried delivery is not
	// answered as a duplicate.
	Forget(ctx context.Context, fingerprint string) error

	// Close releases any resources held by the cache.
	Close() error
}
