package domain

import "time"

// DefaultCacheTTLDays is how long a cache entry stays fresh.
const DefaultCacheTTLDays = 30

// CacheEntry memoises the outcome of processing one distinct content.
// The key is the content's SHA-256; a fresh entry makes reprocessing the
// same bytes a no-op regardless of filename or unit churn.
type CacheEntry struct {
	// SHA256 is the content digest the entry is keyed by.
	SHA256 string

	// Payload is the prior result, serialised by the producer
	// (in practice the unit manifest JSON).
	Payload []byte

	// ExpiresAt is when the entry stops being served.
	ExpiresAt time.Time
}

// Fresh reports whether the entry is still usable at the given time.
func (e *CacheEntry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
