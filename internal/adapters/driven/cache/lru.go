// Package cache provides a read-through LRU layer over a HashCache,
// keeping hot digests in memory so repeated ingests of the same content
// skip the database round trip.
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
)

// Ensure LRU implements the interface.
var _ driven.HashCache = (*LRU)(nil)

// DefaultSize is the default number of in-memory entries.
const DefaultSize = 4096

// LRU is a read-through in-memory front for a backing HashCache.
// Expiry remains the backing store's contract: entries are validated
// against their ExpiresAt on every hit.
type LRU struct {
	backing driven.HashCache
	entries *lru.Cache[string, domain.CacheEntry]
}

// New creates an LRU front over backing. size <= 0 uses DefaultSize.
func New(backing driven.HashCache, size int) (*LRU, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, domain.CacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &LRU{backing: backing, entries: entries}, nil
}

// Get returns the entry for a digest, consulting memory first.
func (c *LRU) Get(ctx context.Context, sha256 string) (*domain.CacheEntry, error) {
	if entry, ok := c.entries.Get(sha256); ok {
		if entry.Fresh(time.Now()) {
			return &entry, nil
		}
		c.entries.Remove(sha256)
	}

	entry, err := c.backing.Get(ctx, sha256)
	if err != nil {
		return nil, err
	}
	c.entries.Add(sha256, *entry)
	return entry, nil
}

// Put writes through to the backing store and refreshes memory.
func (c *LRU) Put(ctx context.Context, sha256 string, payload []byte, ttlDays int) error {
	if err := c.backing.Put(ctx, sha256, payload, ttlDays); err != nil {
		return err
	}
	c.entries.Add(sha256, domain.CacheEntry{
		SHA256:    sha256,
		Payload:   append([]byte(nil), payload...),
		ExpiresAt: time.Now().AddDate(0, 0, ttlDays),
	})
	return nil
}
