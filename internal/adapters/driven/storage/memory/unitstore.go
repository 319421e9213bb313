package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
)

// Ensure UnitStore implements the interface.
var _ driven.UnitStore = (*UnitStore)(nil)

// UnitStore is an in-memory implementation of driven.UnitStore.
type UnitStore struct {
	mu        sync.RWMutex
	units     map[string]domain.Unit
	manifests map[string][]byte
}

// NewUnitStore creates a new in-memory unit store.
func NewUnitStore() *UnitStore {
	return &UnitStore{
		units:     make(map[string]domain.Unit),
		manifests: make(map[string][]byte),
	}
}

// SaveUnit stores or updates a unit and its files.
func (s *UnitStore) SaveUnit(_ context.Context, unit *domain.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *unit
	copied.Files = append([]domain.UnitFile(nil), unit.Files...)
	s.units[unit.ID] = copied
	return nil
}

// GetUnit retrieves a unit with its files by id.
func (s *UnitStore) GetUnit(_ context.Context, id string) (*domain.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unit, ok := s.units[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := unit
	copied.Files = append([]domain.UnitFile(nil), unit.Files...)
	return &copied, nil
}

// SaveManifest stores the serialised manifest for a unit.
func (s *UnitStore) SaveManifest(_ context.Context, unitID string, manifest []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[unitID] = append([]byte(nil), manifest...)
	return nil
}

// GetManifest retrieves the serialised manifest for a unit.
func (s *UnitStore) GetManifest(_ context.Context, unitID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	manifest, ok := s.manifests[unitID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), manifest...), nil
}

// Ensure HashCache implements the interface.
var _ driven.HashCache = (*HashCache)(nil)

// HashCache is an in-memory implementation of driven.HashCache.
type HashCache struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry

	// now is swappable in tests to control expiry.
	now func() time.Time
}

// NewHashCache creates a new in-memory hash cache.
func NewHashCache() *HashCache {
	return &HashCache{
		entries: make(map[string]domain.CacheEntry),
		now:     time.Now,
	}
}

// Get returns the entry for a digest, or domain.ErrNotFound when the
// entry is absent or expired.
func (c *HashCache) Get(_ context.Context, sha256 string) (*domain.CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[sha256]
	if !ok || !entry.Fresh(c.now()) {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// Put upserts an entry with the given lifetime.
func (c *HashCache) Put(_ context.Context, sha256 string, payload []byte, ttlDays int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sha256] = domain.CacheEntry{
		SHA256:    sha256,
		Payload:   append([]byte(nil), payload...),
		ExpiresAt: c.now().AddDate(0, 0, ttlDays),
	}
	return nil
}
