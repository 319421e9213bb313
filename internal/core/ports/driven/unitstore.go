package driven

import (
	"context"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

// UnitStore persists units and their manifests.
type UnitStore interface {
	// SaveUnit stores or updates a unit and its files.
	SaveUnit(ctx context.Context, unit *domain.Unit) error

	// GetUnit retrieves a unit with its files by id.
	GetUnit(ctx context.Context, id string) (*domain.Unit, error)

	// SaveManifest stores the serialised manifest for a unit.
	SaveManifest(ctx context.Context, unitID string, manifest []byte) error

	// GetManifest retrieves the serialised manifest for a unit.
	GetManifest(ctx context.Context, unitID string) ([]byte, error)
}

// HashCache memoises processing results by content digest.
// Concurrent writers for the same key compute the same payload, so
// write races are benign.
type HashCache interface {
	// Get returns the entry for a digest, or domain.ErrNotFound when the
	// entry is absent or expired.
	Get(ctx context.Context, sha256 string) (*domain.CacheEntry, error)

	// Put upserts an entry with the given lifetime.
	Put(ctx context.Context, sha256 string, payload []byte, ttlDays int) error
}

// QuarantineStore keeps durable copies of failed unit inputs.
type QuarantineStore interface {
	// Quarantine copies the input tree and writes the error sidecar.
	// Returns the created record.
	Quarantine(ctx context.Context, unitID string, route domain.Route, inputPath string, reason error) (*domain.QuarantineRecord, error)
}
