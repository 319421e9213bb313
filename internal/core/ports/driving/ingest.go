package driving

import (
	"context"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

// Ingestor turns input files into units.
type Ingestor interface {
	// Upload ingests a single file and returns the outcome.
	Upload(ctx context.Context, path string) (*IngestResult, error)

	// ProcessNow scans the input root and ingests every file found.
	// It always returns a summary, even under total failure.
	ProcessNow(ctx context.Context) (*BatchSummary, error)

	// Status returns the manifest for a unit.
	Status(ctx context.Context, unitID string) ([]byte, error)
}

// IngestResult is the outcome of ingesting one input file.
type IngestResult struct {
	// UnitID identifies the created or reused unit. Empty on failure.
	UnitID string

	// Route is the derived processing route.
	Route domain.Route

	// FromCache is true when a fresh hash-cache entry served the result
	// without re-running classification or extraction.
	FromCache bool

	// Quarantined is true when the input failed fatally.
	Quarantined bool

	// Err holds the failure, nil on success.
	Err error
}

// BatchSummary aggregates per-item outcomes of a batch operation.
type BatchSummary struct {
	// Processed is the number of items attempted.
	Processed int

	// Succeeded is the number of items that produced a ready unit.
	Succeeded int

	// Failed is the number of items that failed.
	Failed int

	// Outcomes lists the per-item results, in processing order.
	Outcomes []ItemOutcome
}

// ItemOutcome is the result for a single batch item.
type ItemOutcome struct {
	// Input identifies the item (file path or record key).
	Input string

	// UnitID is set when a unit was created or reused.
	UnitID string

	// Error is the failure message, empty on success.
	Error string
}
