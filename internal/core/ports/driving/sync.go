package driving

import (
	"context"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

// SyncSupervisor owns replication runs: it computes windows, launches the
// background task and tracks run status.
type SyncSupervisor interface {
	// Start creates a run for the mode and window and launches it in the
	// background. Returns the persisted run in pending or running state.
	Start(ctx context.Context, mode domain.SyncMode, window domain.SyncWindow) (*domain.SyncRun, error)

	// Cancel requests cooperative cancellation of a running run.
	// The run stops between batches and is marked cancelled without
	// advancing the cursor.
	Cancel(ctx context.Context, runID string) error

	// Status returns the current state of a run.
	Status(ctx context.Context, runID string) (*domain.SyncRun, error)

	// Wait blocks until the run reaches a terminal status.
	Wait(runID string)
}
