package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

// SourceRecordStore persists replicated notice records.
//
// Multiple dispatcher processes may work against the same store; the only
// cross-process coordination is Claim, which must be a single atomic
// pending -> downloading transition.
type SourceRecordStore interface {
	// Insert creates a record if its natural key is absent.
	// Returns domain.ErrAlreadyExists when the key is already present.
	Insert(ctx context.Context, record domain.SourceRecord) error

	// Get retrieves a record by natural key.
	Get(ctx context.Context, sourceTag, noticeNumber string) (*domain.SourceRecord, error)

	// Claim atomically transitions up to limit pending records to
	// downloading and returns them. Two concurrent callers never receive
	// the same record.
	Claim(ctx context.Context, limit int) ([]domain.SourceRecord, error)

	// UpdateStatus moves a record to the given status. lastErr is stored
	// only for the error status.
	UpdateStatus(ctx context.Context, sourceTag, noticeNumber string, status domain.RecordStatus, lastErr string) error

	// ListByStatus returns records in the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.RecordStatus, limit int) ([]domain.SourceRecord, error)

	// CountByStatus returns the number of records per status.
	CountByStatus(ctx context.Context) (map[domain.RecordStatus]int, error)
}

// CursorStore persists the per-collection replication high-water-mark.
type CursorStore interface {
	// Get retrieves the cursor for a collection.
	// Returns domain.ErrNotFound when no cursor exists yet.
	Get(ctx context.Context, collection string) (*domain.CursorState, error)

	// Advance moves the cursor forward. Implementations must keep the
	// stored value monotonic: an Advance to an earlier value is a no-op.
	Advance(ctx context.Context, collection, field string, value, runAt time.Time) error
}

// SyncRunStore persists replication run state.
type SyncRunStore interface {
	// Save stores or updates a run.
	Save(ctx context.Context, run domain.SyncRun) error

	// Get retrieves a run by id.
	Get(ctx context.Context, id string) (*domain.SyncRun, error)

	// List returns runs, most recently started first.
	List(ctx context.Context, limit int) ([]domain.SyncRun, error)
}
