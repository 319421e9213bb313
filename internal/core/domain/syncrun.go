package domain

import (
	"fmt"
	"time"
)

// SyncMode selects how a replication run computes its date window.
type SyncMode string

const (
	// SyncIncremental replicates [cursor, now) and advances the cursor.
	SyncIncremental SyncMode = "incremental"

	// SyncRange replicates a caller-supplied window and advances the cursor.
	SyncRange SyncMode = "range"

	// SyncBackfill replicates [from, cursor) without touching the cursor.
	SyncBackfill SyncMode = "backfill"

	// SyncReplay re-replicates a caller-supplied window without touching
	// the cursor.
	SyncReplay SyncMode = "replay"
)

// RunStatus is the lifecycle state of a SyncRun.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// SyncWindow is the half-open date interval [Start, End) a run replicates.
type SyncWindow struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the window contains no time at all.
func (w SyncWindow) Empty() bool {
	return !w.Start.Before(w.End)
}

// SyncStats is the progress counters a run emits while replicating.
type SyncStats struct {
	// Scanned is the number of upstream records examined.
	Scanned int

	// Inserted is the number of new records created locally.
	Inserted int

	// SkippedExisting counts records whose natural key already existed.
	SkippedExisting int

	// Errors counts per-record failures. They never abort the run.
	Errors int

	// CurrentCursor is the highest cursor value seen so far.
	CurrentCursor time.Time
}

// SyncRun is one replication run. It is owned by the supervisor and
// terminal once Status leaves {pending, running}.
type SyncRun struct {
	// ID is the unique run identifier.
	ID string

	// Collection names the replicated upstream collection.
	Collection string

	// Mode is how the window was computed.
	Mode SyncMode

	// Status is the run's lifecycle state.
	Status RunStatus

	// Window is the replicated interval [Start, End).
	Window SyncWindow

	// Stats holds the latest progress counters.
	Stats SyncStats

	// Error is the failure message when Status is failed.
	Error string

	// StartedAt is when the run was created.
	StartedAt time.Time

	// EndedAt is when the run reached a terminal status.
	EndedAt time.Time
}

// AdvancesCursor reports whether a successful run in this mode moves the
// replication cursor. Backfill and replay never do.
func (m SyncMode) AdvancesCursor() bool {
	return m == SyncIncremental || m == SyncRange
}

// ValidateWindow checks the caller-supplied window against the mode.
// Incremental runs compute their own window; range and replay need both
// bounds; backfill needs only the lower bound.
func (m SyncMode) ValidateWindow(w SyncWindow) error {
	switch m {
	case SyncIncremental:
		return nil
	case SyncRange, SyncReplay:
		if w.Start.IsZero() || w.End.IsZero() {
			return fmt.Errorf("%w: %s mode requires both window bounds", ErrInvalidInput, m)
		}
		if w.Empty() {
			return fmt.Errorf("%w: window start must precede end", ErrInvalidInput)
		}
		return nil
	case SyncBackfill:
		if w.Start.IsZero() {
			return fmt.Errorf("%w: backfill requires a start date", ErrInvalidInput)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown sync mode %q", ErrInvalidInput, string(m))
	}
}

// CursorState is the persisted high-water-mark for one replicated
// collection. It is monotonic non-decreasing under incremental and range
// runs and untouched by backfill and replay.
type CursorState struct {
	// Collection names the replicated collection.
	Collection string

	// CursorField is the upstream field the cursor tracks, e.g. "publish_date".
	CursorField string

	// LastValue is the high-water-mark.
	LastValue time.Time

	// LastRunAt is when the last successful cursor-advancing run finished.
	LastRunAt time.Time
}
