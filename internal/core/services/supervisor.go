package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driving"
	"github.com/custodia-labs/noticeflow/internal/logger"
)

// Ensure SyncRunSupervisor implements the interface.
var _ driving.SyncSupervisor = (*SyncRunSupervisor)(nil)

// statsFlushEvery is how many scanned records pass between persisted
// progress snapshots.
const statsFlushEvery = 100

// activeRun tracks one in-flight replication run.
type activeRun struct {
	run    *domain.SyncRun
	cancel context.CancelFunc
	done   chan struct{}
}

// SyncRunSupervisor owns replication runs. It computes the effective
// window for each mode, launches the run in the background, tracks
// progress and advances the cursor only for cursor-advancing modes.
type SyncRunSupervisor struct {
	feed    driven.NoticeFeed
	records driven.SourceRecordStore
	cursors driven.CursorStore
	runs    driven.SyncRunStore

	mu     sync.RWMutex
	active map[string]*activeRun
}

// NewSyncRunSupervisor creates a sync run supervisor.
func NewSyncRunSupervisor(
	feed driven.NoticeFeed,
	records driven.SourceRecordStore,
	cursors driven.CursorStore,
	runs driven.SyncRunStore,
) *SyncRunSupervisor {
	return &SyncRunSupervisor{
		feed:    feed,
		records: records,
		cursors: cursors,
		runs:    runs,
		active:  make(map[string]*activeRun),
	}
}

// Start validates the window, persists the run and launches it in the
// background. The returned run is a snapshot in pending state.
func (s *SyncRunSupervisor) Start(ctx context.Context, mode domain.SyncMode, window domain.SyncWindow) (*domain.SyncRun, error) {
	if err := mode.ValidateWindow(window); err != nil {
		return nil, err
	}

	effective, err := s.effectiveWindow(ctx, mode, window)
	if err != nil {
		return nil, err
	}

	run := &domain.SyncRun{
		ID:         uuid.NewString(),
		Collection: s.feed.Collection(),
		Mode:       mode,
		Status:     domain.RunPending,
		Window:     effective,
		StartedAt:  time.Now(),
	}
	if err := s.runs.Save(ctx, *run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	// The run outlives the caller's request context.
	runCtx, cancel := context.WithCancel(context.Background())
	a := &activeRun{run: run, cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.active[run.ID] = a
	s.mu.Unlock()

	go s.execute(runCtx, a)

	snapshot := *run
	return &snapshot, nil
}

// Cancel requests cooperative cancellation. The run stops between
// records and is marked cancelled without advancing the cursor.
func (s *SyncRunSupervisor) Cancel(ctx context.Context, runID string) error {
	s.mu.RLock()
	a, ok := s.active[runID]
	s.mu.RUnlock()
	if ok {
		logger.Info("Cancelling run %s", runID)
		a.cancel()
		return nil
	}

	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return fmt.Errorf("%s: %w", runID, domain.ErrRunNotFound)
	}
	if run.Status.Terminal() {
		return fmt.Errorf("%s is %s: %w", runID, run.Status, domain.ErrRunTerminal)
	}
	return fmt.Errorf("%s: %w", runID, domain.ErrRunNotFound)
}

// Status returns the current state of a run: the live snapshot for
// active runs, the stored state otherwise.
func (s *SyncRunSupervisor) Status(ctx context.Context, runID string) (*domain.SyncRun, error) {
	s.mu.RLock()
	a, ok := s.active[runID]
	if ok {
		snapshot := *a.run
		s.mu.RUnlock()
		return &snapshot, nil
	}
	s.mu.RUnlock()

	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", runID, domain.ErrRunNotFound)
	}
	return run, nil
}

// Wait blocks until the run reaches a terminal status. Unknown and
// already-terminal runs return immediately.
func (s *SyncRunSupervisor) Wait(runID string) {
	s.mu.RLock()
	a, ok := s.active[runID]
	s.mu.RUnlock()
	if ok {
		<-a.done
	}
}

// effectiveWindow resolves the caller window against the cursor.
// Incremental replicates [cursor, now); backfill replicates
// [from, cursor-at-computation) so it can never race a concurrent
// incremental run past the high-water-mark.
func (s *SyncRunSupervisor) effectiveWindow(ctx context.Context, mode domain.SyncMode, window domain.SyncWindow) (domain.SyncWindow, error) {
	switch mode {
	case domain.SyncRange, domain.SyncReplay:
		return window, nil

	case domain.SyncIncremental:
		start := time.Time{}
		cursor, err := s.cursors.Get(ctx, s.feed.Collection())
		switch {
		case err == nil:
			start = cursor.LastValue
		case !errors.Is(err, domain.ErrNotFound):
			return domain.SyncWindow{}, fmt.Errorf("read cursor: %w", err)
		}
		return domain.SyncWindow{Start: start, End: time.Now()}, nil

	case domain.SyncBackfill:
		end := time.Now()
		cursor, err := s.cursors.Get(ctx, s.feed.Collection())
		switch {
		case err == nil:
			end = cursor.LastValue
		case !errors.Is(err, domain.ErrNotFound):
			return domain.SyncWindow{}, fmt.Errorf("read cursor: %w", err)
		}
		return domain.SyncWindow{Start: window.Start, End: end}, nil

	default:
		return domain.SyncWindow{}, fmt.Errorf("%w: unknown sync mode %q", domain.ErrInvalidInput, string(mode))
	}
}

// execute drives one run to a terminal status.
func (s *SyncRunSupervisor) execute(ctx context.Context, a *activeRun) {
	defer close(a.done)
	defer s.unregister(a.run.ID)

	s.transition(a, domain.RunRunning, "")

	// An empty window is a successful no-op, common when a backfill
	// lower bound already caught up with the cursor.
	if a.run.Window.Empty() {
		s.finish(a, domain.RunCompleted, "")
		return
	}

	logger.Info("Run %s replicating %s [%s, %s)",
		a.run.ID, a.run.Collection,
		a.run.Window.Start.Format(time.RFC3339), a.run.Window.End.Format(time.RFC3339))

	err := s.replicate(ctx, a)
	switch {
	case errors.Is(err, context.Canceled):
		s.finish(a, domain.RunCancelled, "")
	case err != nil:
		s.finish(a, domain.RunFailed, err.Error())
	default:
		s.advanceCursor(a)
		s.finish(a, domain.RunCompleted, "")
	}
}

// replicate consumes the feed and inserts records, tolerating
// per-record failures. Both channels are drained before the stream
// counts as complete: a feed failure reported just before close must
// never pass for success.
func (s *SyncRunSupervisor) replicate(ctx context.Context, a *activeRun) error {
	recordsCh, errsCh := s.feed.Fetch(ctx, a.run.Window)

	for recordsCh != nil || errsCh != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("feed error: %w", err)
			}

		case record, ok := <-recordsCh:
			if !ok {
				recordsCh = nil
				continue
			}
			s.ingestRecord(ctx, a, record)
		}
	}
	s.saveProgress(a)
	return nil
}

// ingestRecord inserts one replicated record and updates the counters.
func (s *SyncRunSupervisor) ingestRecord(ctx context.Context, a *activeRun, record domain.SourceRecord) {
	s.mu.Lock()
	a.run.Stats.Scanned++
	if record.PublishDate.After(a.run.Stats.CurrentCursor) {
		a.run.Stats.CurrentCursor = record.PublishDate
	}
	s.mu.Unlock()

	record.Status = domain.RecordPending
	err := s.records.Insert(ctx, record)
	s.mu.Lock()
	switch {
	case err == nil:
		a.run.Stats.Inserted++
	case errors.Is(err, domain.ErrAlreadyExists):
		a.run.Stats.SkippedExisting++
	default:
		a.run.Stats.Errors++
		logger.Debug("insert %s: %v", record.Key(), err)
	}
	flush := a.run.Stats.Scanned%statsFlushEvery == 0
	s.mu.Unlock()

	if flush {
		s.saveProgress(a)
	}
}

// advanceCursor moves the high-water-mark to the window's upper bound
// for cursor-advancing modes. The store keeps it monotonic.
func (s *SyncRunSupervisor) advanceCursor(a *activeRun) {
	if !a.run.Mode.AdvancesCursor() {
		return
	}
	ctx := context.Background()
	if err := s.cursors.Advance(ctx, a.run.Collection, s.feed.CursorField(), a.run.Window.End, time.Now()); err != nil {
		logger.Warn("advance cursor for %s: %v", a.run.Collection, err)
	}
}

// transition updates the run status and persists it.
func (s *SyncRunSupervisor) transition(a *activeRun, status domain.RunStatus, msg string) {
	s.mu.Lock()
	a.run.Status = status
	a.run.Error = msg
	s.mu.Unlock()
	s.saveProgress(a)
}

// finish records the terminal status with an end timestamp.
func (s *SyncRunSupervisor) finish(a *activeRun, status domain.RunStatus, msg string) {
	s.mu.Lock()
	a.run.Status = status
	a.run.Error = msg
	a.run.EndedAt = time.Now()
	s.mu.Unlock()
	s.saveProgress(a)

	logger.Info("Run %s %s: scanned=%d inserted=%d skipped=%d errors=%d",
		a.run.ID, status, a.run.Stats.Scanned, a.run.Stats.Inserted,
		a.run.Stats.SkippedExisting, a.run.Stats.Errors)
}

// saveProgress persists the run snapshot outside any request context.
func (s *SyncRunSupervisor) saveProgress(a *activeRun) {
	s.mu.RLock()
	snapshot := *a.run
	s.mu.RUnlock()
	if err := s.runs.Save(context.Background(), snapshot); err != nil {
		logger.Warn("save run %s: %v", snapshot.ID, err)
	}
}

// unregister removes the run from the active registry.
func (s *SyncRunSupervisor) unregister(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, runID)
}
