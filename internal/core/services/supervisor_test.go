package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/noticeflow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

type supervisorFixture struct {
	supervisor *SyncRunSupervisor
	feed       *mockFeed
	records    *memory.SourceRecordStore
	cursors    *memory.CursorStore
	runs       *memory.SyncRunStore
}

func newSupervisorFixture(feed *mockFeed) *supervisorFixture {
	f := &supervisorFixture{
		feed:    feed,
		records: memory.NewSourceRecordStore(),
		cursors: memory.NewCursorStore(),
		runs:    memory.NewSyncRunStore(),
	}
	f.supervisor = NewSyncRunSupervisor(f.feed, f.records, f.cursors, f.runs)
	return f
}

func feedRecord(notice string, published time.Time) domain.SourceRecord {
	return domain.SourceRecord{
		NoticeNumber: notice,
		SourceTag:    "fed44",
		PublishDate:  published,
		Attachments:  []domain.AttachmentRef{{URL: "https://src/" + notice}},
	}
}

func august(day int) time.Time {
	return time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC)
}

func TestIncrementalRunInsertsAndAdvancesCursor(t *testing.T) {
	f := newSupervisorFixture(&mockFeed{records: []domain.SourceRecord{
		feedRecord("001", august(10)),
		feedRecord("002", august(12)),
	}})
	ctx := context.Background()

	run, err := f.supervisor.Start(ctx, domain.SyncIncremental, domain.SyncWindow{})
	require.NoError(t, err)
	f.supervisor.Wait(run.ID)

	final, err := f.supervisor.Status(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, final.Status)
	assert.Equal(t, 2, final.Stats.Scanned)
	assert.Equal(t, 2, final.Stats.Inserted)
	assert.Equal(t, august(12), final.Stats.CurrentCursor)
	assert.False(t, final.EndedAt.IsZero())

	// Cursor advanced to the window's upper bound.
	cursor, err := f.cursors.Get(ctx, "fed44")
	require.NoError(t, err)
	assert.Equal(t, final.Window.End, cursor.LastValue)
	assert.Equal(t, "publish_date", cursor.CursorField)

	counts, err := f.records.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.RecordPending])
}

func TestRerunSkipsExistingRecords(t *testing.T) {
	f := newSupervisorFixture(&mockFeed{records: []domain.SourceRecord{
		feedRecord("001", august(10)),
	}})
	ctx := context.Background()
	window := domain.SyncWindow{Start: august(1), End: august(20)}

	first, err := f.supervisor.Start(ctx, domain.SyncReplay, window)
	require.NoError(t, err)
	f.supervisor.Wait(first.ID)

	second, err := f.supervisor.Start(ctx, domain.SyncReplay, window)
	require.NoError(t, err)
	f.supervisor.Wait(second.ID)

	final, err := f.supervisor.Status(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, final.Status)
	assert.Equal(t, 0, final.Stats.Inserted)
	assert.Equal(t, 1, final.Stats.SkippedExisting)
}

func TestBackfillWindowEndsAtCursor(t *testing.T) {
	f := newSupervisorFixture(&mockFeed{records: []domain.SourceRecord{
		feedRecord("old", august(5)),
		feedRecord("new", august(15)),
	}})
	ctx := context.Background()
	require.NoError(t, f.cursors.Advance(ctx, "fed44", "publish_date", august(10), time.Now()))

	run, err := f.supervisor.Start(ctx, domain.SyncBackfill, domain.SyncWindow{Start: august(1)})
	require.NoError(t, err)
	f.supervisor.Wait(run.ID)

	// Only the record before the cursor falls inside [from, cursor).
	final, err := f.supervisor.Status(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, final.Status)
	assert.Equal(t, august(10), final.Window.End)
	assert.Equal(t, 1, final.Stats.Inserted)

	// Backfill never moves the cursor.
	cursor, err := f.cursors.Get(ctx, "fed44")
	require.NoError(t, err)
	assert.Equal(t, august(10), cursor.LastValue)
}

func TestBackfillBeyondCursorIsEmptyNoOp(t *testing.T) {
	f := newSupervisorFixture(&mockFeed{records: []domain.SourceRecord{
		feedRecord("any", august(5)),
	}})
	ctx := context.Background()
	require.NoError(t, f.cursors.Advance(ctx, "fed44", "publish_date", august(10), time.Now()))

	run, err := f.supervisor.Start(ctx, domain.SyncBackfill, domain.SyncWindow{Start: august(12)})
	require.NoError(t, err)
	f.supervisor.Wait(run.ID)

	final, err := f.supervisor.Status(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, final.Status)
	assert.Equal(t, 0, final.Stats.Scanned)
}

func TestRangeRunValidatesWindow(t *testing.T) {
	f := newSupervisorFixture(&mockFeed{})

	_, err := f.supervisor.Start(context.Background(), domain.SyncRange, domain.SyncWindow{Start: august(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCancelStopsRunWithoutAdvancingCursor(t *testing.T) {
	release := make(chan struct{})
	f := newSupervisorFixture(&mockFeed{
		records: []domain.SourceRecord{
			feedRecord("001", august(10)),
			feedRecord("002", august(11)),
		},
		release: release,
	})
	ctx := context.Background()

	run, err := f.supervisor.Start(ctx, domain.SyncIncremental, domain.SyncWindow{})
	require.NoError(t, err)

	// Let one record through, then cancel while the feed is blocked.
	release <- struct{}{}
	require.Eventually(t, func() bool {
		status, err := f.supervisor.Status(ctx, run.ID)
		return err == nil && status.Stats.Scanned == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.supervisor.Cancel(ctx, run.ID))
	f.supervisor.Wait(run.ID)

	final, err := f.supervisor.Status(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCancelled, final.Status)

	_, err = f.cursors.Get(ctx, "fed44")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFeedErrorFailsRun(t *testing.T) {
	f := newSupervisorFixture(&mockFeed{err: errors.New("upstream 502")})
	ctx := context.Background()

	run, err := f.supervisor.Start(ctx, domain.SyncIncremental, domain.SyncWindow{})
	require.NoError(t, err)
	f.supervisor.Wait(run.ID)

	final, err := f.supervisor.Status(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, final.Status)
	assert.Contains(t, final.Error, "upstream 502")

	_, err = f.cursors.Get(ctx, "fed44")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFeedErrorAfterRecordsFailsRun(t *testing.T) {
	ctx := context.Background()

	// The feed delivers its error right before closing both channels, so
	// every run must observe it even when the stream close lands first.
	for i := 0; i < 20; i++ {
		f := newSupervisorFixture(&mockFeed{
			records: []domain.SourceRecord{feedRecord("001", august(10))},
			err:     errors.New("upstream reset"),
		})

		run, err := f.supervisor.Start(ctx, domain.SyncIncremental, domain.SyncWindow{})
		require.NoError(t, err)
		f.supervisor.Wait(run.ID)

		final, err := f.supervisor.Status(ctx, run.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RunFailed, final.Status)
		assert.Contains(t, final.Error, "upstream reset")
		assert.Equal(t, 1, final.Stats.Scanned)

		// A failed run never moves the cursor.
		_, err = f.cursors.Get(ctx, "fed44")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
}

func TestCancelUnknownAndTerminalRuns(t *testing.T) {
	f := newSupervisorFixture(&mockFeed{})
	ctx := context.Background()

	err := f.supervisor.Cancel(ctx, "no-such-run")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	run, err := f.supervisor.Start(ctx, domain.SyncIncremental, domain.SyncWindow{})
	require.NoError(t, err)
	f.supervisor.Wait(run.ID)

	err = f.supervisor.Cancel(ctx, run.ID)
	assert.ErrorIs(t, err, domain.ErrRunTerminal)
}

func TestStatusUnknownRun(t *testing.T) {
	f := newSupervisorFixture(&mockFeed{})

	_, err := f.supervisor.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}
