package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
)

// Ensure CursorStore implements the interface.
var _ driven.CursorStore = (*CursorStore)(nil)

// CursorStore is an in-memory implementation of driven.CursorStore.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[string]domain.CursorState
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		cursors: make(map[string]domain.CursorState),
	}
}

// Get retrieves the cursor for a collection.
func (s *CursorStore) Get(_ context.Context, collection string) (*domain.CursorState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cursor, ok := s.cursors[collection]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cursor, nil
}

// Advance moves the cursor forward. An Advance to an earlier value is a
// no-op, the stored value never decreases.
func (s *CursorStore) Advance(_ context.Context, collection, field string, value, runAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.cursors[collection]
	if ok && !value.After(current.LastValue) {
		return nil
	}
	s.cursors[collection] = domain.CursorState{
		Collection:  collection,
		CursorField: field,
		LastValue:   value,
		LastRunAt:   runAt,
	}
	return nil
}

// Ensure SyncRunStore implements the interface.
var _ driven.SyncRunStore = (*SyncRunStore)(nil)

// SyncRunStore is an in-memory implementation of driven.SyncRunStore.
type SyncRunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.SyncRun
}

// NewSyncRunStore creates a new in-memory sync run store.
func NewSyncRunStore() *SyncRunStore {
	return &SyncRunStore{
		runs: make(map[string]domain.SyncRun),
	}
}

// Save stores or updates a run.
func (s *SyncRunStore) Save(_ context.Context, run domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// Get retrieves a run by id.
func (s *SyncRunStore) Get(_ context.Context, id string) (*domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// List returns runs, most recently started first.
func (s *SyncRunStore) List(_ context.Context, limit int) ([]domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SyncRun, 0, len(s.runs))
	for _, run := range s.runs {
		result = append(result, run)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}
