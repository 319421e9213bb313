// Package memory provides in-memory implementations of the driven
// storage ports, used in tests and for ephemeral runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
)

// Ensure SourceRecordStore implements the interface.
var _ driven.SourceRecordStore = (*SourceRecordStore)(nil)

// SourceRecordStore is an in-memory implementation of driven.SourceRecordStore.
type SourceRecordStore struct {
	mu      sync.Mutex
	records map[string]domain.SourceRecord
}

// NewSourceRecordStore creates a new in-memory record store.
func NewSourceRecordStore() *SourceRecordStore {
	return &SourceRecordStore{
		records: make(map[string]domain.SourceRecord),
	}
}

// Insert creates a record if its natural key is absent.
func (s *SourceRecordStore) Insert(_ context.Context, record domain.SourceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := record.Key()
	if _, ok := s.records[key]; ok {
		return domain.ErrAlreadyExists
	}
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	s.records[key] = record
	return nil
}

// Get retrieves a record by natural key.
func (s *SourceRecordStore) Get(_ context.Context, sourceTag, noticeNumber string) (*domain.SourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[sourceTag+"/"+noticeNumber]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// Claim atomically transitions up to limit pending records to downloading.
// The single mutex makes the whole scan-and-flip atomic.
func (s *SourceRecordStore) Claim(_ context.Context, limit int) ([]domain.SourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]domain.SourceRecord, 0)
	for _, record := range s.records {
		if record.Status == domain.RecordPending {
			pending = append(pending, record)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit < len(pending) {
		pending = pending[:limit]
	}

	for i := range pending {
		pending[i].Status = domain.RecordDownloading
		pending[i].UpdatedAt = time.Now()
		s.records[pending[i].Key()] = pending[i]
	}
	return pending, nil
}

// UpdateStatus moves a record to the given status.
func (s *SourceRecordStore) UpdateStatus(_ context.Context, sourceTag, noticeNumber string, status domain.RecordStatus, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sourceTag + "/" + noticeNumber
	record, ok := s.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	record.Status = status
	record.LastError = ""
	if status == domain.RecordError {
		record.LastError = lastErr
	}
	record.UpdatedAt = time.Now()
	s.records[key] = record
	return nil
}

// ListByStatus returns records in the given status, oldest first.
func (s *SourceRecordStore) ListByStatus(_ context.Context, status domain.RecordStatus, limit int) ([]domain.SourceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.SourceRecord, 0)
	for _, record := range s.records {
		if record.Status == status {
			result = append(result, record)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// CountByStatus returns the number of records per status.
func (s *SourceRecordStore) CountByStatus(_ context.Context) (map[domain.RecordStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[domain.RecordStatus]int)
	for _, record := range s.records {
		counts[record.Status]++
	}
	return counts, nil
}
