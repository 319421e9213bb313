package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driving"
)

// mockDispatcher implements driving.Dispatcher for testing.
type mockDispatcher struct {
	limit   int
	summary *driving.BatchSummary
	err     error
}

func (m *mockDispatcher) Dispatch(_ context.Context, limit int) (*driving.BatchSummary, error) {
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

// mockRecordCounts implements driven.SourceRecordStore for the status command.
type mockRecordCounts struct {
	counts map[domain.RecordStatus]int
}

func (m *mockRecordCounts) Insert(_ context.Context, _ domain.SourceRecord) error { return nil }

func (m *mockRecordCounts) Get(_ context.Context, _, _ string) (*domain.SourceRecord, error) {
	return nil, domain.ErrNotFound
}

func (m *mockRecordCounts) Claim(_ context.Context, _ int) ([]domain.SourceRecord, error) {
	return nil, nil
}

func (m *mockRecordCounts) UpdateStatus(_ context.Context, _, _ string, _ domain.RecordStatus, _ string) error {
	return nil
}

func (m *mockRecordCounts) ListByStatus(_ context.Context, _ domain.RecordStatus, _ int) ([]domain.SourceRecord, error) {
	return nil, nil
}

func (m *mockRecordCounts) CountByStatus(_ context.Context) (map[domain.RecordStatus]int, error) {
	return m.counts, nil
}

func TestDispatch_PrintsSummary(t *testing.T) {
	mock := &mockDispatcher{summary: &driving.BatchSummary{
		Processed: 2,
		Succeeded: 1,
		Failed:    1,
		Outcomes: []driving.ItemOutcome{
			{Input: "fed44/001"},
			{Input: "fed44/002", Error: "all downloads failed"},
		},
	}}
	old := dispatchService
	dispatchService = mock
	defer func() { dispatchService = old }()

	out, err := execute(t, "dispatch", "--limit", "5")

	require.NoError(t, err)
	assert.Equal(t, 5, mock.limit)
	assert.Contains(t, out, "Dispatched 2 records: 1 succeeded, 1 failed")
	assert.Contains(t, out, "fed44/002: all downloads failed")
}

func TestDispatch_ServiceError(t *testing.T) {
	old := dispatchService
	dispatchService = &mockDispatcher{err: errors.New("store gone")}
	defer func() { dispatchService = old }()

	_, err := execute(t, "dispatch")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dispatch failed")
}

func TestDispatch_ServiceNotConfigured(t *testing.T) {
	old := dispatchService
	dispatchService = nil
	defer func() { dispatchService = old }()

	_, err := execute(t, "dispatch")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dispatch service not configured")
}

func TestStatus_QueueCounts(t *testing.T) {
	old := recordStore
	recordStore = &mockRecordCounts{counts: map[domain.RecordStatus]int{
		domain.RecordPending:    7,
		domain.RecordProcessing: 2,
	}}
	defer func() { recordStore = old }()

	out, err := execute(t, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "7")
	assert.Contains(t, out, "processing")
}
