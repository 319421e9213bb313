package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driving"
)

// mockIngestor implements driving.Ingestor for testing.
type mockIngestor struct {
	uploads  []string
	result   *driving.IngestResult
	summary  *driving.BatchSummary
	manifest []byte
	err      error
}

func (m *mockIngestor) Upload(_ context.Context, path string) (*driving.IngestResult, error) {
	m.uploads = append(m.uploads, path)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIngestor) ProcessNow(_ context.Context) (*driving.BatchSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

func (m *mockIngestor) Status(_ context.Context, _ string) ([]byte, error) {
	if m.manifest == nil {
		return nil, domain.ErrNotFound
	}
	return m.manifest, nil
}

func setupIngestTest(mock *mockIngestor) func() {
	old := ingestionService
	ingestionService = mock
	return func() {
		ingestionService = old
	}
}

func TestIngest_Success(t *testing.T) {
	mock := &mockIngestor{result: &driving.IngestResult{
		UnitID: "unit-aabbccdd00112233",
		Route:  domain.RouteDocx,
	}}
	cleanup := setupIngestTest(mock)
	defer cleanup()

	out, err := execute(t, "ingest", "/work/input/tender.docx")

	require.NoError(t, err)
	assert.Equal(t, []string{"/work/input/tender.docx"}, mock.uploads)
	assert.Contains(t, out, "unit-aabbccdd00112233")
	assert.Contains(t, out, "docx")
}

func TestIngest_FromCache(t *testing.T) {
	mock := &mockIngestor{result: &driving.IngestResult{
		UnitID:    "unit-aabbccdd00112233",
		Route:     domain.RoutePDFText,
		FromCache: true,
	}}
	cleanup := setupIngestTest(mock)
	defer cleanup()

	out, err := execute(t, "ingest", "/work/input/tender.pdf")

	require.NoError(t, err)
	assert.Contains(t, out, "from cache")
}

func TestIngest_Quarantined(t *testing.T) {
	mock := &mockIngestor{result: &driving.IngestResult{
		Quarantined: true,
		Err:         domain.ErrBadArchive,
	}}
	cleanup := setupIngestTest(mock)
	defer cleanup()

	out, err := execute(t, "ingest", "/work/input/broken.zip")

	require.NoError(t, err)
	assert.Contains(t, out, "Quarantined")
	assert.Contains(t, out, "bad archive")
}

func TestIngest_Skipped(t *testing.T) {
	mock := &mockIngestor{result: &driving.IngestResult{}}
	cleanup := setupIngestTest(mock)
	defer cleanup()

	out, err := execute(t, "ingest", "/work/input/signature.p7s")

	require.NoError(t, err)
	assert.Contains(t, out, "not a processable file")
}

func TestIngest_ServiceNotConfigured(t *testing.T) {
	old := ingestionService
	ingestionService = nil
	defer func() { ingestionService = old }()

	_, err := execute(t, "ingest", "/work/input/a.pdf")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion service not configured")
}

func TestProcess_PrintsSummary(t *testing.T) {
	mock := &mockIngestor{summary: &driving.BatchSummary{
		Processed: 3,
		Succeeded: 2,
		Failed:    1,
		Outcomes: []driving.ItemOutcome{
			{Input: "a.pdf", UnitID: "unit-1"},
			{Input: "b.zip", UnitID: "unit-2"},
			{Input: "c.bin", Error: "not an archive"},
		},
	}}
	cleanup := setupIngestTest(mock)
	defer cleanup()

	out, err := execute(t, "process")

	require.NoError(t, err)
	assert.Contains(t, out, "Processed 3 files: 2 succeeded, 1 failed")
	assert.Contains(t, out, "a.pdf -> unit-1")
	assert.Contains(t, out, "c.bin: not an archive")
}

func TestStatus_PrintsManifest(t *testing.T) {
	mock := &mockIngestor{manifest: []byte(`{"unit_id": "unit-1"}`)}
	cleanup := setupIngestTest(mock)
	defer cleanup()

	out, err := execute(t, "status", "unit-1")

	require.NoError(t, err)
	assert.Contains(t, out, `"unit_id": "unit-1"`)
}

func TestStatus_UnknownUnit(t *testing.T) {
	cleanup := setupIngestTest(&mockIngestor{})
	defer cleanup()

	_, err := execute(t, "status", "unit-missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
