package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
)

// mockClassifier returns canned classifications keyed by file basename,
// falling back to a default verdict.
type mockClassifier struct {
	byName     map[string]domain.Classification
	fallback   domain.Classification
	classified []string
}

func (m *mockClassifier) Classify(_ context.Context, path string) domain.Classification {
	m.classified = append(m.classified, path)
	if cls, ok := m.byName[filepath.Base(path)]; ok {
		return cls
	}
	return m.fallback
}

func pdfTextClassification() domain.Classification {
	return domain.Classification{
		DetectedType: domain.TypePDF,
		MIME:         "application/pdf",
		Processable:  true,
	}
}

func zipClassification() domain.Classification {
	return domain.Classification{
		DetectedType: domain.TypeZipArchive,
		MIME:         "application/zip",
		IsArchive:    true,
		Processable:  true,
	}
}

// mockExtractor writes canned members into the target directory.
type mockExtractor struct {
	members map[string]string // original name -> content
	err     error
}

func (m *mockExtractor) Extract(_ context.Context, _, targetDir string) ([]driven.ExtractedFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []driven.ExtractedFile
	for name, content := range m.members {
		stored := filepath.Base(name)
		path := filepath.Join(targetDir, stored)
		if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
			return nil, err
		}
		out = append(out, driven.ExtractedFile{
			OriginalName: name,
			StoredName:   stored,
			Path:         path,
			Size:         int64(len(content)),
		})
	}
	return out, nil
}

// mockQuarantine records quarantine calls.
type mockQuarantine struct {
	mu      sync.Mutex
	records []domain.QuarantineRecord
}

func (m *mockQuarantine) Quarantine(_ context.Context, unitID string, route domain.Route, inputPath string, reason error) (*domain.QuarantineRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := domain.QuarantineRecord{
		UnitID:    unitID,
		Route:     route,
		Reason:    reason.Error(),
		InputPath: inputPath,
	}
	m.records = append(m.records, rec)
	return &rec, nil
}

// mockFetcher serves canned bodies by URL.
type mockFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	errs   map[string]error
	fetched []string
}

func (m *mockFetcher) Fetch(_ context.Context, url, destPath string) (int64, error) {
	m.mu.Lock()
	m.fetched = append(m.fetched, url)
	m.mu.Unlock()
	if err, ok := m.errs[url]; ok {
		return 0, err
	}
	body, ok := m.bodies[url]
	if !ok {
		return 0, domain.ErrHTTPStatus
	}
	if err := os.WriteFile(destPath, body, 0o640); err != nil {
		return 0, err
	}
	return int64(len(body)), nil
}

// mockFeed streams canned records whose PublishDate falls in the
// window, then reports err (when set) just before closing both
// channels, the shape a failing upstream produces.
type mockFeed struct {
	records []domain.SourceRecord
	err     error

	// release, when set, gates emission so tests can cancel mid-stream.
	release chan struct{}
}

func (m *mockFeed) Collection() string  { return "fed44" }
func (m *mockFeed) CursorField() string { return "publish_date" }

func (m *mockFeed) Fetch(ctx context.Context, window domain.SyncWindow) (<-chan domain.SourceRecord, <-chan error) {
	recordsCh := make(chan domain.SourceRecord)
	errsCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errsCh)

		for _, record := range m.records {
			if m.release != nil {
				select {
				case <-ctx.Done():
					return
				case <-m.release:
				}
			}
			if record.PublishDate.Before(window.Start) || !record.PublishDate.Before(window.End) {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case recordsCh <- record:
			}
		}
		if m.err != nil {
			errsCh <- m.err
		}
	}()
	return recordsCh, errsCh
}
