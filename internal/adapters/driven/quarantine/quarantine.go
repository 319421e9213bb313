// Package quarantine keeps durable copies of inputs that failed
// ingestion, each with a JSON sidecar describing the failure, so a bad
// attachment can be examined or replayed later without touching the
// live pipeline areas.
package quarantine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
	"github.com/custodia-labs/noticeflow/internal/logger"
	"github.com/custodia-labs/noticeflow/internal/workspace"
)

// Ensure Store implements the interface.
var _ driven.QuarantineStore = (*Store)(nil)

// sidecarName is the error description written next to the copied input.
const sidecarName = "error.json"

// sidecar is the serialised failure description.
type sidecar struct {
	UnitID        string       `json:"unit_id,omitempty"`
	Route         domain.Route `json:"route,omitempty"`
	Reason        string       `json:"reason"`
	InputPath     string       `json:"input_path"`
	QuarantinedAt time.Time    `json:"quarantined_at"`
}

// Store is the filesystem implementation of driven.QuarantineStore.
type Store struct {
	layout *workspace.Layout
}

// New creates a quarantine store over the workspace layout.
func New(layout *workspace.Layout) *Store {
	return &Store{layout: layout}
}

// Quarantine copies the input (file or directory tree) into a dedicated
// quarantine directory and writes the error sidecar. The original input
// is left untouched.
func (s *Store) Quarantine(_ context.Context, unitID string, route domain.Route, inputPath string, reason error) (*domain.QuarantineRecord, error) {
	record := domain.QuarantineRecord{
		UnitID:        unitID,
		Route:         route,
		Reason:        reason.Error(),
		InputPath:     inputPath,
		QuarantinedAt: time.Now(),
	}

	dir, err := s.recordDir(unitID)
	if err != nil {
		return nil, err
	}
	if err := copyTree(inputPath, dir); err != nil {
		return nil, fmt.Errorf("copying input to quarantine: %w", err)
	}

	data, err := json.MarshalIndent(sidecar{
		UnitID:        record.UnitID,
		Route:         record.Route,
		Reason:        record.Reason,
		InputPath:     record.InputPath,
		QuarantinedAt: record.QuarantinedAt,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sidecar: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, sidecarName), data, 0o640); err != nil {
		return nil, fmt.Errorf("writing sidecar: %w", err)
	}

	logger.Info("Quarantined %s into %s", inputPath, dir)
	return &record, nil
}

// recordDir creates a directory for one quarantined input. Repeated
// failures of the same unit get timestamp-suffixed directories instead
// of overwriting earlier evidence.
func (s *Store) recordDir(unitID string) (string, error) {
	name := unitID
	if name == "" {
		name = "input"
	}
	dir := filepath.Join(s.layout.Quarantine(), name)
	if _, err := os.Stat(dir); err == nil {
		dir = fmt.Sprintf("%s-%d", dir, time.Now().UnixNano())
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating quarantine directory: %w", err)
	}
	return dir, nil
}

// copyTree copies a file, or every regular file under a directory, into dest.
func copyTree(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, filepath.Join(dest, filepath.Base(src)))
	}

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
