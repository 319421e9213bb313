// Package workspace manages the on-disk directory layout the pipeline
// works in: where inputs arrive, where downloads stage, where archives
// unpack, where finished units live and where failures are quarantined.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout is the set of working directories under one root.
type Layout struct {
	root string
}

// Subdirectory names under the workspace root.
const (
	inputDir      = "input"
	stagingDir    = "staging"
	extractedDir  = "extracted"
	unitsDir      = "units"
	archivesDir   = "archives"
	quarantineDir = "quarantine"
)

// New creates a layout rooted at root and ensures every directory exists.
// If root is empty, defaults to ~/.noticeflow/workspace.
func New(root string) (*Layout, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		root = filepath.Join(home, ".noticeflow", "workspace")
	}

	l := &Layout{root: root}
	for _, dir := range []string{
		l.Input(), l.Staging(), l.Extracted(), l.Units(), l.Archives(), l.Quarantine(),
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating workspace directory: %w", err)
		}
	}
	return l, nil
}

// Root returns the workspace root.
func (l *Layout) Root() string { return l.root }

// Input is the root scanned for new files.
func (l *Layout) Input() string { return filepath.Join(l.root, inputDir) }

// Staging holds in-flight downloads.
func (l *Layout) Staging() string { return filepath.Join(l.root, stagingDir) }

// Extracted holds unpacked archive members.
func (l *Layout) Extracted() string { return filepath.Join(l.root, extractedDir) }

// Units holds the canonical per-unit sanitised file trees.
func (l *Layout) Units() string { return filepath.Join(l.root, unitsDir) }

// Archives is the retention area for original archive files.
func (l *Layout) Archives() string { return filepath.Join(l.root, archivesDir) }

// Quarantine holds failed unit inputs plus their error sidecars.
func (l *Layout) Quarantine() string { return filepath.Join(l.root, quarantineDir) }

// UnitDir returns (and creates) the directory for one unit.
func (l *Layout) UnitDir(unitID string) (string, error) {
	dir := filepath.Join(l.Units(), unitID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating unit directory: %w", err)
	}
	return dir, nil
}

// ExtractionDir returns (and creates) a per-archive extraction directory.
func (l *Layout) ExtractionDir(unitID string) (string, error) {
	dir := filepath.Join(l.Extracted(), unitID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating extraction directory: %w", err)
	}
	return dir, nil
}

// StagingDir returns (and creates) a per-record staging directory.
func (l *Layout) StagingDir(recordKey string) (string, error) {
	dir := filepath.Join(l.Staging(), recordKey)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	return dir, nil
}
