package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
	"github.com/custodia-labs/noticeflow/internal/logger"
	"github.com/custodia-labs/noticeflow/internal/workspace"
)

// manifestName is the manifest filename written into each unit directory.
const manifestName = "manifest.json"

// ClassifiedFile is one staged input file with its classifier verdict,
// the shape the router hands to the assembler.
type ClassifiedFile struct {
	// Path is the file's current location on disk.
	Path string

	// OriginalName is the name the file arrived with.
	OriginalName string

	// StoredName is the sanitised name to use inside the unit directory.
	StoredName string

	// Classification is the classifier verdict.
	Classification domain.Classification

	// ConvertedFrom is set when the external converter produced this file
	// from a sibling in the same set.
	ConvertedFrom string
}

// Manifest is the serialised description of a unit, written alongside
// the unit's files and persisted in the unit store.
type Manifest struct {
	UnitID    string         `json:"unit_id"`
	Route     domain.Route   `json:"route"`
	SourceKey string         `json:"source_key,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Files     []ManifestFile `json:"files"`
}

// ManifestFile is one unit member in the manifest.
type ManifestFile struct {
	ID             string              `json:"id"`
	OriginalName   string              `json:"original_name"`
	StoredName     string              `json:"stored_name"`
	DetectedType   domain.DetectedType `json:"detected_type"`
	MIME           string              `json:"mime"`
	NeedsOCR       bool                `json:"needs_ocr,omitempty"`
	SHA256         string              `json:"sha256"`
	Size           int64               `json:"size"`
	ConvertedFrom  string              `json:"converted_from,omitempty"`
	IsDuplicate    bool                `json:"is_duplicate,omitempty"`
	OriginalFileID string              `json:"original_file_id,omitempty"`
}

// UnitAssembler builds content-addressed units out of classified files:
// it hashes content, marks duplicates, derives the route, copies files
// into the unit directory and writes the manifest. Assembly is
// idempotent, identical bytes always produce the same unit.
type UnitAssembler struct {
	units   driven.UnitStore
	cache   driven.HashCache
	layout  *workspace.Layout
	ttlDays int
}

// NewUnitAssembler creates a unit assembler.
func NewUnitAssembler(units driven.UnitStore, cache driven.HashCache, layout *workspace.Layout, cfg domain.PipelineConfig) *UnitAssembler {
	return &UnitAssembler{
		units:   units,
		cache:   cache,
		layout:  layout,
		ttlDays: cfg.CacheTTLDays,
	}
}

// Assemble builds a unit from the given files. The returned bool is true
// when a fresh hash-cache entry allowed reusing an existing unit without
// copying anything.
func (a *UnitAssembler) Assemble(ctx context.Context, sourceKey string, files []ClassifiedFile) (*domain.Unit, bool, error) {
	if len(files) == 0 {
		return nil, false, domain.ErrEmptyUnit
	}

	unitFiles, err := a.buildFileList(files)
	if err != nil {
		return nil, false, err
	}

	primarySHA := unitFiles[0].SHA256
	unitID := domain.UnitIDFor(primarySHA)

	// A fresh cache entry means identical content was fully processed
	// before; reuse that unit instead of redoing classification output.
	if cached, err := a.lookupCached(ctx, primarySHA, unitID); err == nil {
		return cached, true, nil
	}

	originals := withoutDuplicates(unitFiles)
	now := time.Now()
	unit := &domain.Unit{
		ID:        unitID,
		Route:     domain.DeriveRoute(originals),
		Files:     unitFiles,
		Status:    domain.UnitReady,
		SourceKey: sourceKey,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.materialise(unit, files); err != nil {
		return nil, false, err
	}

	manifest, err := a.writeManifest(ctx, unit)
	if err != nil {
		return nil, false, err
	}
	if err := a.units.SaveUnit(ctx, unit); err != nil {
		return nil, false, fmt.Errorf("save unit: %w", err)
	}

	if err := a.cache.Put(ctx, primarySHA, manifest, a.ttlDays); err != nil {
		// Cache misses are recoverable; the unit itself is complete.
		logger.Warn("hash cache put %s: %v", primarySHA, err)
	}

	logger.Debug("Assembled unit %s route=%s files=%d", unit.ID, unit.Route, len(unit.Files))
	return unit, false, nil
}

// buildFileList hashes every file and marks duplicate content. The first
// file of each digest group is the original.
func (a *UnitAssembler) buildFileList(files []ClassifiedFile) ([]domain.UnitFile, error) {
	unitFiles := make([]domain.UnitFile, 0, len(files))
	firstByDigest := make(map[string]string)

	for _, f := range files {
		sha, size, err := hashFile(f.Path)
		if err != nil {
			// A staged file vanishing before assembly is fatal for the
			// whole unit, the manifest would reference content that is
			// not there.
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%s: %w", f.Path, domain.ErrMissingFile)
			}
			return nil, fmt.Errorf("hashing %s: %w", f.Path, err)
		}

		uf := domain.UnitFile{
			ID:                 uuid.NewString(),
			OriginalName:       f.OriginalName,
			StoredName:         f.StoredName,
			DetectedType:       f.Classification.DetectedType,
			MIME:               f.Classification.MIME,
			NeedsOCR:           f.Classification.NeedsOCR,
			RequiresConversion: f.Classification.RequiresConversion,
			SHA256:             sha,
			Size:               size,
			ConvertedFrom:      f.ConvertedFrom,
		}
		if originalID, seen := firstByDigest[sha]; seen {
			uf.IsDuplicate = true
			uf.OriginalFileID = originalID
		} else {
			firstByDigest[sha] = uf.ID
		}
		unitFiles = append(unitFiles, uf)
	}
	return unitFiles, nil
}

// lookupCached returns the existing unit when the cache holds a fresh
// entry for the digest and the unit is still in the store.
func (a *UnitAssembler) lookupCached(ctx context.Context, sha, unitID string) (*domain.Unit, error) {
	if _, err := a.cache.Get(ctx, sha); err != nil {
		return nil, err
	}
	unit, err := a.units.GetUnit(ctx, unitID)
	if err != nil {
		// Stale cache entry pointing at a purged unit; rebuild.
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("unit lookup %s: %v", unitID, err)
		}
		return nil, domain.ErrNotFound
	}
	return unit, nil
}

// materialise copies original files into the unit directory. Duplicates
// are recorded in the manifest but not copied.
func (a *UnitAssembler) materialise(unit *domain.Unit, files []ClassifiedFile) error {
	dir, err := a.layout.UnitDir(unit.ID)
	if err != nil {
		return err
	}
	for i, uf := range unit.Files {
		if uf.IsDuplicate {
			continue
		}
		dest := filepath.Join(dir, uf.StoredName)
		if err := copyFile(files[i].Path, dest); err != nil {
			return fmt.Errorf("copying %s into unit %s: %w", uf.StoredName, unit.ID, err)
		}
	}
	return nil
}

// writeManifest serialises the manifest, writes it into the unit
// directory and persists it in the store. Returns the serialised bytes.
func (a *UnitAssembler) writeManifest(ctx context.Context, unit *domain.Unit) ([]byte, error) {
	m := Manifest{
		UnitID:    unit.ID,
		Route:     unit.Route,
		SourceKey: unit.SourceKey,
		CreatedAt: unit.CreatedAt,
		Files:     make([]ManifestFile, 0, len(unit.Files)),
	}
	for _, f := range unit.Files {
		m.Files = append(m.Files, ManifestFile{
			ID:             f.ID,
			OriginalName:   f.OriginalName,
			StoredName:     f.StoredName,
			DetectedType:   f.DetectedType,
			MIME:           f.MIME,
			NeedsOCR:       f.NeedsOCR,
			SHA256:         f.SHA256,
			Size:           f.Size,
			ConvertedFrom:  f.ConvertedFrom,
			IsDuplicate:    f.IsDuplicate,
			OriginalFileID: f.OriginalFileID,
		})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	dir, err := a.layout.UnitDir(unit.ID)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), data, 0o640); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := a.units.SaveManifest(ctx, unit.ID, data); err != nil {
		return nil, fmt.Errorf("save manifest: %w", err)
	}
	return data, nil
}

func withoutDuplicates(files []domain.UnitFile) []domain.UnitFile {
	out := make([]domain.UnitFile, 0, len(files))
	for _, f := range files {
		if !f.IsDuplicate {
			out = append(out, f)
		}
	}
	return out
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
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
