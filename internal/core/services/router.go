package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driving"
	"github.com/custodia-labs/noticeflow/internal/logger"
	"github.com/custodia-labs/noticeflow/internal/workspace"
)

// Ensure IngestionRouter implements the interface.
var _ driving.Ingestor = (*IngestionRouter)(nil)

// IngestionRouter turns input files into units: classify, unpack
// archives, wait out pending conversions, then hand the file set to the
// assembler. Fatal failures quarantine the input instead of aborting the
// batch.
type IngestionRouter struct {
	classifier driven.Classifier
	extractor  driven.ArchiveExtractor
	quarantine driven.QuarantineStore
	assembler  *UnitAssembler
	units      driven.UnitStore
	layout     *workspace.Layout
	cfg        domain.PipelineConfig
}

// NewIngestionRouter creates an ingestion router.
func NewIngestionRouter(
	classifier driven.Classifier,
	extractor driven.ArchiveExtractor,
	quarantine driven.QuarantineStore,
	assembler *UnitAssembler,
	units driven.UnitStore,
	layout *workspace.Layout,
	cfg domain.PipelineConfig,
) *IngestionRouter {
	return &IngestionRouter{
		classifier: classifier,
		extractor:  extractor,
		quarantine: quarantine,
		assembler:  assembler,
		units:      units,
		layout:     layout,
		cfg:        cfg,
	}
}

// Upload ingests one file. Non-processable files (signature sidecars,
// known junk formats) are skipped with an empty result rather than
// treated as failures.
func (r *IngestionRouter) Upload(ctx context.Context, path string) (*driving.IngestResult, error) {
	cls := r.classifier.Classify(ctx, path)
	if !cls.Processable {
		logger.Debug("Skipping %s: %s", path, cls.DetectedType)
		return &driving.IngestResult{}, nil
	}

	var (
		files []ClassifiedFile
		err   error
	)
	if cls.IsArchive {
		files, err = r.unpack(ctx, path)
	} else {
		files, err = r.single(ctx, path, cls)
	}
	if err != nil {
		return r.quarantineInput(ctx, path, cls, err)
	}

	unit, fromCache, err := r.assembler.Assemble(ctx, "", files)
	if err != nil {
		return r.quarantineInput(ctx, path, cls, err)
	}

	return &driving.IngestResult{
		UnitID:    unit.ID,
		Route:     unit.Route,
		FromCache: fromCache,
	}, nil
}

// ProcessNow ingests every file currently in the input root. Successful
// inputs move to the archive area, failed ones are already copied to
// quarantine and removed.
func (r *IngestionRouter) ProcessNow(ctx context.Context) (*driving.BatchSummary, error) {
	entries, err := os.ReadDir(r.layout.Input())
	if err != nil {
		return nil, fmt.Errorf("scanning input root: %w", err)
	}

	summary := &driving.BatchSummary{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		path := filepath.Join(r.layout.Input(), entry.Name())
		summary.Processed++

		result, err := r.Upload(ctx, path)
		outcome := driving.ItemOutcome{Input: path}
		switch {
		case err != nil:
			summary.Failed++
			outcome.Error = err.Error()
			os.Remove(path)
		case result.Err != nil:
			summary.Failed++
			outcome.UnitID = result.UnitID
			outcome.Error = result.Err.Error()
			os.Remove(path)
		default:
			summary.Succeeded++
			outcome.UnitID = result.UnitID
			r.retire(path)
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}
	return summary, nil
}

// Status returns the stored manifest for a unit.
func (r *IngestionRouter) Status(ctx context.Context, unitID string) ([]byte, error) {
	return r.units.GetManifest(ctx, unitID)
}

// unpack extracts an archive and classifies every member, dropping the
// non-processable ones.
func (r *IngestionRouter) unpack(ctx context.Context, path string) ([]ClassifiedFile, error) {
	sha, _, err := hashFile(path)
	if err != nil {
		return nil, fmt.Errorf("hashing archive: %w", err)
	}
	dir, err := r.layout.ExtractionDir(domain.UnitIDFor(sha))
	if err != nil {
		return nil, err
	}

	extracted, err := r.extractor.Extract(ctx, path, dir)
	if err != nil {
		return nil, err
	}

	var files []ClassifiedFile
	for _, member := range extracted {
		cls := r.classifier.Classify(ctx, member.Path)
		if !cls.Processable {
			logger.Debug("Skipping member %s: %s", member.OriginalName, cls.DetectedType)
			continue
		}
		files = append(files, ClassifiedFile{
			Path:           member.Path,
			OriginalName:   member.OriginalName,
			StoredName:     member.StoredName,
			Classification: cls,
		})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("archive %s: %w", path, domain.ErrEmptyUnit)
	}
	return files, nil
}

// single wraps a standalone file, waiting for the external converter's
// output first when the file needs conversion.
func (r *IngestionRouter) single(ctx context.Context, path string, cls domain.Classification) ([]ClassifiedFile, error) {
	original := ClassifiedFile{
		Path:           path,
		OriginalName:   filepath.Base(path),
		StoredName:     filepath.Base(path),
		Classification: cls,
	}
	files := []ClassifiedFile{original}

	if cls.RequiresConversion {
		if converted, ok := r.awaitConversion(ctx, path); ok {
			convCls := r.classifier.Classify(ctx, converted)
			files = append(files, ClassifiedFile{
				Path:           converted,
				OriginalName:   filepath.Base(converted),
				StoredName:     filepath.Base(converted),
				Classification: convCls,
				ConvertedFrom:  original.StoredName,
			})
		}
	}
	return files, nil
}

// awaitConversion polls for a converter output file next to the input,
// same stem with a .docx or .pdf extension, until ConvertWait elapses.
// Missing output is not an error: the unit still routes to conversion.
func (r *IngestionRouter) awaitConversion(ctx context.Context, path string) (string, bool) {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	candidates := []string{stem + ".docx", stem + ".pdf"}

	deadline := time.Now().Add(r.cfg.ConvertWait)
	for {
		for _, candidate := range candidates {
			if info, err := os.Stat(candidate); err == nil && info.Size() > 0 {
				return candidate, true
			}
		}
		if time.Now().After(deadline) {
			return "", false
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(time.Second):
		}
	}
}

// quarantineInput copies the failed input to quarantine and reports the
// outcome. Quarantine failures are logged, never masked over the
// original error.
func (r *IngestionRouter) quarantineInput(ctx context.Context, path string, cls domain.Classification, cause error) (*driving.IngestResult, error) {
	sha, _, hashErr := hashFile(path)
	unitID := ""
	if hashErr == nil {
		unitID = domain.UnitIDFor(sha)
	}
	route := domain.DeriveRoute([]domain.UnitFile{{
		DetectedType: cls.DetectedType,
		NeedsOCR:     cls.NeedsOCR,
	}})

	if r.quarantine != nil {
		if _, err := r.quarantine.Quarantine(ctx, unitID, route, path, cause); err != nil {
			logger.Warn("quarantine %s: %v", path, err)
		}
	}
	if unitID != "" {
		if err := r.units.SaveUnit(ctx, &domain.Unit{
			ID:        unitID,
			Route:     route,
			Status:    domain.UnitQuarantined,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			logger.Warn("save quarantined unit %s: %v", unitID, err)
		}
	}

	logger.Info("Quarantined %s: %v", path, cause)
	return &driving.IngestResult{
		UnitID:      unitID,
		Route:       route,
		Quarantined: true,
		Err:         cause,
	}, nil
}

// retire moves a successfully ingested input into the archive retention
// area, falling back to deletion when the move fails.
func (r *IngestionRouter) retire(path string) {
	dest := filepath.Join(r.layout.Archives(), filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		logger.Warn("archiving input %s: %v", path, err)
		os.Remove(path)
	}
}
