// Package extract unpacks attachment archives with hard safety bounds.
//
// Archives from public procurement feeds are untrusted input. Every
// backend enforces the same caps before writing anything: a total
// uncompressed size ceiling checked against declared sizes, a member
// count ceiling, and member name sanitisation so no entry can escape
// its target directory.
package extract

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
)

var _ driven.ArchiveExtractor = (*Extractor)(nil)

// Extractor routes an archive to the backend for its real format. The
// format comes from byte-signature classification, never the filename.
type Extractor struct {
	classifier driven.Classifier
	external   *externalBackend
	maxBytes   int64
	maxMembers int
}

// New creates an extractor bounded by the pipeline config caps. runner
// executes the unrar and 7z tools for the non-zip formats.
func New(classifier driven.Classifier, runner driven.CommandRunner, cfg domain.PipelineConfig) *Extractor {
	return &Extractor{
		classifier: classifier,
		external:   &externalBackend{runner: runner},
		maxBytes:   cfg.MaxArchiveBytes,
		maxMembers: cfg.MaxArchiveMembers,
	}
}

// Extract unpacks archivePath into targetDir and returns the written
// members. Files whose bytes are not an archive format are rejected
// with ErrNotAnArchive so callers can route them down the non-archive
// path instead.
func (e *Extractor) Extract(ctx context.Context, archivePath, targetDir string) ([]driven.ExtractedFile, error) {
	cls := e.classifier.Classify(ctx, archivePath)

	switch cls.DetectedType {
	case domain.TypeZipArchive:
		return e.extractZip(ctx, archivePath, targetDir)
	case domain.TypeRarArchive:
		return e.external.extract(ctx, toolUnrar, archivePath, targetDir, e.maxBytes, e.maxMembers)
	case domain.Type7zArchive:
		return e.external.extract(ctx, tool7z, archivePath, targetDir, e.maxBytes, e.maxMembers)
	default:
		return nil, fmt.Errorf("%s detected as %s: %w", archivePath, cls.DetectedType, domain.ErrNotAnArchive)
	}
}

// sanitizeName reduces an archive member name to a safe flat filename.
// Directory components and traversal sequences are dropped, control and
// filesystem-reserved characters become underscores.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(path.Clean(name))
	base = strings.TrimLeft(base, ".")
	if base == "" || base == "/" {
		base = "member"
	}

	var b strings.Builder
	for _, r := range base {
		if r < 0x20 || strings.ContainsRune(`<>:"|?*`, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// uniqueName resolves collisions between sanitised names by inserting a
// numeric suffix before the extension.
func uniqueName(name string, taken map[string]bool) string {
	if !taken[name] {
		taken[name] = true
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !taken[candidate] {
			taken[candidate] = true
			return candidate
		}
	}
}
