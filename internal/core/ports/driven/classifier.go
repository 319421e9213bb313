package driven

import (
	"context"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

// Classifier inspects a file's bytes and reports what it really is.
// Classification never fails: detection errors degrade to the unknown
// type so a single odd file can never halt the pipeline.
type Classifier interface {
	// Classify inspects the file at path.
	Classify(ctx context.Context, path string) domain.Classification
}

// ArchiveExtractor safely unpacks an archive into a target directory.
type ArchiveExtractor interface {
	// Extract unpacks the archive at archivePath into targetDir and
	// returns the extracted members in archive order. On failure nothing
	// beyond already-copied members is left behind. Errors are one of the
	// domain extraction sentinels.
	Extract(ctx context.Context, archivePath, targetDir string) ([]ExtractedFile, error)
}

// ExtractedFile describes one unpacked archive member.
type ExtractedFile struct {
	// OriginalName is the member name as declared in the archive.
	OriginalName string

	// StoredName is the sanitised name the member was written under.
	StoredName string

	// Path is the absolute location of the written file.
	Path string

	// Size is the member's uncompressed size in bytes.
	Size int64
}

// CommandRunner executes an external tool and returns its combined output.
// The PDF text probe and the rar/7z extraction backends shell out through
// it, which keeps the tools mockable in tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
