package extract

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
	"github.com/custodia-labs/noticeflow/internal/logger"
)

// extractZip unpacks a zip archive natively. Declared sizes are checked
// before a single byte is decompressed: members over the size cap are
// skipped, the rest must fit the cap in aggregate. Actual output is
// still bounded during copy in case a header lies.
func (e *Extractor) extractZip(ctx context.Context, archivePath, targetDir string) ([]driven.ExtractedFile, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		// ErrInsecurePath still yields a usable reader; member names are
		// sanitised below, so traversal entries are safe to read.
		return nil, fmt.Errorf("opening %s: %w", archivePath, domain.ErrBadArchive)
	}
	defer r.Close()

	members := 0
	var declared int64
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		members++
		if int64(f.UncompressedSize64) > e.maxBytes {
			// Skipped during extraction, so excluded from the aggregate.
			continue
		}
		declared += int64(f.UncompressedSize64)
	}
	if members > e.maxMembers {
		return nil, fmt.Errorf("%d members in %s: %w", members, archivePath, domain.ErrTooManyMembers)
	}
	if declared > e.maxBytes {
		return nil, fmt.Errorf("%d declared bytes in %s: %w", declared, archivePath, domain.ErrArchiveTooLarge)
	}

	var extracted []driven.ExtractedFile
	taken := make(map[string]bool)
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if int64(f.UncompressedSize64) > e.maxBytes {
			logger.Warn("skipping oversize member %s (%d bytes)", f.Name, f.UncompressedSize64)
			continue
		}

		stored := uniqueName(sanitizeName(f.Name), taken)
		dest := filepath.Join(targetDir, stored)
		size, err := e.writeMember(f, dest)
		if err != nil {
			return nil, err
		}

		extracted = append(extracted, driven.ExtractedFile{
			OriginalName: f.Name,
			StoredName:   stored,
			Path:         dest,
			Size:         size,
		})
	}
	return extracted, nil
}

// writeMember copies one zip entry to dest, bounded by the declared
// size. A member producing more bytes than it declared is treated as a
// corrupt archive.
func (e *Extractor) writeMember(f *zip.File, dest string) (int64, error) {
	src, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("opening member %s: %w", f.Name, domain.ErrBadArchive)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	limit := int64(f.UncompressedSize64) + 1
	n, err := io.Copy(out, io.LimitReader(src, limit))
	if err != nil {
		os.Remove(dest)
		return 0, fmt.Errorf("extracting member %s: %w", f.Name, domain.ErrBadArchive)
	}
	if n > int64(f.UncompressedSize64) {
		os.Remove(dest)
		return 0, fmt.Errorf("member %s larger than declared: %w", f.Name, domain.ErrBadArchive)
	}
	return n, nil
}
