package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
	"github.com/custodia-labs/noticeflow/internal/logger"
)

// External tool names for the formats the stdlib cannot read.
const (
	toolUnrar = "unrar"
	tool7z    = "7z"
)

// externalBackend shells out to unrar or 7z. The tools unpack into a
// scratch directory first; members are then sanitised, bounded and
// moved into the target, so a hostile archive never writes outside it.
type externalBackend struct {
	runner driven.CommandRunner
}

func (b *externalBackend) extract(ctx context.Context, tool, archivePath, targetDir string, maxBytes int64, maxMembers int) ([]driven.ExtractedFile, error) {
	scratch, err := os.MkdirTemp(targetDir, "raw-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	var args []string
	switch tool {
	case toolUnrar:
		args = []string{"x", "-o+", "-y", archivePath, scratch + string(os.PathSeparator)}
	case tool7z:
		args = []string{"x", "-y", "-o" + scratch, archivePath}
	default:
		return nil, fmt.Errorf("unknown extraction tool %q", tool)
	}

	out, err := b.runner.Run(ctx, tool, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", tool, domain.ErrToolUnavailable)
		}
		logger.Debug("%s output: %s", tool, out)
		return nil, fmt.Errorf("%s failed on %s: %w", tool, archivePath, domain.ErrBadArchive)
	}

	return collectMembers(scratch, targetDir, maxBytes, maxMembers)
}

// collectMembers walks the scratch tree and moves every regular file
// into targetDir under a sanitised flat name, enforcing the member and
// size caps as it goes. External tools cannot be size-checked before
// decompression, so the caps are applied while collecting.
func collectMembers(scratch, targetDir string, maxBytes int64, maxMembers int) ([]driven.ExtractedFile, error) {
	var extracted []driven.ExtractedFile
	taken := make(map[string]bool)
	var total int64

	err := filepath.WalkDir(scratch, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking extraction output: %w", domain.ErrBadArchive)
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("reading member info: %w", domain.ErrBadArchive)
		}
		if len(extracted) >= maxMembers {
			return fmt.Errorf("more than %d members: %w", maxMembers, domain.ErrTooManyMembers)
		}
		if info.Size() > maxBytes {
			logger.Warn("skipping oversize member %s (%d bytes)", d.Name(), info.Size())
			return nil
		}
		total += info.Size()
		if total > maxBytes {
			return fmt.Errorf("%d extracted bytes: %w", total, domain.ErrArchiveTooLarge)
		}

		rel, err := filepath.Rel(scratch, p)
		if err != nil {
			rel = d.Name()
		}
		stored := uniqueName(sanitizeName(rel), taken)
		dest := filepath.Join(targetDir, stored)
		if err := os.Rename(p, dest); err != nil {
			return fmt.Errorf("moving member %s: %w", rel, err)
		}

		extracted = append(extracted, driven.ExtractedFile{
			OriginalName: filepath.ToSlash(rel),
			StoredName:   stored,
			Path:         dest,
			Size:         info.Size(),
		})
		return nil
	})
	if err != nil {
		for _, f := range extracted {
			os.Remove(f.Path)
		}
		return nil, err
	}
	return extracted, nil
}
