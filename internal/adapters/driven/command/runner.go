// Package command runs external tools (pdftotext, unrar, 7z) through
// os/exec. It is the only place the pipeline shells out.
package command

import (
	"context"
	"os/exec"

	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
)

// Ensure Runner implements the interface.
var _ driven.CommandRunner = (*Runner)(nil)

// Runner executes external tools and returns their combined output.
type Runner struct{}

// New creates a Runner.
func New() *Runner {
	return &Runner{}
}

// Run executes the named tool. The returned error wraps exec.ErrNotFound
// when the tool is not installed, which callers map to their own sentinel.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
