package classify

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
)

// pdfProbe samples a PDF's leading pages through pdftotext to decide
// whether a usable text layer exists or the file is a page scan.
type pdfProbe struct {
	runner driven.CommandRunner
}

// Text probe sampling bounds. Scanned PDFs sometimes carry a few stray
// glyphs of OCR noise per page, so a handful of characters does not
// count as a text layer.
const (
	probeFirstPage   = 1
	probeLastPage    = 3
	probeMinTextRune = 10
)

// hasTextLayer returns true when any sampled page yields more than
// probeMinTextRune non-whitespace characters.
func (p *pdfProbe) hasTextLayer(ctx context.Context, path string) (bool, error) {
	out, err := p.runner.Run(ctx, "pdftotext",
		"-f", fmt.Sprintf("%d", probeFirstPage),
		"-l", fmt.Sprintf("%d", probeLastPage),
		path, "-")
	if err != nil {
		return false, fmt.Errorf("running pdftotext: %w", err)
	}

	// pdftotext separates pages with form feeds.
	for _, page := range strings.Split(string(out), "\f") {
		if countNonWhitespace(page) > probeMinTextRune {
			return true, nil
		}
	}
	return false, nil
}

func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
