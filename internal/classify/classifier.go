// Package classify detects what a file really is from its bytes.
//
// Filenames lie: procurement sources publish ZIP archives and HTML error
// pages under .doc extensions. The classifier reads a short byte prefix
// plus a MIME sniff and branches on signatures, so routing decisions are
// made on content, never on extension alone.
package classify

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
	"github.com/custodia-labs/noticeflow/internal/logger"
)

// Ensure Classifier implements the port.
var _ driven.Classifier = (*Classifier)(nil)

// headerLen is how many leading bytes signature checks read.
const headerLen = 16

// Byte signatures for the formats the pipeline cares about.
var (
	sigRar  = []byte("Rar!\x1a\x07")
	sigZip  = []byte("PK\x03\x04")
	sigZip2 = []byte("PK\x05\x06")
	sigPDF  = []byte("%PDF")
	sigOLE2 = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
	sig7z   = []byte("7z\xbc\xaf\x27\x1c")
)

// OOXML word-processing MIME, the marker that a PK-signed file is a docx
// package rather than a generic zip.
const mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// signatureExts are digital-signature sidecars the pipeline skips.
var signatureExts = map[string]bool{
	".sig": true, ".p7s": true, ".pem": true, ".cer": true, ".crt": true,
}

// unsupportedExts are formats the pipeline deliberately ignores.
var unsupportedExts = map[string]bool{
	".exe": true, ".dll": true, ".db": true, ".tmp": true,
	".log": true, ".ini": true, ".sys": true, ".bat": true, ".sh": true,
}

// Classifier implements byte-signature file detection. The pdfProbe is
// used to sample a PDF's text layer; when nil every PDF is treated as a
// scan, the fail-safe direction.
type Classifier struct {
	pdfProbe *pdfProbe
}

// New creates a classifier. runner executes the external pdftotext probe;
// pass nil to classify PDFs without text sampling.
func New(runner driven.CommandRunner) *Classifier {
	c := &Classifier{}
	if runner != nil {
		c.pdfProbe = &pdfProbe{runner: runner}
	}
	return c
}

// Classify inspects the file at path. It never returns an error:
// anything it cannot make sense of degrades to TypeUnknown.
func (c *Classifier) Classify(ctx context.Context, path string) domain.Classification {
	result := domain.Classification{
		DetectedType: domain.TypeUnknown,
		MIME:         "application/octet-stream",
		Processable:  true,
	}
	ext := strings.ToLower(filepath.Ext(path))

	if signatureExts[ext] {
		result.DetectedType = domain.TypeSignature
		result.ExtensionMatches = true
		result.Processable = false
		return result
	}
	if unsupportedExts[ext] {
		result.DetectedType = domain.TypeUnsupport
		result.ExtensionMatches = true
		result.Processable = false
		return result
	}

	header, err := readHeader(path)
	if err != nil {
		logger.Warn("classify %s: %v", path, err)
		return result
	}

	if mtype, err := mimetype.DetectFile(path); err == nil {
		result.MIME = mtype.String()
	}

	c.detect(ctx, path, header, ext, &result)
	result.ExtensionMatches = extensionMatches(ext, &result)
	return result
}

// detect fills DetectedType and the derived flags from the byte prefix
// and the sniffed MIME.
func (c *Classifier) detect(ctx context.Context, path string, header []byte, ext string, result *domain.Classification) {
	switch {
	case bytes.HasPrefix(header, sigRar):
		result.IsArchive = true
		result.DetectedType = domain.TypeRarArchive

	case bytes.HasPrefix(header, sigZip) || bytes.HasPrefix(header, sigZip2):
		if strings.HasPrefix(result.MIME, mimeDocx) || ext == ".docx" {
			result.DetectedType = domain.TypeDocx
		} else {
			result.IsArchive = true
			result.DetectedType = domain.TypeZipArchive
		}

	case bytes.HasPrefix(header, sig7z):
		result.IsArchive = true
		result.DetectedType = domain.Type7zArchive

	case bytes.HasPrefix(header, sigPDF):
		result.DetectedType = domain.TypePDF
		result.NeedsOCR = c.pdfNeedsOCR(ctx, path)

	case bytes.HasPrefix(header, sigOLE2):
		// Real legacy doc: the external converter has to rewrite it
		// before anything downstream can read it.
		result.DetectedType = domain.TypeDoc
		result.RequiresConversion = true

	case strings.HasPrefix(result.MIME, "image/"):
		result.DetectedType = domain.TypeImage
		result.NeedsOCR = true

	case isHTML(header, result.MIME):
		result.DetectedType = domain.TypeHTML
	}

	// Archive or HTML bytes under a .doc extension: extract, never convert.
	if ext == ".doc" && (result.IsArchive || result.DetectedType == domain.TypeHTML) {
		result.IsFakeDoc = true
	}
}

// pdfNeedsOCR samples the PDF's first pages. Errors and a missing probe
// both classify as scan: wrongly OCR-ing a text PDF costs compute, while
// wrongly skipping OCR loses the document.
func (c *Classifier) pdfNeedsOCR(ctx context.Context, path string) bool {
	if c.pdfProbe == nil {
		return true
	}
	hasText, err := c.pdfProbe.hasTextLayer(ctx, path)
	if err != nil {
		logger.Debug("pdf text probe %s: %v", path, err)
		return true
	}
	return !hasText
}

// isHTML recognises HTML by MIME or by a leading tag.
func isHTML(header []byte, mime string) bool {
	if strings.HasPrefix(mime, "text/html") {
		return true
	}
	trimmed := bytes.TrimLeft(header, " \t\r\n")
	lower := bytes.ToLower(trimmed)
	return bytes.HasPrefix(lower, []byte("<!doctype")) || bytes.HasPrefix(lower, []byte("<html"))
}

// extToType maps filename extensions to the type their content should have.
var extToType = map[string]domain.DetectedType{
	".pdf":  domain.TypePDF,
	".doc":  domain.TypeDoc,
	".docx": domain.TypeDocx,
	".zip":  domain.TypeZipArchive,
	".rar":  domain.TypeRarArchive,
	".7z":   domain.Type7zArchive,
	".html": domain.TypeHTML,
	".htm":  domain.TypeHTML,
	".jpg":  domain.TypeImage,
	".jpeg": domain.TypeImage,
	".png":  domain.TypeImage,
	".gif":  domain.TypeImage,
	".bmp":  domain.TypeImage,
	".tiff": domain.TypeImage,
}

func extensionMatches(ext string, result *domain.Classification) bool {
	expected, ok := extToType[ext]
	if !ok {
		return false
	}
	return expected == result.DetectedType
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, headerLen)
	n, err := f.Read(header)
	if n == 0 && err != nil {
		return nil, err
	}
	return header[:n], nil
}
