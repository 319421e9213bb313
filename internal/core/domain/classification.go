package domain

// DetectedType is the classifier's verdict for a file's real format,
// derived from byte signatures rather than the filename.
type DetectedType string

const (
	TypeUnknown    DetectedType = "unknown"
	TypePDF        DetectedType = "pdf"
	TypeDoc        DetectedType = "doc"
	TypeDocx       DetectedType = "docx"
	TypeHTML       DetectedType = "html"
	TypeImage      DetectedType = "image"
	TypeZipArchive DetectedType = "zip_archive"
	TypeRarArchive DetectedType = "rar_archive"
	Type7zArchive  DetectedType = "7z_archive"
	TypeSignature  DetectedType = "signature"
	TypeUnsupport  DetectedType = "unsupported"
)

// Classification is the outcome of byte-signature file detection.
// A Classification never carries an error: detection failures degrade
// to TypeUnknown so classification can never halt the pipeline.
type Classification struct {
	// DetectedType is the real format determined from content.
	DetectedType DetectedType

	// MIME is the sniffed MIME type.
	MIME string

	// IsArchive is true for zip/rar/7z content.
	IsArchive bool

	// IsFakeDoc is true when archive or HTML content hides under a .doc
	// extension. Such files are extracted, never converted.
	IsFakeDoc bool

	// NeedsOCR is true for images and for PDFs without a usable text layer.
	NeedsOCR bool

	// RequiresConversion is true for legacy formats (OLE2 .doc) that an
	// external converter must rewrite before extraction can read them.
	RequiresConversion bool

	// ExtensionMatches is true when the filename extension agrees with
	// the detected content type.
	ExtensionMatches bool

	// Processable is false for digital signatures and formats the
	// pipeline deliberately ignores (.sig, .exe, ...).
	Processable bool
}
