package domain

import (
	"fmt"
	"time"
)

// Route selects the downstream processing strategy for a Unit.
// It is a total function of the unit's classified files: the same file
// set always derives the same route.
type Route string

const (
	RouteImageOCR   Route = "image_ocr"
	RoutePDFScan    Route = "pdf_scan"
	RoutePDFText    Route = "pdf_text"
	RouteDocx       Route = "docx"
	RouteHTMLText   Route = "html_text"
	RouteDocConvert Route = "doc_convert"
	RouteMixed      Route = "mixed"
	RouteUnknown    Route = "unknown"
)

// UnitStatus is the lifecycle state of a Unit.
type UnitStatus string

const (
	// UnitReady means the unit and its manifest are complete and handed
	// to the extraction engine.
	UnitReady UnitStatus = "ready"

	// UnitQuarantined means assembly failed fatally and the unit's
	// inputs were copied to the quarantine area.
	UnitQuarantined UnitStatus = "quarantined"
)

// UnitFile describes one sanitised file inside a Unit.
type UnitFile struct {
	// ID is the unique identifier for the file.
	ID string

	// OriginalName is the name the file arrived with.
	OriginalName string

	// StoredName is the sanitised name used inside the unit directory.
	StoredName string

	// DetectedType is the classifier verdict for the file.
	DetectedType DetectedType

	// MIME is the sniffed MIME type.
	MIME string

	// NeedsOCR marks files without a usable text layer.
	NeedsOCR bool

	// RequiresConversion marks legacy formats awaiting the external converter.
	RequiresConversion bool

	// SHA256 is the hex digest of the file content.
	SHA256 string

	// Size is the content length in bytes.
	Size int64

	// ConvertedFrom references the UnitFile ID this file was converted
	// from, when the external converter produced it.
	ConvertedFrom string

	// IsDuplicate is true when another file in the same unit has
	// identical content. The first file of a digest group is the original.
	IsDuplicate bool

	// OriginalFileID references the original of a duplicate group.
	OriginalFileID string
}

// Unit is the minimal schedulable bundle handed to the extraction engine:
// one or more sanitised files plus a manifest. Identity is a function of
// content, so re-ingesting identical bytes yields the same unit.
type Unit struct {
	// ID is derived from the primary content's SHA-256.
	ID string

	// Route is the derived processing strategy.
	Route Route

	// Files are the unit's members, in archive order for extracted units.
	Files []UnitFile

	// Status is ready or quarantined.
	Status UnitStatus

	// SourceKey links back to the SourceRecord the content came from,
	// when known. Uploaded files have no source key.
	SourceKey string

	// CreatedAt is when the unit was assembled.
	CreatedAt time.Time

	// UpdatedAt is when the unit last changed.
	UpdatedAt time.Time
}

// unitIDDigestLen is the number of leading hex digest characters used in
// unit identifiers.
const unitIDDigestLen = 16

// UnitIDFor derives the deterministic unit identifier from the primary
// content's SHA-256 hex digest. Identical bytes always map to the same
// identifier, which is what makes crash-retry ingestion idempotent.
func UnitIDFor(primarySHA256 string) string {
	if len(primarySHA256) < unitIDDigestLen {
		return "unit-" + primarySHA256
	}
	return "unit-" + primarySHA256[:unitIDDigestLen]
}

// DeriveRoute maps a classified file set to its processing route.
// The mapping is total: every input has exactly one route.
func DeriveRoute(files []UnitFile) Route {
	if len(files) == 0 {
		return RouteUnknown
	}
	if len(files) > 1 {
		return RouteMixed
	}

	f := files[0]
	switch f.DetectedType {
	case TypeImage:
		return RouteImageOCR
	case TypePDF:
		if f.NeedsOCR {
			return RoutePDFScan
		}
		return RoutePDFText
	case TypeDocx:
		return RouteDocx
	case TypeHTML:
		return RouteHTMLText
	case TypeDoc:
		return RouteDocConvert
	default:
		return RouteUnknown
	}
}

// PrimaryFile returns the file whose content determines the unit's
// identity: the first non-duplicate member.
func (u *Unit) PrimaryFile() (*UnitFile, error) {
	for i := range u.Files {
		if !u.Files[i].IsDuplicate {
			return &u.Files[i], nil
		}
	}
	return nil, fmt.Errorf("unit %s: %w", u.ID, ErrEmptyUnit)
}
