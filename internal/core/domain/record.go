package domain

import (
	"fmt"
	"time"
)

// RecordStatus is the lifecycle state of a SourceRecord.
type RecordStatus string

const (
	// RecordPending means the record was replicated but no attachment
	// has been downloaded yet.
	RecordPending RecordStatus = "pending"

	// RecordDownloading means a dispatcher holds an exclusive claim on
	// the record and is fetching its attachments.
	RecordDownloading RecordStatus = "downloading"

	// RecordProcessing means at least one attachment was downloaded and
	// handed to the ingestion router.
	RecordProcessing RecordStatus = "processing"

	// RecordError means every attachment of the record failed to download.
	RecordError RecordStatus = "error"
)

// AttachmentRef points at a downloadable attachment of a notice.
type AttachmentRef struct {
	// URL is the remote location of the attachment.
	URL string

	// Filename is the name the source publishes for the attachment.
	Filename string
}

// SourceRecord is one replicated procurement notice. Records are created
// by replication, mutated by the dispatcher and router, and never deleted:
// they double as the audit trail of everything the pipeline has seen.
type SourceRecord struct {
	// NoticeNumber is the notice identifier assigned by the source.
	NoticeNumber string

	// SourceTag identifies which upstream collection the record came from.
	SourceTag string

	// Attachments lists the downloadable files referenced by the notice.
	Attachments []AttachmentRef

	// Status is the current lifecycle state.
	Status RecordStatus

	// LastError holds the most recent failure, set only when Status is error.
	LastError string

	// PublishDate is the notice publication time. Replication cursors are
	// computed over this field.
	PublishDate time.Time

	// CreatedAt is when replication first inserted the record.
	CreatedAt time.Time

	// UpdatedAt is when the record last changed state.
	UpdatedAt time.Time
}

// Key returns the record's natural key. Replication deduplicates on it.
func (r *SourceRecord) Key() string {
	return fmt.Sprintf("%s/%s", r.SourceTag, r.NoticeNumber)
}
