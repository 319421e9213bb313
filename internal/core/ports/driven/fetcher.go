package driven

import (
	"context"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

// AttachmentFetcher downloads one attachment to a local file.
type AttachmentFetcher interface {
	// Fetch downloads url into destPath and returns the byte count.
	// Transient failures are retried internally with bounded backoff;
	// the returned error is one of the domain download sentinels once
	// retries are exhausted.
	Fetch(ctx context.Context, url, destPath string) (int64, error)
}

// NoticeFeed is the upstream record source replication pulls from.
// Implementations stream records whose cursor field falls inside the
// window, closing both channels when the window is exhausted.
type NoticeFeed interface {
	// Collection names the upstream collection this feed reads.
	Collection() string

	// CursorField names the record field windows are computed over.
	CursorField() string

	// Fetch streams records with PublishDate in [window.Start, window.End).
	Fetch(ctx context.Context, window domain.SyncWindow) (<-chan domain.SourceRecord, <-chan error)
}
