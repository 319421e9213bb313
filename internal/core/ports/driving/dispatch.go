package driving

import "context"

// Dispatcher claims pending records and downloads their attachments.
type Dispatcher interface {
	// Dispatch claims up to limit pending records, downloads their
	// attachments and routes each downloaded file. It always returns a
	// summary, even when every record failed.
	Dispatch(ctx context.Context, limit int) (*BatchSummary, error)
}
