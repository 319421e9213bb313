package domain

import "time"

// PipelineConfig holds the tunable resource bounds of the pipeline.
type PipelineConfig struct {
	// MaxArchiveBytes caps the total declared uncompressed size of one
	// archive. Extraction aborts before crossing it.
	MaxArchiveBytes int64

	// MaxArchiveMembers caps how many members one archive may contain.
	MaxArchiveMembers int

	// MaxAttachments caps how many attachments of one record are fetched.
	MaxAttachments int

	// DispatcherConcurrency is how many records one dispatcher pass
	// processes in parallel.
	DispatcherConcurrency int

	// DownloadFanout bounds concurrent attachment fetches per record.
	DownloadFanout int

	// HTTPTimeout bounds each attachment read.
	HTTPTimeout time.Duration

	// CacheTTLDays is the hash-cache entry lifetime.
	CacheTTLDays int

	// RetryAttempts is the bounded retry count for transient download failures.
	RetryAttempts int

	// RetryBackoff is the initial backoff, doubled per attempt.
	RetryBackoff time.Duration

	// ConvertWait bounds how long the router waits for the external
	// converter to produce a sibling output file.
	ConvertWait time.Duration

	// FeedBatchSize is how many upstream records replication pulls per batch.
	FeedBatchSize int
}

// DefaultPipelineConfig returns the bounds used when configuration
// provides none.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxArchiveBytes:       512 << 20, // 512 MiB
		MaxArchiveMembers:     1000,
		MaxAttachments:        50,
		DispatcherConcurrency: 4,
		DownloadFanout:        5,
		HTTPTimeout:           60 * time.Second,
		CacheTTLDays:          DefaultCacheTTLDays,
		RetryAttempts:         3,
		RetryBackoff:          500 * time.Millisecond,
		ConvertWait:           30 * time.Second,
		FeedBatchSize:         200,
	}
}
