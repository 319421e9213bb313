package file

import (
	"time"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
)

// PipelineConfig materialises the pipeline bounds from configuration,
// falling back to the defaults for every key the file leaves unset.
//
// Recognised keys (all under the [pipeline] table):
//
//	max_archive_mb, max_archive_members, max_attachments,
//	dispatcher_concurrency, download_fanout, http_timeout_seconds,
//	cache_ttl_days, retry_attempts, retry_backoff_ms,
//	convert_wait_seconds, feed_batch_size
func PipelineConfig(store driven.ConfigStore) domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	if v := store.GetInt("pipeline.max_archive_mb"); v > 0 {
		cfg.MaxArchiveBytes = int64(v) << 20
	}
	if v := store.GetInt("pipeline.max_archive_members"); v > 0 {
		cfg.MaxArchiveMembers = v
	}
	if v := store.GetInt("pipeline.max_attachments"); v > 0 {
		cfg.MaxAttachments = v
	}
	if v := store.GetInt("pipeline.dispatcher_concurrency"); v > 0 {
		cfg.DispatcherConcurrency = v
	}
	if v := store.GetInt("pipeline.download_fanout"); v > 0 {
		cfg.DownloadFanout = v
	}
	if v := store.GetInt("pipeline.http_timeout_seconds"); v > 0 {
		cfg.HTTPTimeout = time.Duration(v) * time.Second
	}
	if v := store.GetInt("pipeline.cache_ttl_days"); v > 0 {
		cfg.CacheTTLDays = v
	}
	if v := store.GetInt("pipeline.retry_attempts"); v > 0 {
		cfg.RetryAttempts = v
	}
	if v := store.GetInt("pipeline.retry_backoff_ms"); v > 0 {
		cfg.RetryBackoff = time.Duration(v) * time.Millisecond
	}
	if v := store.GetInt("pipeline.convert_wait_seconds"); v > 0 {
		cfg.ConvertWait = time.Duration(v) * time.Second
	}
	if v := store.GetInt("pipeline.feed_batch_size"); v > 0 {
		cfg.FeedBatchSize = v
	}
	return cfg
}
