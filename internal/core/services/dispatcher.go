package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driving"
	"github.com/custodia-labs/noticeflow/internal/logger"
	"github.com/custodia-labs/noticeflow/internal/workspace"
)

// Ensure DownloadDispatcher implements the interface.
var _ driving.Dispatcher = (*DownloadDispatcher)(nil)

// DownloadDispatcher claims pending records and downloads their
// attachments. The claim is the only cross-process coordination point:
// once a record is claimed no other dispatcher can touch it, so the
// download work itself needs no locking.
type DownloadDispatcher struct {
	records  driven.SourceRecordStore
	fetcher  driven.AttachmentFetcher
	ingestor driving.Ingestor
	layout   *workspace.Layout
	cfg      domain.PipelineConfig
}

// NewDownloadDispatcher creates a download dispatcher.
func NewDownloadDispatcher(
	records driven.SourceRecordStore,
	fetcher driven.AttachmentFetcher,
	ingestor driving.Ingestor,
	layout *workspace.Layout,
	cfg domain.PipelineConfig,
) *DownloadDispatcher {
	return &DownloadDispatcher{
		records:  records,
		fetcher:  fetcher,
		ingestor: ingestor,
		layout:   layout,
		cfg:      cfg,
	}
}

// Dispatch claims up to limit pending records and processes them with
// bounded concurrency. Per-record failures are recorded on the record
// and in the summary, never propagated as a batch error.
func (d *DownloadDispatcher) Dispatch(ctx context.Context, limit int) (*driving.BatchSummary, error) {
	claimed, err := d.records.Claim(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("claim records: %w", err)
	}
	if len(claimed) == 0 {
		return &driving.BatchSummary{}, nil
	}
	logger.Info("Claimed %d records", len(claimed))

	outcomes := make([]driving.ItemOutcome, len(claimed))
	sem := make(chan struct{}, d.cfg.DispatcherConcurrency)
	var wg sync.WaitGroup

	for i := range claimed {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = d.processRecord(ctx, claimed[i])
		}(i)
	}
	wg.Wait()

	summary := &driving.BatchSummary{
		Processed: len(claimed),
		Outcomes:  outcomes,
	}
	for _, o := range outcomes {
		if o.Error == "" {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary, nil
}

// processRecord downloads a record's attachments and routes every file
// that arrived. The record ends in processing once at least one
// attachment was downloaded and handed over, in error only when every
// download failed. Ingest failures stay on the outcome.
func (d *DownloadDispatcher) processRecord(ctx context.Context, record domain.SourceRecord) driving.ItemOutcome {
	outcome := driving.ItemOutcome{Input: record.Key()}

	attachments := record.Attachments
	if len(attachments) > d.cfg.MaxAttachments {
		logger.Warn("Record %s has %d attachments, fetching first %d",
			record.Key(), len(attachments), d.cfg.MaxAttachments)
		attachments = attachments[:d.cfg.MaxAttachments]
	}
	if len(attachments) == 0 {
		d.finishRecord(ctx, record, domain.RecordError, "record has no attachments")
		outcome.Error = "record has no attachments"
		return outcome
	}

	staging, err := d.layout.StagingDir(record.Key())
	if err != nil {
		d.finishRecord(ctx, record, domain.RecordError, err.Error())
		outcome.Error = err.Error()
		return outcome
	}

	downloaded, fetchErrs := d.fetchAll(ctx, attachments, staging)
	if len(downloaded) == 0 {
		msg := errors.Join(fetchErrs...).Error()
		d.finishRecord(ctx, record, domain.RecordError, msg)
		outcome.Error = msg
		return outcome
	}

	var ingestErrs []error
	for _, path := range downloaded {
		result, err := d.ingestor.Upload(ctx, path)
		switch {
		case err != nil:
			ingestErrs = append(ingestErrs, err)
		case result.Err != nil:
			ingestErrs = append(ingestErrs, result.Err)
		case outcome.UnitID == "" && result.UnitID != "":
			outcome.UnitID = result.UnitID
		}
	}

	if outcome.UnitID == "" && len(ingestErrs) > 0 {
		outcome.Error = errors.Join(ingestErrs...).Error()
	}
	d.finishRecord(ctx, record, domain.RecordProcessing, outcome.Error)
	return outcome
}

// fetchAll downloads attachments with bounded fanout. It returns the
// local paths that arrived and the per-attachment failures.
func (d *DownloadDispatcher) fetchAll(ctx context.Context, attachments []domain.AttachmentRef, staging string) ([]string, []error) {
	type result struct {
		path string
		err  error
	}
	results := make([]result, len(attachments))
	sem := make(chan struct{}, d.cfg.DownloadFanout)
	var wg sync.WaitGroup

	for i, att := range attachments {
		wg.Add(1)
		go func(i int, att domain.AttachmentRef) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			name := att.Filename
			if name == "" {
				name = fmt.Sprintf("attachment-%d", i)
			}
			dest := filepath.Join(staging, filepath.Base(name))
			if _, err := d.fetcher.Fetch(ctx, att.URL, dest); err != nil {
				results[i] = result{err: fmt.Errorf("fetch %s: %w", att.URL, err)}
				return
			}
			results[i] = result{path: dest}
		}(i, att)
	}
	wg.Wait()

	var paths []string
	var errs []error
	for _, r := range results {
		if r.err != nil {
			logger.Debug("Download failed: %v", r.err)
			errs = append(errs, r.err)
			continue
		}
		paths = append(paths, r.path)
	}
	return paths, errs
}

// finishRecord moves the record to its terminal batch status. Store
// failures here only log: the claim is already consumed and the work done.
func (d *DownloadDispatcher) finishRecord(ctx context.Context, record domain.SourceRecord, status domain.RecordStatus, lastErr string) {
	if err := d.records.UpdateStatus(ctx, record.SourceTag, record.NoticeNumber, status, lastErr); err != nil {
		logger.Warn("update record %s: %v", record.Key(), err)
	}
}
