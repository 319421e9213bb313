// Package fetch downloads notice attachments over HTTP.
//
// Procurement portals are hostile to unknown clients and flaky under
// load, so the fetcher sends browser-like headers, rate-limits
// requests and retries transient failures with doubling backoff.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
	"github.com/custodia-labs/noticeflow/internal/core/services"
	"github.com/custodia-labs/noticeflow/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.AttachmentFetcher = (*Fetcher)(nil)

// Headers some portals require before serving attachments.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9,ru;q=0.8",
	"Connection":      "keep-alive",
}

// requestsPerSecond is the default portal-wide request rate.
const requestsPerSecond = 5

// Fetcher is the HTTP implementation of driven.AttachmentFetcher.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter

	attempts int
	backoff  time.Duration
}

// New creates a fetcher bounded by the pipeline config: HTTPTimeout per
// request, RetryAttempts and RetryBackoff for transient failures.
func New(cfg domain.PipelineConfig) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		attempts: cfg.RetryAttempts,
		backoff:  cfg.RetryBackoff,
	}
}

// Fetch downloads url into destPath and returns the byte count.
// Transient failures (network errors, timeouts, 5xx, 429) are retried
// up to the configured attempt count; 4xx responses fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) (int64, error) {
	var n int64
	err := services.Retry(ctx, f.attempts, f.backoff, retryable, func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		if n, err = f.fetchOnce(ctx, url, destPath); err != nil {
			logger.Debug("fetch %s: %v", url, err)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, domain.ErrInvalidInput)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &statusError{url: url, status: resp.StatusCode}
	}

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", destPath, err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		os.Remove(destPath)
		return 0, classifyTransportError(err)
	}
	return n, nil
}

// statusError is a non-success HTTP response. It unwraps to
// domain.ErrHTTPStatus and keeps the status for retry decisions.
type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned %d: %v", e.url, e.status, domain.ErrHTTPStatus)
}

func (e *statusError) Unwrap() error { return domain.ErrHTTPStatus }

// classifyTransportError maps transport failures to domain sentinels.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return fmt.Errorf("%v: %w", err, domain.ErrDownloadTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%v: %w", err, domain.ErrNetwork)
}

// retryable reports whether another attempt can help. Server-side
// hiccups and transport failures are transient; client errors are not.
func retryable(err error) bool {
	if errors.Is(err, domain.ErrNetwork) || errors.Is(err, domain.ErrDownloadTimeout) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 500 || se.status == http.StatusTooManyRequests
	}
	return false
}
