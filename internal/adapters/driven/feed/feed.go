// Package feed reads notice records from an upstream HTTP collection.
//
// The upstream exposes a paged JSON listing filtered by publish date.
// The client walks the pages inside the requested window and streams
// records over a channel, which keeps replication memory flat no matter
// how large the window is.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
	"github.com/custodia-labs/noticeflow/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.NoticeFeed = (*Client)(nil)

// cursorField is the upstream field replication windows are computed over.
const cursorField = "publish_date"

// noticePayload is one notice in the upstream listing.
type noticePayload struct {
	NoticeNumber string    `json:"notice_number"`
	PublishDate  time.Time `json:"publish_date"`
	Attachments  []struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	} `json:"attachments"`
}

// listingPage is one page of the upstream listing.
type listingPage struct {
	Notices []noticePayload `json:"notices"`
	Total   int             `json:"total"`
}

// Client is the HTTP implementation of driven.NoticeFeed.
type Client struct {
	baseURL    string
	collection string
	client     *http.Client
	limiter    *rate.Limiter
	pageSize   int
}

// New creates a feed client for one upstream collection. baseURL is the
// listing endpoint root, collection tags the records it produces.
func New(baseURL, collection string, cfg domain.PipelineConfig) *Client {
	return &Client{
		baseURL:    baseURL,
		collection: collection,
		client:     &http.Client{Timeout: cfg.HTTPTimeout},
		limiter:    rate.NewLimiter(rate.Limit(2), 2),
		pageSize:   cfg.FeedBatchSize,
	}
}

// Collection names the upstream collection this feed reads.
func (c *Client) Collection() string { return c.collection }

// CursorField names the record field windows are computed over.
func (c *Client) CursorField() string { return cursorField }

// Fetch streams records with PublishDate in [window.Start, window.End).
// Both channels close when the window is exhausted; a fetch failure is
// sent on the error channel before closing.
func (c *Client) Fetch(ctx context.Context, window domain.SyncWindow) (<-chan domain.SourceRecord, <-chan error) {
	recordsCh := make(chan domain.SourceRecord)
	errsCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errsCh)

		offset := 0
		for {
			page, err := c.fetchPage(ctx, window, offset)
			if err != nil {
				errsCh <- err
				return
			}
			if len(page.Notices) == 0 {
				return
			}

			for _, notice := range page.Notices {
				record := toRecord(notice, c.collection)
				select {
				case <-ctx.Done():
					return
				case recordsCh <- record:
				}
			}

			offset += len(page.Notices)
			if page.Total > 0 && offset >= page.Total {
				return
			}
		}
	}()
	return recordsCh, errsCh
}

// fetchPage reads one page of the listing.
func (c *Client) fetchPage(ctx context.Context, window domain.SyncWindow, offset int) (*listingPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("from", window.Start.UTC().Format(time.RFC3339))
	query.Set("to", window.End.UTC().Format(time.RFC3339))
	query.Set("offset", fmt.Sprintf("%d", offset))
	query.Set("limit", fmt.Sprintf("%d", c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building listing request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned %d: %w", resp.StatusCode, domain.ErrHTTPStatus)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrNetwork)
	}

	var page listingPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decoding listing page: %w", err)
	}
	logger.Debug("feed %s offset=%d notices=%d", c.collection, offset, len(page.Notices))
	return &page, nil
}

func toRecord(notice noticePayload, collection string) domain.SourceRecord {
	record := domain.SourceRecord{
		NoticeNumber: notice.NoticeNumber,
		SourceTag:    collection,
		Status:       domain.RecordPending,
		PublishDate:  notice.PublishDate,
	}
	for _, att := range notice.Attachments {
		record.Attachments = append(record.Attachments, domain.AttachmentRef{
			URL:      att.URL,
			Filename: att.Filename,
		})
	}
	return record
}
