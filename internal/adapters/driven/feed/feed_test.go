package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

func collect(t *testing.T, client *Client, window domain.SyncWindow) ([]domain.SourceRecord, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	recordsCh, errsCh := client.Fetch(ctx, window)
	var records []domain.SourceRecord
	for recordsCh != nil || errsCh != nil {
		select {
		case r, ok := <-recordsCh:
			if !ok {
				recordsCh = nil
				continue
			}
			records = append(records, r)
		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			if err != nil {
				return records, err
			}
		}
	}
	return records, nil
}

func testWindow() domain.SyncWindow {
	return domain.SyncWindow{
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
}

func testConfig(pageSize int) domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()
	cfg.FeedBatchSize = pageSize
	return cfg
}

func TestFetchStreamsAllPages(t *testing.T) {
	total := 5
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		page := listingPage{Total: total}
		for i := offset; i < total && i < offset+limit; i++ {
			page.Notices = append(page.Notices, noticePayload{
				NoticeNumber: fmt.Sprintf("%03d", i),
				PublishDate:  time.Date(2026, 8, 10+i, 0, 0, 0, 0, time.UTC),
			})
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client := New(server.URL, "fed44", testConfig(2))
	records, err := collect(t, client, testWindow())
	require.NoError(t, err)

	require.Len(t, records, total)
	assert.Equal(t, "000", records[0].NoticeNumber)
	assert.Equal(t, "fed44", records[0].SourceTag)
	assert.Equal(t, domain.RecordPending, records[0].Status)
}

func TestFetchPassesWindowBounds(t *testing.T) {
	var gotFrom, gotTo string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		json.NewEncoder(w).Encode(listingPage{})
	}))
	defer server.Close()

	window := testWindow()
	_, err := collect(t, New(server.URL, "fed44", testConfig(10)), window)
	require.NoError(t, err)

	assert.Equal(t, window.Start.Format(time.RFC3339), gotFrom)
	assert.Equal(t, window.End.Format(time.RFC3339), gotTo)
}

func TestFetchMapsAttachments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			json.NewEncoder(w).Encode(listingPage{Total: 1})
			return
		}
		w.Write([]byte(`{
			"total": 1,
			"notices": [{
				"notice_number": "0373200",
				"publish_date": "2026-08-12T09:00:00Z",
				"attachments": [
					{"url": "https://portal/docs/1.zip", "filename": "docs.zip"}
				]
			}]
		}`))
	}))
	defer server.Close()

	records, err := collect(t, New(server.URL, "fed44", testConfig(10)), testWindow())
	require.NoError(t, err)

	require.Len(t, records, 1)
	require.Len(t, records[0].Attachments, 1)
	assert.Equal(t, "https://portal/docs/1.zip", records[0].Attachments[0].URL)
	assert.Equal(t, "docs.zip", records[0].Attachments[0].Filename)
}

func TestFetchReportsServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := collect(t, New(server.URL, "fed44", testConfig(10)), testWindow())
	assert.ErrorIs(t, err, domain.ErrHTTPStatus)
}

func TestCollectionAndCursorField(t *testing.T) {
	client := New("http://unused", "fed44", testConfig(10))
	assert.Equal(t, "fed44", client.Collection())
	assert.Equal(t, "publish_date", client.CursorField())
}
