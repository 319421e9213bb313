package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

func testConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()
	cfg.RetryAttempts = 3
	cfg.RetryBackoff = time.Millisecond
	cfg.HTTPTimeout = 2 * time.Second
	return cfg
}

func TestFetchDownloadsBody(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("%PDF-1.4 attachment body"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "a.pdf")
	n, err := New(testConfig()).Fetch(context.Background(), server.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(24), n)
	assert.Contains(t, gotUA, "Mozilla/5.0")

	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 attachment body", string(body))
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("eventually fine"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "a.pdf")
	n, err := New(testConfig()).Fetch(context.Background(), server.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "a.pdf")
	_, err := New(testConfig()).Fetch(context.Background(), server.URL, dest)
	assert.ErrorIs(t, err, domain.ErrHTTPStatus)
	assert.Equal(t, int32(1), calls.Load())
	assert.NoFileExists(t, dest)
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "a.pdf")
	_, err := New(testConfig()).Fetch(context.Background(), server.URL, dest)
	assert.ErrorIs(t, err, domain.ErrHTTPStatus)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchNetworkError(t *testing.T) {
	// A server that is already closed refuses connections.
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	dest := filepath.Join(t.TempDir(), "a.pdf")
	_, err := New(testConfig()).Fetch(context.Background(), url, dest)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestFetchHonoursContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	dest := filepath.Join(t.TempDir(), "a.pdf")
	_, err := New(testConfig()).Fetch(ctx, server.URL, dest)
	assert.Error(t, err)
}
