package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driving"
)

// fakeWatcher replays a fixed list of paths and then closes its channel.
type fakeWatcher struct {
	paths  []string
	closed bool
}

func (f *fakeWatcher) Watch(_ context.Context) <-chan string {
	ch := make(chan string, len(f.paths))
	for _, p := range f.paths {
		ch <- p
	}
	close(ch)
	return ch
}

func (f *fakeWatcher) Close() error {
	f.closed = true
	return nil
}

func TestWatch_IngestsStreamedPaths(t *testing.T) {
	mock := &mockIngestor{result: &driving.IngestResult{
		UnitID: "unit-aabbccdd00112233",
		Route:  domain.RoutePDFText,
	}}
	cleanupIngest := setupIngestTest(mock)
	defer cleanupIngest()

	watcher := &fakeWatcher{paths: []string{"/work/input/a.pdf", "/work/input/b.pdf"}}
	oldFactory := watcherFactory
	watcherFactory = func() (InputWatcher, error) { return watcher, nil }
	defer func() { watcherFactory = oldFactory }()

	out, err := execute(t, "watch")

	require.NoError(t, err)
	assert.Equal(t, []string{"/work/input/a.pdf", "/work/input/b.pdf"}, mock.uploads)
	assert.Contains(t, out, "unit-aabbccdd00112233")
	assert.True(t, watcher.closed)
}

func TestWatch_NotConfigured(t *testing.T) {
	cleanupIngest := setupIngestTest(&mockIngestor{})
	defer cleanupIngest()

	oldFactory := watcherFactory
	watcherFactory = nil
	defer func() { watcherFactory = oldFactory }()

	_, err := execute(t, "watch")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "input watcher not configured")
}
