package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/noticeflow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

// countingCache wraps the memory cache and counts backing reads.
type countingCache struct {
	*memory.HashCache
	gets int
}

func (c *countingCache) Get(ctx context.Context, sha string) (*domain.CacheEntry, error) {
	c.gets++
	return c.HashCache.Get(ctx, sha)
}

func TestGetReadsThroughOnce(t *testing.T) {
	backing := &countingCache{HashCache: memory.NewHashCache()}
	front, err := New(backing, 8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backing.Put(ctx, "abc", []byte("payload"), 30))

	for i := 0; i < 3; i++ {
		entry, err := front.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), entry.Payload)
	}
	assert.Equal(t, 1, backing.gets, "memory hit should skip the backing store")
}

func TestPutWritesThrough(t *testing.T) {
	backing := memory.NewHashCache()
	front, err := New(backing, 8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, front.Put(ctx, "abc", []byte("payload"), 30))

	entry, err := backing.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), entry.Payload)
}

func TestMissFallsThrough(t *testing.T) {
	front, err := New(memory.NewHashCache(), 8)
	require.NoError(t, err)

	_, err = front.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEvictionKeepsCorrectness(t *testing.T) {
	backing := memory.NewHashCache()
	front, err := New(backing, 2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, front.Put(ctx, "a", []byte("1"), 30))
	require.NoError(t, front.Put(ctx, "b", []byte("2"), 30))
	require.NoError(t, front.Put(ctx, "c", []byte("3"), 30))

	// "a" was evicted from memory but survives in the backing store.
	entry, err := front.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), entry.Payload)
}
