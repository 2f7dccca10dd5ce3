package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) GetCached(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) SetCached(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) InvalidateCached(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

type countingBackend struct {
	*MemoryBackend
	reads int32
	delay time.Duration
}

func (b *countingBackend) GetRecord(ctx context.Context, key string) ([]byte, error) {
	atomic.AddInt32(&b.reads, 1)
	time.Sleep(b.delay)
	return b.MemoryBackend.GetRecord(ctx, key)
}

func TestCachedBackendReadThrough(t *testing.T) {
	ctx := context.Background()
	primary := &countingBackend{MemoryBackend: NewMemoryBackend()}
	cache := newMapCache()
	b := NewCachedBackend(primary, cache, time.Minute)

	require.NoError(t, b.PutRecord(ctx, "catalog", []byte(`[1]`)))

	for i := 0; i < 3; i++ {
		v, err := b.GetRecord(ctx, "catalog")
		require.NoError(t, err)
		assert.Equal(t, `[1]`, string(v))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&primary.reads))
}

func TestCachedBackendInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	primary := &countingBackend{MemoryBackend: NewMemoryBackend()}
	b := NewCachedBackend(primary, newMapCache(), time.Minute)

	require.NoError(t, b.PutRecord(ctx, "k", []byte(`1`)))
	_, err := b.GetRecord(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, b.PutRecord(ctx, "k", []byte(`2`)))
	v, err := b.GetRecord(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `2`, string(v))

	keys, err := b.ListKeys(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	require.NoError(t, b.DeleteRecord(ctx, "k"))
	v, err = b.GetRecord(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCachedBackendCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	primary := &countingBackend{MemoryBackend: NewMemoryBackend(), delay: 50 * time.Millisecond}
	require.NoError(t, primary.PutRecord(ctx, "catalog", []byte(`[1]`)))
	b := NewCachedBackend(primary, newMapCache(), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := b.GetRecord(ctx, "catalog")
			assert.NoError(t, err)
			assert.Equal(t, `[1]`, string(v))
		}()
	}
	wg.Wait()

	assert.Less(t, atomic.LoadInt32(&primary.reads), int32(10))
}
