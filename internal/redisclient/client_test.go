package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyNamespaces(t *testing.T) {
	assert.Equal(t, "record:cart:abc", recordKey("cart:abc"))
	assert.Equal(t, "cache:catalog", cacheKey("catalog"))
	assert.Equal(t, "idempotency:k1", idempotencyKey("k1"))
}

func TestRecordsAndIdempotency(t *testing.T) {
	t.Skip("Integration test - requires redis")

	c, err := NewClient("localhost:6379", "", 15)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()

	value, err := c.GetRecord(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, c.PutRecord(ctx, "newsletter", []byte(`["a@b.fr"]`)))
	value, err = c.GetRecord(ctx, "newsletter")
	require.NoError(t, err)
	assert.Equal(t, `["a@b.fr"]`, string(value))
	require.NoError(t, c.DeleteRecord(ctx, "newsletter"))

	require.NoError(t, c.PutRecord(ctx, "cart:s1", []byte(`{}`)))
	keys, err := c.ListKeys(ctx, "cart:")
	require.NoError(t, err)
	assert.Equal(t, []string{"cart:s1"}, keys)
	require.NoError(t, c.DeleteRecord(ctx, "cart:s1"))

	require.NoError(t, c.SetIdempotencyKey(ctx, "commit-1", []byte(`{}`), time.Minute))
	stored, found, err := c.GetIdempotencyKey(ctx, "commit-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{}`, string(stored))
}
