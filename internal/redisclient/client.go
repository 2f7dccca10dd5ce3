package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func recordKey(key string) string {
	return fmt.Sprintf("record:%s", key)
}

func cacheKey(key string) string {
	return fmt.Sprintf("cache:%s", key)
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

// GetRecord retrieves a persisted record, nil when missing
func (c *Client) GetRecord(ctx context.Context, key string) ([]byte, error) {
	value, err := c.rdb.Get(ctx, recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", key, err)
	}
	return value, nil
}

// PutRecord stores a record without expiry
func (c *Client) PutRecord(ctx context.Context, key string, value []byte) error {
	if err := c.rdb.Set(ctx, recordKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to put record %s: %w", key, err)
	}
	return nil
}

// DeleteRecord removes a record
func (c *Client) DeleteRecord(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, recordKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// ListKeys returns the record keys starting with prefix, sorted
func (c *Client) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	iter := c.rdb.Scan(ctx, 0, recordKey(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), recordKey("")))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records %s*: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// GetCached reads a cached copy of a record
func (c *Client) GetCached(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.rdb.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// SetCached caches a record copy with TTL
func (c *Client) SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, cacheKey(key), value, ttl).Err()
}

// InvalidateCached drops a cached record copy
func (c *Client) InvalidateCached(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, cacheKey(key)).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(key), value, ttl).Err()
}

// GetIdempotencyKey returns the value stored for an idempotency key
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.rdb.Get(ctx, idempotencyKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}
