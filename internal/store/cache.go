package store

import (
	"context"
	"time"

	"shop-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// RecordCache is a byte cache with expiry, implemented by the Redis client
type RecordCache interface {
	GetCached(ctx context.Context, key string) ([]byte, bool, error)
	SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error
	InvalidateCached(ctx context.Context, key string) error
}

// CachedBackend reads through a cache in front of a primary backend
// (cache-aside). Writes go to the primary first, then invalidate the cache.
type CachedBackend struct {
	primary Backend
	cache   RecordCache
	ttl     time.Duration
	sfGroup singleflight.Group
	logger  *zap.Logger
}

// NewCachedBackend creates a cache-aside backend
func NewCachedBackend(primary Backend, cache RecordCache, ttl time.Duration) *CachedBackend {
	return &CachedBackend{
		primary: primary,
		cache:   cache,
		ttl:     ttl,
		logger:  util.GetLogger(),
	}
}

// GetRecord checks the cache first and loads misses from the primary.
// Concurrent misses for one key share a single primary read.
func (b *CachedBackend) GetRecord(ctx context.Context, key string) ([]byte, error) {
	cached, found, err := b.cache.GetCached(ctx, key)
	if err != nil {
		b.logger.Warn("Record cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		util.RecordCacheRequests.WithLabelValues("hit").Inc()
		return cached, nil
	}
	util.RecordCacheRequests.WithLabelValues("miss").Inc()

	val, err, _ := b.sfGroup.Do(key, func() (interface{}, error) {
		return b.primary.GetRecord(ctx, key)
	})
	if err != nil {
		return nil, err
	}

	value, _ := val.([]byte)
	if value == nil {
		return nil, nil
	}

	if err := b.cache.SetCached(ctx, key, value, b.ttl); err != nil {
		b.logger.Warn("Failed to cache record", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

func (b *CachedBackend) PutRecord(ctx context.Context, key string, value []byte) error {
	if err := b.primary.PutRecord(ctx, key, value); err != nil {
		return err
	}
	b.invalidate(ctx, key)
	return nil
}

func (b *CachedBackend) DeleteRecord(ctx context.Context, key string) error {
	if err := b.primary.DeleteRecord(ctx, key); err != nil {
		return err
	}
	b.invalidate(ctx, key)
	return nil
}

// ListKeys always asks the primary
func (b *CachedBackend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	return b.primary.ListKeys(ctx, prefix)
}

func (b *CachedBackend) invalidate(ctx context.Context, key string) {
	if err := b.cache.InvalidateCached(ctx, key); err != nil {
		b.logger.Warn("Failed to invalidate cached record", zap.String("key", key), zap.Error(err))
	}
}
