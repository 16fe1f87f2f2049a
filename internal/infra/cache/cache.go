// Package cache provides read-side caches for point lookups.
package cache

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	defaultExpiration = 10 * time.Minute
	cleanupInterval   = 15 * time.Minute
)

// LocalCache keeps entries in process memory.
type LocalCache struct {
	cache *cache.Cache
}

func NewLocalCache() *LocalCache {
	return &LocalCache{
		cache: cache.New(defaultExpiration, cleanupInterval),
	}
}

func (c *LocalCache) Get(ctx context.Context, key string) ([]byte, bool) {
	x, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	return x.([]byte), true
}

func (c *LocalCache) Set(ctx context.Context, key string, value []byte) {
	c.cache.Set(key, value, cache.DefaultExpiration)
}

func (c *LocalCache) Delete(ctx context.Context, keys ...string) {
	for _, key := range keys {
		c.cache.Delete(key)
	}
}

// MemcachedCache shares entries between nodes. Failures degrade to cache misses.
type MemcachedCache struct {
	client *memcache.Client
	prefix string
	logger *zap.Logger
}

func NewMemcachedCache(client *memcache.Client, prefix string, logger *zap.Logger) *MemcachedCache {
	return &MemcachedCache{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (c *MemcachedCache) Get(ctx context.Context, key string) ([]byte, bool) {
	item, err := c.client.Get(c.prefix + key)
	if err != nil {
		if err != memcache.ErrCacheMiss {
			c.logger.Warn("memcached get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return item.Value, true
}

func (c *MemcachedCache) Set(ctx context.Context, key string, value []byte) {
	err := c.client.Set(&memcache.Item{
		Key:        c.prefix + key,
		Value:      value,
		Expiration: int32(defaultExpiration / time.Second),
	})
	if err != nil {
		c.logger.Warn("memcached set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *MemcachedCache) Delete(ctx context.Context, keys ...string) {
	for _, key := range keys {
		err := c.client.Delete(c.prefix + key)
		if err != nil && err != memcache.ErrCacheMiss {
			c.logger.Warn("memcached delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}
