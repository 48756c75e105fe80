package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/gopayouts/internal/domain"
)

const defaultCacheNamespace = "payouts:lookup"

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithNamespace scopes every key under ns.
func WithNamespace(ns string) CacheOption {
	return func(c *Cache) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// Cache is the byte-oriented key/value store backing account lookups.
type Cache struct {
	client    *redis.Client
	namespace string
}

func NewCache(client *redis.Client, opts ...CacheOption) *Cache {
	c := &Cache{client: client, namespace: defaultCacheNamespace}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(k string) string {
	return c.namespace + ":" + k
}

// Get returns domain.ErrCacheMiss when the key is absent or expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, domain.ErrCacheMiss
	case err != nil:
		return nil, err
	}
	return val, nil
}

// Set stores value for ttl. A non-positive ttl disables caching and is a no-op.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}
