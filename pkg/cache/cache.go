package cache

import (
	"context"
	"time"

	"github.com/rahulmehra/shopkart-backend/pkg/redis"
)

// Cache is the read-through cache surface with tag invalidation. Every write
// path that changes catalog, coupon or price data must call Invalidate on the
// relevant tags before returning.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration, tags ...string) error
	Invalidate(ctx context.Context, tags ...string) error
}

// Well-known tags shared by write paths and read paths.
const (
	TagCatalog = "catalog"
	TagPricing = "pricing"
	TagCoupons = "coupons"
)

type redisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedis builds a redis-backed tag cache.
func NewRedis(client *redis.Client, defaultTTL time.Duration) Cache {
	return &redisCache{client: client, defaultTTL: defaultTTL}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, c.client.CacheKey(key))
	if err != nil {
		if redis.IsNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration, tags ...string) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	fullKey := c.client.CacheKey(key)
	if err := c.client.Set(ctx, fullKey, value, ttl); err != nil {
		return err
	}
	for _, tag := range tags {
		if err := c.client.SAdd(ctx, c.client.TagKey(tag), fullKey); err != nil {
			return err
		}
	}
	return nil
}

func (c *redisCache) Invalidate(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		tagKey := c.client.TagKey(tag)
		members, err := c.client.SMembers(ctx, tagKey)
		if err != nil {
			return err
		}
		if len(members) > 0 {
			if err := c.client.Del(ctx, members...); err != nil {
				return err
			}
		}
		if err := c.client.Del(ctx, tagKey); err != nil {
			return err
		}
	}
	return nil
}

type noop struct{}

// NewNoop returns a cache that stores nothing; used when caching is disabled
// and in tests that don't care about cache behavior.
func NewNoop() Cache {
	return noop{}
}

func (noop) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (noop) Set(ctx context.Context, key, value string, ttl time.Duration, tags ...string) error {
	return nil
}

func (noop) Invalidate(ctx context.Context, tags ...string) error {
	return nil
}
