package migration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/richyrich98/dotanddot/internal/storage"
)

const cacheKeyPrefix = "devicecache"

// RedisCache reads the device cache mirrored into redis: one key per cached
// path with the path id embedded in the key, plus a single aggregate key
// holding the cached reports.
type RedisCache struct {
	redis storage.RedisClient
}

func NewRedisCache(redisClient storage.RedisClient) *RedisCache {
	return &RedisCache{redis: redisClient}
}

func (c *RedisCache) PathKeys(ctx context.Context, deviceID string) ([]string, error) {
	pattern := fmt.Sprintf("%s:%s:path:*", cacheKeyPrefix, deviceID)
	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	return keys, iter.Err()
}

func (c *RedisCache) CachedPath(ctx context.Context, key string) (*CachedPath, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("cached path vanished: %s", key)
		}
		return nil, fmt.Errorf("failed to read cached path: %w", err)
	}

	var cached CachedPath
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached path: %w", err)
	}

	return &cached, nil
}

func (c *RedisCache) CachedReports(ctx context.Context, deviceID string) ([]CachedReport, error) {
	key := fmt.Sprintf("%s:%s:reports", cacheKeyPrefix, deviceID)

	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached reports: %w", err)
	}

	var cached []CachedReport
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached reports: %w", err)
	}

	return cached, nil
}
