package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"chat_fanout_server/pkg/errorx"
)

// RedisCache CacheService 的 Redis 实现
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache client 的生命周期由调用方管理
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get key 不存在时返回 found=false，不视为错误
func (r *RedisCache) Get(ctx context.Context, key Key) (string, bool, error) {
	value, err := r.client.Get(ctx, key.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errorx.Wrapf(err, errorx.CodeCacheError, "redis get key %s", key)
	}
	return value, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key Key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key.String(), value, ttl).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis set key %s", key)
	}
	return nil
}

// Delete 使用 UNLINK 异步回收内存
func (r *RedisCache) Delete(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = k.String()
	}
	if err := r.client.Unlink(ctx, raw...).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis unlink %d keys", len(raw))
	}
	return nil
}

var _ CacheService = (*RedisCache)(nil)
