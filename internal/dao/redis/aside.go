package redis

import (
	"context"
	"encoding/json"
	"time"

	"chat_fanout_server/internal/metrics"

	"go.uber.org/zap"
)

// DefaultTTL 名册和实体缓存的固定过期时间
const DefaultTTL = 30 * time.Minute

// Aside 泛型 cache-aside 读路径，值以 JSON 存储。
// 缓存故障一律降级为直接读库，不向调用方返回缓存错误。
type Aside[T any] struct {
	cache CacheService
	name  string
	ttl   time.Duration
}

// NewAside name 用于指标标签，ttl<=0 时使用 DefaultTTL
func NewAside[T any](cache CacheService, name string, ttl time.Duration) *Aside[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Aside[T]{cache: cache, name: name, ttl: ttl}
}

// Get 先读缓存，未命中（或缓存异常、数据损坏）时调用 load 并回填。
// load 返回的错误原样返回且不缓存。
func (a *Aside[T]) Get(ctx context.Context, key Key, load func(ctx context.Context) (T, error)) (T, error) {
	if raw, found, err := a.cache.Get(ctx, key); err != nil {
		metrics.CacheErrors.WithLabelValues("get").Inc()
		zap.L().Warn("cache get failed, falling back to repository", zap.String("key", key.String()), zap.Error(err))
	} else if found {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			metrics.CacheHits.WithLabelValues(a.name).Inc()
			return v, nil
		}
		zap.L().Warn("cache entry corrupted", zap.String("key", key.String()))
	}

	metrics.CacheMisses.WithLabelValues(a.name).Inc()
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	a.Set(ctx, key, v)
	return v, nil
}

// Set 写入缓存，失败只记日志
func (a *Aside[T]) Set(ctx context.Context, key Key, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("cache marshal failed", zap.String("key", key.String()), zap.Error(err))
		return
	}
	if err := a.cache.Set(ctx, key, string(data), a.ttl); err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		zap.L().Warn("cache set failed", zap.String("key", key.String()), zap.Error(err))
	}
}

// Invalidate 同步删除若干键；失败只记日志，由 TTL 兜底
func Invalidate(ctx context.Context, cache CacheService, keys ...Key) {
	if len(keys) == 0 {
		return
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		zap.L().Error("cache invalidate failed", zap.Any("keys", keys), zap.Error(err))
	}
}
