// Package redis 缓存层：CacheService 接口、Redis/内存实现、cache-aside 帮助函数和类型化键
package redis

import (
	"context"
	"time"
)

// CacheService 缓存读写接口，服务层只依赖此接口
type CacheService interface {
	// Get 键不存在时 found=false，err=nil
	Get(ctx context.Context, key Key) (value string, found bool, err error)
	Set(ctx context.Context, key Key, value string, ttl time.Duration) error
	// Delete 删除若干键，不存在的键忽略
	Delete(ctx context.Context, keys ...Key) error
}
