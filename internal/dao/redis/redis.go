package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"chat_fanout_server/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewClient 按配置创建 go-redis 客户端并 PING 一次
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 50
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.Db,
		PoolSize:     poolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	zap.L().Info("redis connected", zap.String("host", cfg.Host), zap.Int("port", cfg.Port), zap.Int("db", cfg.Db))
	return client, nil
}
