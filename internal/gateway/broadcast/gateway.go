package broadcast

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"chat_fanout_server/internal/metrics"
	"chat_fanout_server/pkg/constants"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// Gateway 非阻塞的分片推送队列
// 调用方在写库返回后入队；同一分组/用户落在同一分片，由单个 worker 顺序投递给 broker
type Gateway struct {
	broker  Broker
	node    *snowflake.Node
	shards  []chan Frame
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

var _ Publisher = (*Gateway)(nil)

// NewGateway workers 为分片数，queueSize 为每个分片的缓冲
func NewGateway(broker Broker, node *snowflake.Node, workers, queueSize int) *Gateway {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	g := &Gateway{
		broker:  broker,
		node:    node,
		shards:  make([]chan Frame, workers),
		timeout: constants.PUBLISH_TIMEOUT,
	}
	for i := range g.shards {
		g.shards[i] = make(chan Frame, queueSize)
	}
	return g
}

// Start 启动分片 worker，重复调用无效
func (g *Gateway) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started || g.closed {
		return
	}
	g.started = true
	for i, ch := range g.shards {
		g.wg.Add(1)
		go g.worker(i, ch)
	}
	zap.L().Info("broadcast gateway started", zap.Int("workers", len(g.shards)))
}

// Close 停止接收新推送，等待已入队的推送投递完
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	for _, ch := range g.shards {
		close(ch)
	}
	started := g.started
	g.mu.Unlock()

	if started {
		g.wg.Wait()
	}
	zap.L().Info("broadcast gateway stopped")
}

// PublishToGroup 推送给分组内所有在线连接
func (g *Gateway) PublishToGroup(group, event string, payload any) {
	g.Dispatch(ToGroup(group, event, payload))
}

// PublishToUser 推送给该用户的所有在线连接
func (g *Gateway) PublishToUser(userID int64, event string, payload any) {
	g.Dispatch(ToUser(userID, event, payload))
}

// Dispatch 按顺序入队，分片满时丢弃并记录，不阻塞调用方
// payload 在调用方协程中编码，返回后调用方再修改 payload 不影响已入队的帧
func (g *Gateway) Dispatch(envs ...Envelope) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, env := range envs {
		if g.closed {
			g.drop(env, "gateway closed")
			continue
		}
		if env.ID == 0 && g.node != nil {
			env.ID = g.node.Generate().Int64()
		}
		f, err := env.frame()
		if err != nil {
			metrics.FanoutFailed.WithLabelValues(env.Event).Inc()
			zap.L().Error("encode broadcast frame", zap.String("event", env.Event), zap.Error(err))
			continue
		}
		select {
		case g.shards[g.shardOf(env.shardKey())] <- f:
			metrics.FanoutEnqueued.WithLabelValues(env.Event).Inc()
		default:
			g.drop(env, "shard queue full")
		}
	}
}

func (g *Gateway) drop(env Envelope, reason string) {
	metrics.FanoutDropped.WithLabelValues(env.Event).Inc()
	zap.L().Warn("broadcast envelope dropped",
		zap.String("reason", reason),
		zap.String("event", env.Event),
		zap.String("group", env.Group),
		zap.Int64("userId", env.UserID),
	)
}

func (g *Gateway) shardOf(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(g.shards)))
}

func (g *Gateway) worker(idx int, ch <-chan Frame) {
	defer g.wg.Done()
	for f := range ch {
		g.publish(idx, f)
	}
}

func (g *Gateway) publish(idx int, f Frame) {
	defer func() {
		if r := recover(); r != nil {
			metrics.FanoutFailed.WithLabelValues(f.Event).Inc()
			zap.L().Error("broadcast worker panic",
				zap.Int("shard", idx),
				zap.String("event", f.Event),
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err := g.broker.Publish(ctx, f); err != nil {
		metrics.FanoutFailed.WithLabelValues(f.Event).Inc()
		zap.L().Error("broker publish failed",
			zap.String("event", f.Event),
			zap.String("target", describeTarget(f)),
			zap.Error(err),
		)
	}
}

func describeTarget(f Frame) string {
	if f.Group != "" {
		return f.Group
	}
	return fmt.Sprintf("user:%d", f.UserID)
}
