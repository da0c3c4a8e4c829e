package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"chat_fanout_server/internal/infrastructure/mq"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broker 帧的跨节点分发
// Publish 由 Gateway 的分片 worker 调用；Run 阻塞消费并写入本节点 Hub，ctx 取消后返回
type Broker interface {
	Publish(ctx context.Context, f Frame) error
	Run(ctx context.Context) error
	Close() error
}

// LocalBroker 单节点模式，直接写入 Hub
type LocalBroker struct {
	hub *Hub
}

// NewLocalBroker 单节点使用，不经过外部中间件
func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

// Publish 同步写入本节点 Hub
func (b *LocalBroker) Publish(_ context.Context, f Frame) error {
	b.hub.Deliver(f)
	return nil
}

// Run 没有需要消费的来源，阻塞到 ctx 取消
func (b *LocalBroker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (b *LocalBroker) Close() error { return nil }

// KafkaBroker 帧写入 topic，每个节点用独立消费组读回
type KafkaBroker struct {
	client *mq.KafkaClient
	hub    *Hub
}

// NewKafkaBroker client 需使用本节点独立的消费组
func NewKafkaBroker(client *mq.KafkaClient, hub *Hub) *KafkaBroker {
	return &KafkaBroker{client: client, hub: hub}
}

// Publish 以分组名或用户作为消息 key，同一目标落在同一分区
func (b *KafkaBroker) Publish(ctx context.Context, f Frame) error {
	value, err := json.Marshal(f)
	if err != nil {
		return err
	}
	key := f.Group
	if key == "" {
		key = "user-" + strconv.FormatInt(f.UserID, 10)
	}
	return b.client.Send(ctx, []byte(key), value)
}

// Run 读取失败时间隔一秒重试，无法解码的消息跳过
func (b *KafkaBroker) Run(ctx context.Context) error {
	zap.L().Info("kafka broker consuming")
	for {
		msg, err := b.client.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			zap.L().Error("kafka read", zap.Error(err))
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
			continue
		}
		var f Frame
		if err := json.Unmarshal(msg.Value, &f); err != nil {
			zap.L().Error("decode kafka frame",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}
		b.hub.Deliver(f)
	}
}

func (b *KafkaBroker) Close() error {
	return b.client.Close()
}

// RedisBroker redis Pub/Sub 频道中转
type RedisBroker struct {
	rdb     *redis.Client
	channel string
	hub     *Hub

	readyOnce sync.Once
	ready     chan struct{}
}

// NewRedisBroker 所有节点订阅同一频道
func NewRedisBroker(rdb *redis.Client, channel string, hub *Hub) *RedisBroker {
	return &RedisBroker{rdb: rdb, channel: channel, hub: hub, ready: make(chan struct{})}
}

// Ready 订阅确认后关闭
func (b *RedisBroker) Ready() <-chan struct{} {
	return b.ready
}

// Publish 帧以 JSON 发布到频道
func (b *RedisBroker) Publish(ctx context.Context, f Frame) error {
	value, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, value).Err()
}

// Run 订阅成功后关闭 Ready，订阅中断时返回错误
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	b.readyOnce.Do(func() { close(b.ready) })
	zap.L().Info("redis broker subscribed", zap.String("channel", b.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			var f Frame
			if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
				zap.L().Error("decode redis frame", zap.Error(err))
				continue
			}
			b.hub.Deliver(f)
		}
	}
}

// Close redis 客户端由外部持有，这里不关闭
func (b *RedisBroker) Close() error { return nil }

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
