// Package mq 封装 kafka 连接，只负责 Writer/Reader 的构建与关闭，不含业务逻辑
package mq

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"chat_fanout_server/internal/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaClient 生产者 + 消费者
type KafkaClient struct {
	Producer *kafka.Writer
	Consumer *kafka.Reader
	cfg      config.KafkaConfig
}

// NewKafkaClient groupID 为空时使用配置中的 GroupID
// 广播场景下每个节点需要独立的消费组才能收到全量消息
func NewKafkaClient(cfg config.KafkaConfig, groupID string) *KafkaClient {
	if groupID == "" {
		groupID = cfg.GroupID
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = time.Second
	}
	return &KafkaClient{
		cfg: cfg,
		Producer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.HostPort),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{}, // 同一 key 落同一分区，保持会话内顺序
			WriteTimeout:           timeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
		Consumer: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{cfg.HostPort},
			Topic:          cfg.Topic,
			GroupID:        groupID,
			CommitInterval: timeout,
			StartOffset:    kafka.LastOffset,
		}),
	}
}

// EnsureTopic 主题不存在时创建，分区数取配置
func (k *KafkaClient) EnsureTopic(ctx context.Context) error {
	dialer := &kafka.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", k.cfg.HostPort)
	if err != nil {
		return fmt.Errorf("dial kafka %s: %w", k.cfg.HostPort, err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller: %w", err)
	}
	ctrlConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial kafka controller: %w", err)
	}
	defer ctrlConn.Close()

	partitions := k.cfg.Partition
	if partitions <= 0 {
		partitions = 1
	}
	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             k.cfg.Topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", k.cfg.Topic, err)
	}
	return nil
}

// Send key 决定分区
func (k *KafkaClient) Send(ctx context.Context, key, value []byte) error {
	return k.Producer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

// Receive 阻塞读取下一条消息，GroupID 非空时自动提交 offset
func (k *KafkaClient) Receive(ctx context.Context) (kafka.Message, error) {
	return k.Consumer.ReadMessage(ctx)
}

func (k *KafkaClient) Close() error {
	var errs []error
	if err := k.Producer.Close(); err != nil {
		zap.L().Error("close kafka producer", zap.Error(err))
		errs = append(errs, err)
	}
	if err := k.Consumer.Close(); err != nil {
		zap.L().Error("close kafka consumer", zap.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
