package bus

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Broker 事件代理接口
// 支持两种实现：LocalBroker（单机，进程内分发）、KafkaBroker（分布式，经 Kafka 扇出到所有实例）
type Broker interface {
	// Publish 按顺序发布一次提交产生的事件
	Publish(ctx context.Context, events []Event) error
	// Start 启动消费循环，ctx 取消时退出
	Start(ctx context.Context)
	// Close 关闭代理资源
	Close()
}

// LocalBroker 直接分发到本进程的 Hub
type LocalBroker struct {
	hub *Hub
}

// NewLocalBroker 创建单机代理
func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

// Publish 同步分发
func (b *LocalBroker) Publish(_ context.Context, events []Event) error {
	for _, ev := range events {
		b.hub.Dispatch(ev)
	}
	return nil
}

// Start 单机模式无需消费循环
func (b *LocalBroker) Start(context.Context) {}

// Close 无资源需要释放
func (b *LocalBroker) Close() {}

// KafkaTransport KafkaBroker 依赖的最小读写能力
type KafkaTransport interface {
	WriteMessage(ctx context.Context, msgs ...kafka.Message) error
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close()
}

// 读取失败后的退避区间
const (
	readBackoffMin = 100 * time.Millisecond
	readBackoffMax = 5 * time.Second
)

// KafkaBroker 事件以实体 ID 为 key 写入 Kafka
// 同一实体落在同一分区，消费端按分区顺序分发到本实例的 Hub
type KafkaBroker struct {
	hub        *Hub
	transport  KafkaTransport
	backoffMin time.Duration
	backoffMax time.Duration
}

// NewKafkaBroker 创建分布式代理
func NewKafkaBroker(hub *Hub, transport KafkaTransport) *KafkaBroker {
	return &KafkaBroker{hub: hub, transport: transport, backoffMin: readBackoffMin, backoffMax: readBackoffMax}
}

// Publish 序列化并写入 Kafka
func (b *KafkaBroker) Publish(ctx context.Context, events []Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(ev.EntityId), Value: value})
	}
	return b.transport.WriteMessage(ctx, msgs...)
}

// Start 消费循环：读取 -> 反序列化 -> 分发，阻塞到 ctx 取消
// 连续读取失败时指数退避，读到消息后恢复
func (b *KafkaBroker) Start(ctx context.Context) {
	backoff := b.backoffMin
	for {
		msg, err := b.transport.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			zap.L().Error("读取 Kafka 事件失败", zap.Duration("retry_in", backoff), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, b.backoffMax)
			continue
		}
		backoff = b.backoffMin
		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			zap.L().Error("解析 Kafka 事件失败", zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		b.hub.Dispatch(ev)
	}
}

// Close 关闭 Kafka 连接
func (b *KafkaBroker) Close() {
	b.transport.Close()
}
