// Package mq 封装 Kafka 客户端
// 纯技术组件：负责 Writer/Reader 的创建、写入、读取与关闭，不包含业务逻辑
package mq

import (
	"context"
	"time"

	myconfig "nexus_chat_server/internal/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaClient Kafka 客户端结构
type KafkaClient struct {
	Writer *kafka.Writer // 生产者：负责写入消息
	Reader *kafka.Reader // 消费者：负责读取消息
	conf   myconfig.KafkaConfig
}

// NewKafkaClient 按配置创建 Kafka 客户端
// Writer 使用 Hash 分区：同一个 key 始终落在同一分区，分区内有序
func NewKafkaClient(kafkaConfig myconfig.KafkaConfig) *KafkaClient {
	timeout := kafkaConfig.Timeout * time.Second
	if timeout <= 0 {
		timeout = time.Second
	}
	return &KafkaClient{
		conf: kafkaConfig,
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(kafkaConfig.HostPort),
			Topic:                  kafkaConfig.EventTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           timeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
		Reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{kafkaConfig.HostPort},
			Topic:          kafkaConfig.EventTopic,
			CommitInterval: timeout,
			GroupID:        kafkaConfig.GroupID,
			StartOffset:    kafka.LastOffset,
		}),
	}
}

// CreateTopic 创建事件主题（已存在时 Kafka 返回错误，记录后忽略）
func (k *KafkaClient) CreateTopic(partitions int) {
	conn, err := kafka.Dial("tcp", k.conf.HostPort)
	if err != nil {
		zap.L().Error("连接 Kafka 失败", zap.Error(err))
		return
	}
	defer conn.Close()

	if partitions <= 0 {
		partitions = 1
	}
	if err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             k.conf.EventTopic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}); err != nil {
		zap.L().Warn("创建 Kafka 主题失败", zap.String("topic", k.conf.EventTopic), zap.Error(err))
	}
}

// WriteMessage 写入一批消息，同一批内保持顺序
func (k *KafkaClient) WriteMessage(ctx context.Context, msgs ...kafka.Message) error {
	return k.Writer.WriteMessages(ctx, msgs...)
}

// ReadMessage 读取下一条消息（自动提交位点）
func (k *KafkaClient) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return k.Reader.ReadMessage(ctx)
}

// Close 关闭 Writer 与 Reader
func (k *KafkaClient) Close() {
	if err := k.Writer.Close(); err != nil {
		zap.L().Error(err.Error())
	}
	if err := k.Reader.Close(); err != nil {
		zap.L().Error(err.Error())
	}
}
