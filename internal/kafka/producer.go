package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-storefront/internal/config"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"

	"github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes order lifecycle events keyed by order id.
type Producer struct {
	Writer MessageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// PublishOrderCreated streams the order creation event to Kafka
func (p *Producer) PublishOrderCreated(ctx context.Context, order models.Order) error {
	return p.publish(ctx, p.Topics.OrderCreated, models.NewOrderEventDto(models.OrderEventCreated, order, ""))
}

// PublishOrderUpdated streams the status change event to Kafka
func (p *Producer) PublishOrderUpdated(ctx context.Context, order models.Order, previous models.OrderStatus) error {
	return p.publish(ctx, p.Topics.OrderUpdated, models.NewOrderEventDto(models.OrderEventUpdated, order, previous))
}

func (p *Producer) publish(ctx context.Context, topic string, event models.OrderEventDto) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(event.Order.OrderID),
		Value: msgBytes,
	}); err != nil {
		return fmt.Errorf("write %s: %w", topic, err)
	}

	p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("%s %s", event.Type, event.Order.OrderID))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderCreated(ctx context.Context, order models.Order) error {
	return nil
}

func (NoopPublisher) PublishOrderUpdated(ctx context.Context, order models.Order, previous models.OrderStatus) error {
	return nil
}
