package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"

	"github.com/segmentio/kafka-go"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader MessageReader
	logger *logger.Logger
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

func NewConsumerWithReader(reader MessageReader, log *logger.Logger) *Consumer {
	return &Consumer{reader: reader, logger: log}
}

// Start reads order events until ctx is cancelled. Undecodable messages and
// handler errors are logged and skipped.
func (c *Consumer) Start(ctx context.Context, handler func(ctx context.Context, event models.OrderEventDto) error) error {
	c.logger.Info("KAFKA", "Consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("KAFKA", "Consumer stopped")
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			return err
		}

		var event models.OrderEventDto
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message at offset %d: %v", msg.Offset, err))
			continue
		}

		c.logger.LogKafka("RECEIVE", msg.Topic, fmt.Sprintf("%s %s", event.Type, event.Order.OrderID))
		if err := handler(ctx, event); err != nil {
			c.logger.Error("KAFKA", fmt.Sprintf("Handler failed for %s: %v", event.Order.OrderID, err))
		}
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
