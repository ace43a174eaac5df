package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ms-storefront/internal/config"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (c *captureWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error { return nil }

var testTopics = config.TopicConfig{OrderCreated: "storefront.order.created", OrderUpdated: "storefront.order.updated"}

func TestProducer_PublishesKeyedEvents(t *testing.T) {
	w := &captureWriter{}
	p := &Producer{Writer: w, Topics: testTopics, Logger: logger.NewDiscard()}
	o := models.Order{OrderID: "ORD-1-1", Price: 100, Status: models.StatusPending}

	require.NoError(t, p.PublishOrderCreated(context.Background(), o))
	o.Status = models.StatusConfirmed
	require.NoError(t, p.PublishOrderUpdated(context.Background(), o, models.StatusPending))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "storefront.order.created", w.msgs[0].Topic)
	assert.Equal(t, "ORD-1-1", string(w.msgs[0].Key))
	assert.Equal(t, "storefront.order.updated", w.msgs[1].Topic)

	var event models.OrderEventDto
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &event))
	assert.Equal(t, models.OrderEventUpdated, event.Type)
	assert.Equal(t, models.StatusPending, event.PreviousStatus)
	assert.Equal(t, models.StatusConfirmed, event.Order.Status)
}

func TestProducer_WriteError(t *testing.T) {
	p := &Producer{Writer: &captureWriter{err: errors.New("broker down")}, Topics: testTopics, Logger: logger.NewDiscard()}
	err := p.PublishOrderCreated(context.Background(), models.Order{OrderID: "ORD-1-1"})
	assert.ErrorContains(t, err, "broker down")
}

type scriptedReader struct {
	msgs []kafka.Message
}

func (s *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(s.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := s.msgs[0]
	s.msgs = s.msgs[1:]
	return msg, nil
}

func (s *scriptedReader) Close() error { return nil }

func TestConsumer_DeliversEventsAndSkipsGarbage(t *testing.T) {
	event := models.NewOrderEventDto(models.OrderEventUpdated, models.Order{OrderID: "ORD-9-9", Status: models.StatusDelivered}, models.StatusConfirmed)
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	reader := &scriptedReader{msgs: []kafka.Message{
		{Topic: "storefront.order.updated", Value: []byte("not json")},
		{Topic: "storefront.order.updated", Value: payload},
	}}
	c := NewConsumerWithReader(reader, logger.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	var got []models.OrderEventDto
	err = c.Start(ctx, func(ctx context.Context, e models.OrderEventDto) error {
		got = append(got, e)
		cancel()
		return nil
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ORD-9-9", got[0].Order.OrderID)
	assert.Equal(t, models.StatusConfirmed, got[0].PreviousStatus)
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.PublishOrderCreated(context.Background(), models.Order{}))
	assert.NoError(t, p.PublishOrderUpdated(context.Background(), models.Order{}, models.StatusPending))
}
