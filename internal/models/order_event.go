package models

import "time"

type OrderEventType string

const (
	OrderEventCreated OrderEventType = "order.created"
	OrderEventUpdated OrderEventType = "order.updated"
)

// OrderEventDto is the Kafka payload for order lifecycle events.
type OrderEventDto struct {
	Type           OrderEventType `json:"type"`
	Order          Order          `json:"order"`
	PreviousStatus OrderStatus    `json:"previousStatus,omitempty"`
	OccurredAt     time.Time      `json:"occurredAt"`
}

func NewOrderEventDto(eventType OrderEventType, order Order, previous OrderStatus) OrderEventDto {
	return OrderEventDto{
		Type:           eventType,
		Order:          order,
		PreviousStatus: previous,
		OccurredAt:     time.Now().UTC(),
	}
}
