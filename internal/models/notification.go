package models

import (
	"time"

	"github.com/uptrace/bun"
)

const ChannelTelegram = "telegram"

// NotificationIntent is an outbox row: a message that should reach a channel
// for an order. SentAt stays nil until the channel confirmed delivery.
type NotificationIntent struct {
	bun.BaseModel `bun:"table:notification_outbox"`

	ID            string     `bun:"id,pk" json:"id"`
	OrderID       string     `bun:"order_id,notnull" json:"orderId"`
	Channel       string     `bun:"channel,notnull" json:"channel"`
	Payload       string     `bun:"payload,notnull" json:"payload"`
	Attempts      int        `bun:"attempts,notnull" json:"attempts"`
	LastError     string     `bun:"last_error" json:"lastError,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"createdAt"`
	NextAttemptAt time.Time  `bun:"next_attempt_at,notnull" json:"nextAttemptAt"`
	SentAt        *time.Time `bun:"sent_at,nullzero" json:"sentAt,omitempty"`
	AbandonedAt   *time.Time `bun:"abandoned_at,nullzero" json:"abandonedAt,omitempty"`
}
