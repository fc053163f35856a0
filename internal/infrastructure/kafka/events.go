package publisher

import (
	"context"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
)

// RealtimeEvent is what chat and order-status listeners consume.
type RealtimeEvent struct {
	RoomID     string    `json:"room_id"`
	Event      string    `json:"event"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StockEventPublisher puts inventory changes on the stock topic so every
// instance's subscriber can trigger a sweep.
type StockEventPublisher struct {
	Publisher *DefaultKafkaPublisher
	Topic     string
}

func (p StockEventPublisher) StockChanged(ctx context.Context, ev domain.StockEvent) error {
	return p.Publisher.PublishJSON(ctx, p.Topic, ev.AccountID, ev)
}
