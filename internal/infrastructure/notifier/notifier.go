package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	publisher "github.com/rbxstore/fulfillment-service/internal/infrastructure/kafka"
)

// KafkaNotifier fans realtime events out through the message bus, keyed by room.
type KafkaNotifier struct {
	pub   domain.PublisherPort
	topic string
}

func NewKafkaNotifier(pub domain.PublisherPort, topic string) *KafkaNotifier {
	return &KafkaNotifier{pub: pub, topic: topic}
}

func (n *KafkaNotifier) Publish(ctx context.Context, roomID, event string, payload any) error {
	body, err := json.Marshal(publisher.RealtimeEvent{
		RoomID:     roomID,
		Event:      event,
		Payload:    payload,
		OccurredAt: time.Now(),
	})
	if err != nil {
		return err
	}
	return n.pub.Publish(ctx, n.topic, domain.Message{Key: []byte(roomID), Value: body})
}

// LogNotifier is used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Publish(_ context.Context, roomID, event string, _ any) error {
	slog.Debug("realtime event", "room_id", roomID, "event", event)
	return nil
}
