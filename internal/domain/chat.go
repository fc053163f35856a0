package domain

import (
	"context"
	"time"
)

type ChatMessage struct {
	ID        string
	RoomID    string
	SenderID  string
	Content   string
	CreatedAt time.Time
}

type ChatRoom struct {
	ID            string
	LastMessage   string
	LastMessageAt time.Time
	LastSenderID  string
	UnreadCount   int64
}

type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *ChatMessage) error
	GetMessage(ctx context.Context, id string) (*ChatMessage, error)
	// TouchRoom sets the last-message fields and bumps the unread counter.
	TouchRoom(ctx context.Context, msg *ChatMessage) error
}

// GuardStore backs the chat rate limiter and idempotency cache. The memory
// implementation serves a single instance; Redis is shared across instances.
type GuardStore interface {
	// Allow counts one send for key inside a sliding window and reports
	// whether it stays within limit. Rejected sends are not counted.
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (bool, error)
	// GetIdempotent ignores keys that are only claimed.
	GetIdempotent(ctx context.Context, key string) (string, bool, error)
	// ClaimIdempotent sets key to a claim marker if it is absent. Only the
	// caller that gets true may persist the message for key.
	ClaimIdempotent(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// ReleaseIdempotent drops a claim that never got a message. Stored
	// message ids are left alone.
	ReleaseIdempotent(ctx context.Context, key string) error
	PutIdempotent(ctx context.Context, key, messageID string, ttl time.Duration) error
}

type RealtimeNotifier interface {
	Publish(ctx context.Context, roomID, event string, payload any) error
}
