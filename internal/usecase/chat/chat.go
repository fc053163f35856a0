package chat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/metrics"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/notifier"
)

const (
	EventNewMessage = "new_message"

	idempotencyPrefixRunes = 50

	claimPollInterval = 25 * time.Millisecond
	claimPollAttempts = 80
)

type Config struct {
	RateLimit      int
	RateWindow     time.Duration
	IdempotencyTTL time.Duration
}

type SendMessageInput struct {
	SenderID string
	RoomID   string
	Content  string
}

type SendMessageOutput struct {
	Message   *domain.ChatMessage
	Duplicate bool
}

type ChatUsecase interface {
	SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error)
}

type DefaultChatUsecase struct {
	Repo     domain.ChatRepository
	Guard    domain.GuardStore
	Notifier domain.RealtimeNotifier
	Metrics  *metrics.FulfillmentMetrics

	cfg   Config
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDefaultChatUsecase(
	cfg Config,
	repo domain.ChatRepository,
	guard domain.GuardStore,
	realtime domain.RealtimeNotifier,
	m *metrics.FulfillmentMetrics,
) *DefaultChatUsecase {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 5 * time.Second
	}
	return &DefaultChatUsecase{
		Repo:     repo,
		Guard:    guard,
		Notifier: realtime,
		Metrics:  m,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// SendMessage stores a chat message and fans it out to the room. A repeat of
// the same message inside the idempotency window returns the stored one.
func (uc *DefaultChatUsecase) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}
	if in.SenderID == "" || in.RoomID == "" {
		return nil, fmt.Errorf("%w: sender and room are required", domain.ErrInvalidPayload)
	}

	key := IdempotencyKey(in.SenderID, in.RoomID, content)
	existing, claimed, err := uc.claim(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		uc.Metrics.RecordChat("duplicate")
		return &SendMessageOutput{Message: existing, Duplicate: true}, nil
	}
	release := func() {
		if !claimed {
			return
		}
		if err := uc.Guard.ReleaseIdempotent(ctx, key); err != nil {
			slog.Warn("chat idempotency claim not released", "error", err)
		}
	}

	now := uc.now()
	allowed, err := uc.Guard.Allow(ctx, "chat:rate:"+in.SenderID, uc.cfg.RateLimit, uc.cfg.RateWindow, now)
	if err != nil {
		release()
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		release()
		uc.Metrics.RecordChat("rate_limited")
		return nil, domain.ErrRateLimited
	}

	msg := &domain.ChatMessage{
		ID:        uuid.New().String(),
		RoomID:    in.RoomID,
		SenderID:  in.SenderID,
		Content:   content,
		CreatedAt: now,
	}
	if err := uc.Repo.CreateMessage(ctx, msg); err != nil {
		release()
		return nil, fmt.Errorf("store message: %w", err)
	}
	if err := uc.Repo.TouchRoom(ctx, msg); err != nil {
		slog.Error("chat room update failed", "room_id", msg.RoomID, "message_id", msg.ID, "error", err)
	}
	if err := uc.Guard.PutIdempotent(ctx, key, msg.ID, uc.cfg.IdempotencyTTL); err != nil {
		slog.Warn("chat idempotency key not stored", "message_id", msg.ID, "error", err)
	}
	if err := uc.Notifier.Publish(ctx, msg.RoomID, EventNewMessage, notifier.MessagePayload{
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}); err != nil {
		slog.Warn("chat realtime fanout failed", "room_id", msg.RoomID, "message_id", msg.ID, "error", err)
	}

	uc.Metrics.RecordChat("sent")
	return &SendMessageOutput{Message: msg}, nil
}

// claim returns the stored message when key already has one. Otherwise it
// reports whether this caller now holds the claim on key. A concurrent send
// holding the claim is waited on until its message shows up.
func (uc *DefaultChatUsecase) claim(ctx context.Context, key string) (*domain.ChatMessage, bool, error) {
	for attempt := 0; ; attempt++ {
		if existing, ok := uc.findDuplicate(ctx, key); ok {
			return existing, false, nil
		}
		won, err := uc.Guard.ClaimIdempotent(ctx, key, uc.cfg.IdempotencyTTL)
		if err != nil {
			slog.Warn("chat idempotency claim failed", "error", err)
			return nil, false, nil
		}
		if won {
			return nil, true, nil
		}
		if attempt >= claimPollAttempts {
			return nil, false, domain.ErrDuplicateInFlight
		}
		if err := uc.sleep(ctx, claimPollInterval); err != nil {
			return nil, false, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (uc *DefaultChatUsecase) findDuplicate(ctx context.Context, key string) (*domain.ChatMessage, bool) {
	id, ok, err := uc.Guard.GetIdempotent(ctx, key)
	if err != nil {
		slog.Warn("chat idempotency lookup failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	msg, err := uc.Repo.GetMessage(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrMessageNotFound) {
			slog.Warn("chat duplicate lookup failed", "message_id", id, "error", err)
		}
		return nil, false
	}
	return msg, true
}

// IdempotencyKey identifies a send by sender, room and the first 50 runes
// of the content.
func IdempotencyKey(senderID, roomID, content string) string {
	runes := []rune(content)
	if len(runes) > idempotencyPrefixRunes {
		runes = runes[:idempotencyPrefixRunes]
	}
	sum := sha256.Sum256([]byte(senderID + "|" + roomID + "|" + string(runes)))
	return "chat:idem:" + hex.EncodeToString(sum[:])
}
