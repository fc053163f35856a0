package memory

import (
	"context"
	"sync"

	"github.com/rbxstore/fulfillment-service/internal/domain"
)

type ChatRepository struct {
	mu       sync.Mutex
	messages map[string]*domain.ChatMessage
	rooms    map[string]*domain.ChatRoom
}

func NewChatRepository() *ChatRepository {
	return &ChatRepository{
		messages: make(map[string]*domain.ChatMessage),
		rooms:    make(map[string]*domain.ChatRoom),
	}
}

func (r *ChatRepository) CreateMessage(_ context.Context, msg *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *msg
	r.messages[msg.ID] = &c
	return nil
}

func (r *ChatRepository) GetMessage(_ context.Context, id string) (*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	c := *m
	return &c, nil
}

func (r *ChatRepository) TouchRoom(_ context.Context, msg *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[msg.RoomID]
	if !ok {
		room = &domain.ChatRoom{ID: msg.RoomID}
		r.rooms[msg.RoomID] = room
	}
	room.LastMessage = msg.Content
	room.LastMessageAt = msg.CreatedAt
	room.LastSenderID = msg.SenderID
	room.UnreadCount++
	return nil
}

func (r *ChatRepository) Room(id string) (domain.ChatRoom, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return domain.ChatRoom{}, false
	}
	return *room, true
}

func (r *ChatRepository) MessageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}
