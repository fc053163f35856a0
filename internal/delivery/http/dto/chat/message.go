package chat

import (
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
)

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Duplicate bool      `json:"duplicate"`
}

func FromDomain(m *domain.ChatMessage, duplicate bool) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Duplicate: duplicate,
	}
}
