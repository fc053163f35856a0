package mappers

import (
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/models"
)

func ToDomainChatMessage(model *models.ChatMessageModel) *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:        model.ID,
		RoomID:    model.RoomID,
		SenderID:  model.SenderID,
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}
}

func ToGORMChatMessage(msg *domain.ChatMessage) *models.ChatMessageModel {
	return &models.ChatMessageModel{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}
