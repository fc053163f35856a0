package repository

import (
	"context"
	"errors"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/mappers"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultChatRepository struct {
	DB *gorm.DB
}

func NewDefaultChatRepository(db *gorm.DB) *DefaultChatRepository {
	return &DefaultChatRepository{DB: db}
}

func (r *DefaultChatRepository) CreateMessage(ctx context.Context, msg *domain.ChatMessage) error {
	return r.DB.WithContext(ctx).Create(mappers.ToGORMChatMessage(msg)).Error
}

func (r *DefaultChatRepository) GetMessage(ctx context.Context, id string) (*domain.ChatMessage, error) {
	var model models.ChatMessageModel
	if err := r.DB.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return mappers.ToDomainChatMessage(&model), nil
}

func (r *DefaultChatRepository) TouchRoom(ctx context.Context, msg *domain.ChatMessage) error {
	room := models.ChatRoomModel{
		ID:            msg.RoomID,
		LastMessage:   msg.Content,
		LastMessageAt: msg.CreatedAt,
		LastSenderID:  msg.SenderID,
		UnreadCount:   1,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_message":    msg.Content,
			"last_message_at": msg.CreatedAt,
			"last_sender_id":  msg.SenderID,
			"unread_count":    gorm.Expr("chat_rooms.unread_count + 1"),
		}),
	}).Create(&room).Error
}
