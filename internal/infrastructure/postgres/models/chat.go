package models

import "time"

type ChatMessageModel struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	RoomID    string `gorm:"index:idx_chat_messages_room_created;not null"`
	SenderID  string `gorm:"not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_chat_messages_room_created"`
}

func (ChatMessageModel) TableName() string { return "chat_messages" }

type ChatRoomModel struct {
	ID            string `gorm:"primaryKey"`
	LastMessage   string `gorm:"type:text"`
	LastMessageAt time.Time
	LastSenderID  string
	UnreadCount   int64 `gorm:"not null;default:0"`
}

func (ChatRoomModel) TableName() string { return "chat_rooms" }
