package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatHistory is a cached copy of a fetched message, kept so a room can be
// shown (stale) when the history endpoint is unreachable.
type ChatHistory struct {
	gorm.Model

	// MessageID is the backend identifier of the cached message.
	MessageID int64 `gorm:"not null;index:idx_room_msg"`
	// RoomID is the chat room the message belongs to.
	RoomID         int64  `gorm:"not null;index:idx_room_msg"`
	SenderID       int64  `gorm:"not null"`
	SenderNickname string `gorm:"type:text"`
	Content        string `gorm:"type:text;not null"`
	Type           string `gorm:"type:text;not null"`
	IsRead         bool
	SentAt         time.Time `gorm:"index"`
}

// NewChatHistory converts a message into its cache row.
func NewChatHistory(msg ChatMessage) ChatHistory {
	return ChatHistory{
		MessageID:      msg.ID,
		RoomID:         msg.ChatRoomID,
		SenderID:       msg.SenderID,
		SenderNickname: msg.SenderNickname,
		Content:        msg.Message,
		Type:           string(msg.MessageType),
		IsRead:         msg.IsRead,
		SentAt:         msg.CreatedAt,
	}
}

// ToMessage converts a cache row back into a message.
func (h ChatHistory) ToMessage() ChatMessage {
	return ChatMessage{
		ID:             h.MessageID,
		ChatRoomID:     h.RoomID,
		SenderID:       h.SenderID,
		SenderNickname: h.SenderNickname,
		Message:        h.Content,
		MessageType:    MessageType(h.Type),
		IsRead:         h.IsRead,
		CreatedAt:      h.SentAt,
	}
}
