package chat

import (
	"cherrypick/client/internal/models"
	"context"
	"time"
)

// API is the part of the REST client a chat session uses.
type API interface {
	GetChatMessages(ctx context.Context, roomID int64, page int) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, roomID int64, text string) (*models.ChatMessage, error)
	MarkAllRead(ctx context.Context, roomID int64) error
}

// Realtime is the part of the realtime client a chat session uses.
type Realtime interface {
	IsConnected() bool
	JoinRoom(roomID int64)
	LeaveRoom(roomID int64)
	SendMessage(roomID int64, text, clientMessageID string)
	OnNewMessage(fn func(models.ChatMessage))
	OnMessageRead(fn func(models.MessageRead))
	Unsubscribe(event string)
}

// ProfileSource reads the signed-in user from local storage.
type ProfileSource interface {
	GetProfile(ctx context.Context) (*models.User, error)
	GetToken(ctx context.Context) (string, error)
}

// HistoryStore is an optional offline copy of room history.
type HistoryStore interface {
	SaveHistory(roomID int64, msgs []models.ChatMessage) error
	LoadHistory(roomID int64) ([]models.ChatMessage, error)
}

// Deps wires a Session. Store, Cache and Alerter are optional.
type Deps struct {
	API      API
	Realtime Realtime
	Store    ProfileSource
	Cache    HistoryStore
	Alerter  Alerter

	// Now defaults to time.Now.
	Now func() time.Time
	// NewID generates correlation ids for optimistic messages; defaults to uuid.
	NewID func() string
}
