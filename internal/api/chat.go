package api

import (
	"cherrypick/client/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type sendMessageRequest struct {
	Message     string             `json:"message"`
	MessageType models.MessageType `json:"messageType"`
}

// GetChatMessages fetches one page of a room's history, oldest first.
func (c *Client) GetChatMessages(ctx context.Context, roomID int64, page int) ([]models.ChatMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chat/rooms/%d/messages?page=%d", roomID, page), nil, &raw); err != nil {
		return nil, err
	}
	msgs, err := decodeList[models.ChatMessage](raw)
	if err != nil {
		return nil, fmt.Errorf("decode messages of room %d: %w", roomID, err)
	}
	return msgs, nil
}

// SendMessage persists a TEXT message through the REST endpoint.
func (c *Client) SendMessage(ctx context.Context, roomID int64, text string) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	req := sendMessageRequest{Message: text, MessageType: models.MessageTypeText}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/chat/rooms/%d/messages", roomID), req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) GetMyChatRooms(ctx context.Context) ([]models.ChatRoomSummary, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/chat/rooms/my", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.ChatRoomSummary](raw)
}

func (c *Client) MarkMessageRead(ctx context.Context, roomID, messageID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/chat/rooms/%d/messages/%d/read", roomID, messageID), nil, nil)
}

func (c *Client) MarkAllRead(ctx context.Context, roomID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/chat/rooms/%d/messages/read-all", roomID), nil, nil)
}

func (c *Client) LeaveChatRoom(ctx context.Context, roomID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/chat/rooms/%d/leave", roomID), nil, nil)
}

func (c *Client) GetUnreadCount(ctx context.Context) (int, error) {
	var count int
	if err := c.do(ctx, http.MethodGet, "/chat/unread-count", nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}
