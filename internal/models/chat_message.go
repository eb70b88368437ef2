package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the kind of a chat message.
type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeImage  MessageType = "IMAGE"
	MessageTypeSystem MessageType = "SYSTEM"
)

// ChatMessage is one entry of a room's message sequence.
//
// ID is either a temporary, locally generated value (Unix milliseconds at the
// time of an optimistic send) or the identifier assigned by the backend.
// ClientMessageID correlates an optimistic entry with its server echo; it is
// empty for messages that did not originate from this client.
type ChatMessage struct {
	ID              int64       `json:"id"`
	ChatRoomID      int64       `json:"chatRoomId"`
	SenderID        int64       `json:"senderId"`
	SenderNickname  string      `json:"senderNickname"`
	Message         string      `json:"message"`
	MessageType     MessageType `json:"messageType"`
	IsRead          bool        `json:"isRead"`
	CreatedAt       time.Time   `json:"createdAt"`
	ClientMessageID string      `json:"clientMessageId,omitempty"`
}

// IsSystem reports whether the message was generated by the backend rather than a user.
func (m ChatMessage) IsSystem() bool {
	return m.MessageType == MessageTypeSystem
}

// layouts accepted for createdAt. The backend serialises LocalDateTime without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// UnmarshalJSON accepts both the client shape and the backend DTO shape
// (senderName / content instead of senderNickname / message).
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID              int64       `json:"id"`
		ChatRoomID      int64       `json:"chatRoomId"`
		SenderID        int64       `json:"senderId"`
		SenderNickname  string      `json:"senderNickname"`
		SenderName      string      `json:"senderName"`
		Message         string      `json:"message"`
		Content         string      `json:"content"`
		MessageType     MessageType `json:"messageType"`
		IsRead          bool        `json:"isRead"`
		Read            bool        `json:"read"`
		CreatedAt       string      `json:"createdAt"`
		ClientMessageID string      `json:"clientMessageId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = ChatMessage{
		ID:              raw.ID,
		ChatRoomID:      raw.ChatRoomID,
		SenderID:        raw.SenderID,
		SenderNickname:  raw.SenderNickname,
		Message:         raw.Message,
		MessageType:     raw.MessageType,
		IsRead:          raw.IsRead || raw.Read,
		ClientMessageID: raw.ClientMessageID,
	}
	if m.SenderNickname == "" {
		m.SenderNickname = raw.SenderName
	}
	if m.Message == "" {
		m.Message = raw.Content
	}
	if m.MessageType == "" {
		m.MessageType = MessageTypeText
	}

	if raw.CreatedAt != "" {
		ts, err := ParseTimestamp(raw.CreatedAt)
		if err != nil {
			return err
		}
		m.CreatedAt = ts
	}
	return nil
}

// ParseTimestamp parses a createdAt value in any of the formats the backend emits.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
