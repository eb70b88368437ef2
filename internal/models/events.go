package models

import "encoding/json"

// Realtime command names (client -> server).
const (
	EventJoinChatRoom    = "join_chat_room"
	EventLeaveChatRoom   = "leave_chat_room"
	EventSendMessage     = "send_message"
	EventJoinAuctionRoom = "join_auction_room"
)

// Realtime event names (server -> client).
const (
	EventNewMessage  = "new_message"
	EventMessageRead = "message_read"
	EventNewBid      = "new_bid"
)

// Envelope is a single realtime frame: an event name and its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomCommand is the payload of join_chat_room and leave_chat_room.
type RoomCommand struct {
	RoomID int64 `json:"roomId"`
}

// AuctionCommand is the payload of join_auction_room.
type AuctionCommand struct {
	AuctionID int64 `json:"auctionId"`
}

// SendMessageCommand is the payload of send_message.
type SendMessageCommand struct {
	RoomID          int64       `json:"roomId"`
	Message         string      `json:"message"`
	MessageType     MessageType `json:"messageType"`
	ClientMessageID string      `json:"clientMessageId,omitempty"`
}

// MessageRead is the payload of a message_read receipt.
type MessageRead struct {
	MessageID int64 `json:"messageId"`
	RoomID    int64 `json:"roomId"`
}

// BidUpdate is a live bid pushed on new_bid. The payload shape is owned by
// the backend, so it is kept raw; AuctionID is filled in when present.
type BidUpdate struct {
	AuctionID int64           `json:"auctionId"`
	Raw       json.RawMessage `json:"-"`
}
