package models

// ChatRoomSummary is one entry of the signed-in user's room list.
type ChatRoomSummary struct {
	ID             int64        `json:"id"`
	AuctionID      int64        `json:"auctionId"`
	AuctionTitle   string       `json:"auctionTitle"`
	SellerID       int64        `json:"sellerId"`
	BuyerID        int64        `json:"buyerId"`
	SellerNickname string       `json:"sellerNickname"`
	BuyerNickname  string       `json:"buyerNickname"`
	Status         string       `json:"status"` // PENDING, ACTIVE, COMPLETED
	LastMessage    *ChatMessage `json:"lastMessage,omitempty"`
	UnreadCount    int          `json:"unreadCount"`
	CreatedAt      string       `json:"createdAt"`
}

// Page is a paginated backend response.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Size          int `json:"size"`
	Number        int `json:"number"`
}
