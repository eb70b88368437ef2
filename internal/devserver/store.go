package devserver

import (
	"cherrypick/client/internal/models"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrBadCredentials = errors.New("invalid phone number or password")
	ErrRoomNotFound   = errors.New("chat room not found")
	ErrNotMember      = errors.New("not a participant of this chat room")
	ErrBidTooLow      = errors.New("bid must exceed the current price")
)

type account struct {
	user     models.User
	password string
}

type room struct {
	summary  models.ChatRoomSummary
	messages []models.ChatMessage
	left     map[int64]bool
}

// Bid is the accepted bid returned by POST /bids and pushed on new_bid.
type Bid struct {
	ID        int64     `json:"id"`
	AuctionID int64     `json:"auctionId"`
	BidderID  int64     `json:"bidderId"`
	BidAmount int64     `json:"bidAmount"`
	IsAutoBid bool      `json:"isAutoBid"`
	BidTime   time.Time `json:"bidTime"`
}

// Store is the dev server's in-memory backend state.
type Store struct {
	mu       sync.Mutex
	accounts map[int64]*account
	phones   map[string]int64
	rooms    map[int64]*room
	bids     map[int64]Bid
	nextID   int64
	Now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[int64]*account),
		phones:   make(map[string]int64),
		rooms:    make(map[int64]*room),
		bids:     make(map[int64]Bid),
		nextID:   1000,
		Now:      time.Now,
	}
}

// NewSeededStore returns a store with a seller, a buyer and one room between
// them, enough to exercise the client by hand.
func NewSeededStore() *Store {
	s := NewStore()
	s.AddUser(models.User{ID: 1, PhoneNumber: "01000000001", Nickname: "판매자"}, "password")
	s.AddUser(models.User{ID: 2, PhoneNumber: "01000000002", Nickname: "구매자"}, "password")
	s.AddRoom(models.ChatRoomSummary{ID: 42, AuctionID: 19, AuctionTitle: "아이폰 15 Pro", SellerID: 1, BuyerID: 2, Status: "ACTIVE"})
	return s
}

func (s *Store) AddUser(user models.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.CreatedAt == "" {
		user.CreatedAt = s.Now().Format(time.RFC3339)
	}
	s.accounts[user.ID] = &account{user: user, password: password}
	s.phones[user.PhoneNumber] = user.ID
}

func (s *Store) AddRoom(summary models.ChatRoomSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seller, ok := s.accounts[summary.SellerID]; ok {
		summary.SellerNickname = seller.user.Nickname
	}
	if buyer, ok := s.accounts[summary.BuyerID]; ok {
		summary.BuyerNickname = buyer.user.Nickname
	}
	if summary.CreatedAt == "" {
		summary.CreatedAt = s.Now().Format(time.RFC3339)
	}
	s.rooms[summary.ID] = &room{summary: summary, left: make(map[int64]bool)}
}

func (s *Store) Authenticate(phone, password string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.phones[phone]
	if !ok || s.accounts[id].password != password {
		return models.User{}, ErrBadCredentials
	}
	return s.accounts[id].user, nil
}

func (s *Store) User(id int64) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return models.User{}, false
	}
	return acc.user, true
}

// memberRoom returns the room if userID takes part in it and has not left.
func (s *Store) memberRoom(roomID, userID int64) (*room, error) {
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if (r.summary.SellerID != userID && r.summary.BuyerID != userID) || r.left[userID] {
		return nil, ErrNotMember
	}
	return r, nil
}

func (s *Store) IsMember(roomID, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.memberRoom(roomID, userID)
	return err == nil
}

func (s *Store) AddMessage(roomID, senderID int64, text string, kind models.MessageType, clientMessageID string) (models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.memberRoom(roomID, senderID)
	if err != nil {
		return models.ChatMessage{}, err
	}
	if kind == "" {
		kind = models.MessageTypeText
	}

	s.nextID++
	msg := models.ChatMessage{
		ID:              s.nextID,
		ChatRoomID:      roomID,
		SenderID:        senderID,
		SenderNickname:  s.accounts[senderID].user.Nickname,
		Message:         text,
		MessageType:     kind,
		CreatedAt:       s.Now(),
		ClientMessageID: clientMessageID,
	}
	stored := msg
	stored.ClientMessageID = ""
	r.messages = append(r.messages, stored)
	return msg, nil
}

// Messages returns one page of history, oldest first. Page 0 holds the most
// recent size messages.
func (s *Store) Messages(roomID, userID int64, page, size int) (models.Page[models.ChatMessage], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.memberRoom(roomID, userID)
	if err != nil {
		return models.Page[models.ChatMessage]{}, err
	}

	total := len(r.messages)
	end := total - page*size
	start := end - size
	if start < 0 {
		start = 0
	}
	content := []models.ChatMessage{}
	if end > 0 {
		content = append(content, r.messages[start:end]...)
	}
	return models.Page[models.ChatMessage]{
		Content:       content,
		TotalElements: total,
		TotalPages:    (total + size - 1) / size,
		Size:          size,
		Number:        page,
	}, nil
}

// MarkRead marks one message read by readerID. Own messages are never
// marked. It reports whether the flag changed.
func (s *Store) MarkRead(roomID, messageID, readerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.memberRoom(roomID, readerID)
	if err != nil {
		return false, err
	}
	for i := range r.messages {
		m := &r.messages[i]
		if m.ID == messageID && m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

// MarkAllRead marks every message of the other participant read and returns
// the ids that changed.
func (s *Store) MarkAllRead(roomID, readerID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.memberRoom(roomID, readerID)
	if err != nil {
		return nil, err
	}
	var changed []int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			changed = append(changed, m.ID)
		}
	}
	return changed, nil
}

func (s *Store) Leave(roomID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.memberRoom(roomID, userID)
	if err != nil {
		return err
	}
	r.left[userID] = true
	return nil
}

func unread(r *room, userID int64) int {
	n := 0
	for _, m := range r.messages {
		if m.SenderID != userID && !m.IsRead {
			n++
		}
	}
	return n
}

// RoomsOf lists the rooms userID takes part in, most recent activity first.
func (s *Store) RoomsOf(userID int64) []models.ChatRoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ChatRoomSummary{}
	for id := range s.rooms {
		r, err := s.memberRoom(id, userID)
		if err != nil {
			continue
		}
		summary := r.summary
		summary.UnreadCount = unread(r, userID)
		if n := len(r.messages); n > 0 {
			last := r.messages[n-1]
			summary.LastMessage = &last
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		return lastActivity(out[i]) > lastActivity(out[j])
	})
	return out
}

func lastActivity(r models.ChatRoomSummary) int64 {
	if r.LastMessage == nil {
		return 0
	}
	return r.LastMessage.ID
}

func (s *Store) UnreadCount(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for id := range s.rooms {
		if r, err := s.memberRoom(id, userID); err == nil {
			total += unread(r, userID)
		}
	}
	return total
}

// PlaceBid accepts a bid strictly above the current highest one.
func (s *Store) PlaceBid(auctionID, bidderID, amount int64, auto bool) (Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.bids[auctionID]; ok && amount <= current.BidAmount {
		return Bid{}, ErrBidTooLow
	}
	if amount <= 0 {
		return Bid{}, ErrBidTooLow
	}
	s.nextID++
	bid := Bid{
		ID:        s.nextID,
		AuctionID: auctionID,
		BidderID:  bidderID,
		BidAmount: amount,
		IsAutoBid: auto,
		BidTime:   s.Now(),
	}
	s.bids[auctionID] = bid
	return bid, nil
}
