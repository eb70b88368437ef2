package chat

import (
	"cherrypick/client/internal/localization"
	"cherrypick/client/internal/models"
	"cherrypick/client/internal/observability"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyMessage   = errors.New("chat: message is empty")
	ErrSendInProgress = errors.New("chat: a send is already in progress")
	ErrClosed         = errors.New("chat: session closed")
)

// Session is the state of one open chat room: its message list, kept in sync
// with realtime events, and the optimistic send flow.
type Session struct {
	roomID  int64
	deps    Deps
	profile models.User

	mu       sync.Mutex
	messages []models.ChatMessage
	sending  bool
	closed   bool
	onChange func([]models.ChatMessage)
}

// Open loads the profile and first history page of a room, joins it and starts
// listening for its events. History failures are logged and leave the list
// empty or stale.
func Open(ctx context.Context, deps Deps, roomID int64) (*Session, error) {
	if deps.API == nil || deps.Realtime == nil {
		return nil, errors.New("chat: API and Realtime are required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	s := &Session{
		roomID:   roomID,
		deps:     deps,
		profile:  loadProfile(ctx, deps.Store),
		messages: []models.ChatMessage{},
	}

	if err := s.load(ctx); err != nil {
		log.Printf("ERROR: Failed to load messages of room %d: %v", roomID, err)
		s.loadCached()
	}

	deps.Realtime.JoinRoom(roomID)
	deps.Realtime.OnNewMessage(s.handleNewMessage)
	deps.Realtime.OnMessageRead(s.handleMessageRead)

	return s, nil
}

func (s *Session) RoomID() int64 {
	return s.roomID
}

// Profile is the user optimistic messages are attributed to.
func (s *Session) Profile() models.User {
	return s.profile
}

// OnChange registers a callback receiving a snapshot after every change to
// the message list.
func (s *Session) OnChange(fn func([]models.ChatMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Messages returns a copy of the current message list.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// load fetches page 0 and replaces the list with it.
func (s *Session) load(ctx context.Context) error {
	msgs, err := s.deps.API.GetChatMessages(ctx, s.roomID, 0)
	if err != nil {
		observability.IncHistoryFetch("error")
		return err
	}
	observability.IncHistoryFetch("ok")

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SaveHistory(s.roomID, msgs); err != nil {
			log.Printf("WARNING: failed to cache history of room %d: %v", s.roomID, err)
		}
	}
	s.update(func([]models.ChatMessage) []models.ChatMessage {
		return append([]models.ChatMessage{}, msgs...)
	})
	return nil
}

func (s *Session) loadCached() {
	if s.deps.Cache == nil {
		return
	}
	msgs, err := s.deps.Cache.LoadHistory(s.roomID)
	if err != nil {
		log.Printf("ERROR: Failed to read cached history of room %d: %v", s.roomID, err)
		return
	}
	if len(msgs) == 0 {
		return
	}
	observability.IncHistoryFetch("cache")
	log.Printf("INFO: showing %d cached messages for room %d", len(msgs), s.roomID)
	s.update(func([]models.ChatMessage) []models.ChatMessage { return msgs })
}

// Reload refetches history. Unlike the initial load, a failure is shown to
// the user.
func (s *Session) Reload(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		log.Printf("ERROR: Failed to reload messages of room %d: %v", s.roomID, err)
		s.alert(localization.KeyHistoryLoadFailed)
		return err
	}
	return nil
}

// Send appends the message optimistically, then delivers it over the
// realtime channel when connected or through REST otherwise. A REST success
// replaces the list with fresh history; a REST failure removes the
// optimistic message and alerts the user once.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.sending {
		s.mu.Unlock()
		return ErrSendInProgress
	}
	s.sending = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	now := s.deps.Now()
	temp := models.ChatMessage{
		ID:              now.UnixMilli(),
		ChatRoomID:      s.roomID,
		SenderID:        s.profile.ID,
		SenderNickname:  s.profile.Nickname,
		Message:         text,
		MessageType:     models.MessageTypeText,
		CreatedAt:       now,
		ClientMessageID: s.deps.NewID(),
	}
	s.update(func(list []models.ChatMessage) []models.ChatMessage {
		return append(list, temp)
	})

	if s.deps.Realtime.IsConnected() {
		s.deps.Realtime.SendMessage(s.roomID, text, temp.ClientMessageID)
		observability.IncSend("realtime")
		return nil
	}

	if _, err := s.deps.API.SendMessage(ctx, s.roomID, text); err != nil {
		observability.IncSend("rest_failed")
		log.Printf("ERROR: Failed to send message to room %d: %v", s.roomID, err)
		s.update(func(list []models.ChatMessage) []models.ChatMessage {
			return removeByClientID(list, temp.ClientMessageID)
		})
		s.alert(localization.KeySendFailed)
		return fmt.Errorf("send to room %d: %w", s.roomID, err)
	}
	observability.IncSend("rest")

	// the optimistic entry stays if the refetch fails
	if err := s.load(ctx); err != nil {
		log.Printf("ERROR: Failed to load messages of room %d: %v", s.roomID, err)
	}
	return nil
}

// MarkAllRead marks every message of the room read on the server and locally.
func (s *Session) MarkAllRead(ctx context.Context) error {
	if err := s.deps.API.MarkAllRead(ctx, s.roomID); err != nil {
		return fmt.Errorf("mark room %d read: %w", s.roomID, err)
	}
	s.update(func(list []models.ChatMessage) []models.ChatMessage {
		for i := range list {
			list[i].IsRead = true
		}
		return list
	})
	return nil
}

// Close leaves the room and drops both event handlers. Safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.onChange = nil
	s.mu.Unlock()

	s.deps.Realtime.LeaveRoom(s.roomID)
	s.deps.Realtime.Unsubscribe(models.EventNewMessage)
	s.deps.Realtime.Unsubscribe(models.EventMessageRead)
}

func (s *Session) handleNewMessage(msg models.ChatMessage) {
	if msg.ChatRoomID != s.roomID {
		return
	}
	s.update(func(list []models.ChatMessage) []models.ChatMessage {
		return merge(list, msg)
	})
}

func (s *Session) handleMessageRead(receipt models.MessageRead) {
	if receipt.RoomID != s.roomID {
		return
	}
	s.update(func(list []models.ChatMessage) []models.ChatMessage {
		for i := range list {
			if list[i].ID == receipt.MessageID {
				list[i].IsRead = true
			}
		}
		return list
	})
}

// update applies fn under the lock and notifies the OnChange callback with
// the result. Closed sessions ignore updates.
func (s *Session) update(fn func([]models.ChatMessage) []models.ChatMessage) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.messages = fn(s.messages)
	notify := s.onChange
	var snapshot []models.ChatMessage
	if notify != nil {
		snapshot = append([]models.ChatMessage(nil), s.messages...)
	}
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

func (s *Session) alert(messageKey string) {
	if s.deps.Alerter == nil {
		return
	}
	s.deps.Alerter.Alert(localization.KeyErrorTitle, messageKey)
}

// merge adds an incoming message. An echo carrying the correlation id of an
// optimistic entry replaces it; a message whose server id is already listed
// is dropped.
func merge(list []models.ChatMessage, msg models.ChatMessage) []models.ChatMessage {
	if msg.ClientMessageID != "" {
		for i := range list {
			if list[i].ClientMessageID == msg.ClientMessageID {
				list[i] = msg
				return list
			}
		}
	}
	for i := range list {
		if list[i].ID == msg.ID {
			return list
		}
	}
	return append(list, msg)
}

func removeByClientID(list []models.ChatMessage, clientID string) []models.ChatMessage {
	out := list[:0]
	for _, m := range list {
		if m.ClientMessageID != clientID {
			out = append(out, m)
		}
	}
	return out
}
