package realtime

import (
	"cherrypick/client/internal/config"
	"cherrypick/client/internal/models"
	"cherrypick/client/internal/observability"
	"cherrypick/client/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"
)

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives the raw payload of a server-pushed event.
type Handler func(data json.RawMessage)

// TokenSource provides the credential attached to the handshake.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

type Options struct {
	Endpoint string

	// RejoinOnReconnect re-emits join_chat_room for every room joined and not
	// left each time the channel (re)connects.
	RejoinOnReconnect bool
	// QueueWhileDisconnected holds send_message commands issued while
	// disconnected and flushes them on connect, instead of dropping them.
	QueueWhileDisconnected bool
}

type queuedCommand struct {
	event   string
	payload any
}

// Client owns the single realtime connection of a running client. Commands
// are fire-and-forget and are dropped while disconnected.
type Client struct {
	opts   Options
	dialer Dialer
	tokens TokenSource

	connect singleflight.Group

	mu        sync.Mutex
	transport Transport
	gen       uint64
	state     connState
	rooms     map[int64]struct{}
	queue     []queuedCommand

	handlersMu sync.RWMutex
	handlers   map[string]Handler
}

// NewClient builds a client. tokens may be nil, in which case every
// connection is attempted without a credential.
func NewClient(dialer Dialer, tokens TokenSource, opts Options) *Client {
	return &Client{
		opts:     opts,
		dialer:   dialer,
		tokens:   tokens,
		rooms:    make(map[int64]struct{}),
		handlers: make(map[string]Handler),
	}
}

// Connect opens the transport unless one is already connected or still
// reconnecting. Concurrent calls share a single attempt.
func (c *Client) Connect(ctx context.Context) error {
	_, err, _ := c.connect.Do("connect", func() (any, error) {
		c.mu.Lock()
		if c.transport != nil && c.transport.Alive() {
			c.mu.Unlock()
			return nil, nil
		}
		c.mu.Unlock()

		header := http.Header{}
		if token := c.credential(ctx); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}

		c.mu.Lock()
		stale := c.transport
		c.gen++
		t := c.dialer.Open(c.opts.Endpoint, header, c.hooks(c.gen))
		c.transport = t
		c.state = stateConnecting
		c.mu.Unlock()

		if stale != nil {
			// left behind after its reconnection attempts ran out
			_ = stale.Close()
		}
		t.Start()
		return nil, nil
	})
	return err
}

// credential is best effort: a missing or unreadable token only gets logged.
func (c *Client) credential(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.GetToken(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Printf("WARNING: no stored credential, connecting unauthenticated")
		return ""
	case err != nil:
		log.Printf("ERROR: failed to read credential, connecting unauthenticated: %v", err)
		return ""
	}
	return token
}

func (c *Client) hooks(gen uint64) Hooks {
	return Hooks{
		OnConnect: func() { c.onConnect(gen) },
		OnDisconnect: func(reason string) {
			log.Printf("INFO: realtime disconnected: %s", reason)
			c.setDisconnected(gen)
		},
		OnError: func(err error) {
			log.Printf("ERROR: realtime connection error: %v", err)
			c.setDisconnected(gen)
		},
		OnEvent: c.dispatch,
	}
}

func (c *Client) onConnect(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state = stateConnected
	t := c.transport

	var pending []queuedCommand
	if c.opts.RejoinOnReconnect {
		for roomID := range c.rooms {
			pending = append(pending, queuedCommand{models.EventJoinChatRoom, models.RoomCommand{RoomID: roomID}})
		}
	}
	pending = append(pending, c.queue...)
	c.queue = nil
	c.mu.Unlock()

	log.Printf("INFO: realtime connected to %s", c.opts.Endpoint)
	observability.SetConnected(true)

	for _, cmd := range pending {
		c.send(t, cmd.event, cmd.payload)
	}
}

func (c *Client) setDisconnected(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.state = stateDisconnected
	observability.SetConnected(false)
}

// Disconnect tears down the transport. Safe to call when already disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	t := c.transport
	c.transport = nil
	c.gen++
	c.state = stateDisconnected
	c.rooms = make(map[int64]struct{})
	c.queue = nil
	c.mu.Unlock()

	observability.SetConnected(false)
	if t != nil {
		_ = t.Close()
	}
}

// State reads the connection state: disconnected, connecting or connected.
func (c *Client) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.String()
}

// IsConnected reports whether the channel is currently connected. A
// connection still being established reads as not connected.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateConnected
}

func (c *Client) JoinRoom(roomID int64) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
	c.emit(models.EventJoinChatRoom, models.RoomCommand{RoomID: roomID})
}

func (c *Client) LeaveRoom(roomID int64) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
	c.emit(models.EventLeaveChatRoom, models.RoomCommand{RoomID: roomID})
}

func (c *Client) JoinAuctionRoom(auctionID int64) {
	c.emit(models.EventJoinAuctionRoom, models.AuctionCommand{AuctionID: auctionID})
}

// SendMessage emits a TEXT message without waiting for acknowledgment.
// clientMessageID may be empty.
func (c *Client) SendMessage(roomID int64, text, clientMessageID string) {
	c.emit(models.EventSendMessage, models.SendMessageCommand{
		RoomID:          roomID,
		Message:         text,
		MessageType:     models.MessageTypeText,
		ClientMessageID: clientMessageID,
	})
}

func (c *Client) emit(event string, payload any) {
	c.mu.Lock()
	t := c.transport
	if c.state != stateConnected || t == nil {
		if c.opts.QueueWhileDisconnected && event == models.EventSendMessage && len(c.queue) < config.OutboundQueueLimit {
			c.queue = append(c.queue, queuedCommand{event, payload})
			c.mu.Unlock()
			observability.IncCommand(event, "queued")
			return
		}
		c.mu.Unlock()
		observability.IncCommand(event, "dropped")
		return
	}
	c.mu.Unlock()

	c.send(t, event, payload)
}

func (c *Client) send(t Transport, event string, payload any) {
	if err := t.Emit(event, payload); err != nil {
		log.Printf("WARNING: realtime %s not sent: %v", event, err)
		observability.IncCommand(event, "dropped")
		return
	}
	observability.IncCommand(event, "emitted")
}

// Subscribe registers the handler for an event, replacing any previous one.
func (c *Client) Subscribe(event string, h Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[event] = h
}

func (c *Client) Unsubscribe(event string) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	delete(c.handlers, event)
}

func (c *Client) UnsubscribeAll() {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers = make(map[string]Handler)
}

func (c *Client) dispatch(event string, data json.RawMessage) {
	c.handlersMu.RLock()
	h, ok := c.handlers[event]
	c.handlersMu.RUnlock()

	observability.IncEvent(event, ok)
	if ok {
		h(data)
	}
}

// OnNewMessage subscribes to new_message with a decoded payload.
func (c *Client) OnNewMessage(fn func(models.ChatMessage)) {
	c.Subscribe(models.EventNewMessage, func(data json.RawMessage) {
		var msg models.ChatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("ERROR: bad %s payload: %v", models.EventNewMessage, err)
			return
		}
		fn(msg)
	})
}

// OnMessageRead subscribes to message_read with a decoded payload.
func (c *Client) OnMessageRead(fn func(models.MessageRead)) {
	c.Subscribe(models.EventMessageRead, func(data json.RawMessage) {
		var receipt models.MessageRead
		if err := json.Unmarshal(data, &receipt); err != nil {
			log.Printf("ERROR: bad %s payload: %v", models.EventMessageRead, err)
			return
		}
		fn(receipt)
	})
}

// OnNewBid subscribes to new_bid. The payload is passed through raw.
func (c *Client) OnNewBid(fn func(models.BidUpdate)) {
	c.Subscribe(models.EventNewBid, func(data json.RawMessage) {
		update := models.BidUpdate{Raw: data}
		// auctionId is optional; an undecodable body still reaches fn
		_ = json.Unmarshal(data, &update)
		fn(update)
	})
}
