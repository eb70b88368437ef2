package devserver

import (
	"cherrypick/client/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// inbound is a command read from one connection.
type inbound struct {
	client *Client
	env    models.Envelope
}

// outbound is an event for every connection subscribed to topic.
type outbound struct {
	topic string
	frame []byte
}

func chatTopic(roomID int64) string {
	return fmt.Sprintf("chat:%d", roomID)
}

func auctionTopic(auctionID int64) string {
	return fmt.Sprintf("auction:%d", auctionID)
}

// Hub owns every realtime connection and their room subscriptions. All of
// its state is touched from the Run goroutine only.
type Hub struct {
	Store   *Store
	clients map[*Client]struct{}

	RegisterCh   chan *Client
	UnregisterCh chan *Client
	IncomingCh   chan inbound
	BroadcastCh  chan outbound

	done chan struct{}
}

func NewHub(store *Store) *Hub {
	return &Hub{
		Store:        store,
		clients:      make(map[*Client]struct{}),
		RegisterCh:   make(chan *Client),
		UnregisterCh: make(chan *Client),
		IncomingCh:   make(chan inbound),
		BroadcastCh:  make(chan outbound, 256),
		done:         make(chan struct{}),
	}
}

// Run dispatches until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			h.drop(c)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.RegisterCh:
			h.clients[c] = struct{}{}
			log.Printf("INFO: user %d connected (%d online)", c.UserID, len(h.clients))

		case c := <-h.UnregisterCh:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				log.Printf("INFO: user %d disconnected", c.UserID)
			}

		case in := <-h.IncomingCh:
			h.handleCommand(in.client, in.env)

		case out := <-h.BroadcastCh:
			h.broadcast(out)
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.Send)
}

// Publish queues an event for every connection subscribed to topic. It never
// blocks; the event is dropped when the hub is saturated or stopped.
func (h *Hub) Publish(topic, event string, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		log.Printf("ERROR: Failed to encode %s: %v", event, err)
		return
	}
	select {
	case h.BroadcastCh <- outbound{topic: topic, frame: frame}:
	default:
		log.Printf("WARNING: broadcast queue full, %s for %s dropped", event, topic)
	}
}

func encodeEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Envelope{Event: event, Data: data})
}

func (h *Hub) broadcast(out outbound) {
	for c := range h.clients {
		if _, ok := c.topics[out.topic]; !ok {
			continue
		}
		select {
		case c.Send <- out.frame:
		default:
			// slow consumer
			log.Printf("WARNING: dropping slow connection of user %d", c.UserID)
			h.drop(c)
		}
	}
}

func (h *Hub) handleCommand(c *Client, env models.Envelope) {
	switch env.Event {
	case models.EventJoinChatRoom:
		var cmd models.RoomCommand
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			log.Printf("WARNING: bad %s from user %d: %v", env.Event, c.UserID, err)
			return
		}
		if !h.Store.IsMember(cmd.RoomID, c.UserID) {
			log.Printf("WARNING: user %d may not join room %d", c.UserID, cmd.RoomID)
			return
		}
		c.topics[chatTopic(cmd.RoomID)] = struct{}{}

	case models.EventLeaveChatRoom:
		var cmd models.RoomCommand
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			log.Printf("WARNING: bad %s from user %d: %v", env.Event, c.UserID, err)
			return
		}
		delete(c.topics, chatTopic(cmd.RoomID))

	case models.EventJoinAuctionRoom:
		var cmd models.AuctionCommand
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			log.Printf("WARNING: bad %s from user %d: %v", env.Event, c.UserID, err)
			return
		}
		c.topics[auctionTopic(cmd.AuctionID)] = struct{}{}

	case models.EventSendMessage:
		var cmd models.SendMessageCommand
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			log.Printf("WARNING: bad %s from user %d: %v", env.Event, c.UserID, err)
			return
		}
		msg, err := h.Store.AddMessage(cmd.RoomID, c.UserID, cmd.Message, cmd.MessageType, cmd.ClientMessageID)
		if err != nil {
			log.Printf("WARNING: message from user %d to room %d rejected: %v", c.UserID, cmd.RoomID, err)
			return
		}
		frame, err := encodeEvent(models.EventNewMessage, msg)
		if err != nil {
			log.Printf("ERROR: Failed to encode %s: %v", models.EventNewMessage, err)
			return
		}
		h.broadcast(outbound{topic: chatTopic(cmd.RoomID), frame: frame})

	default:
		log.Printf("WARNING: unknown command %q from user %d", env.Event, c.UserID)
	}
}
