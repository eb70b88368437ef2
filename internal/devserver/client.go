package devserver

import (
	"cherrypick/client/internal/config"
	"cherrypick/client/internal/models"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one realtime connection on the dev server.
type Client struct {
	UserID int64
	Conn   *websocket.Conn
	Hub    *Hub
	Send   chan []byte

	// owned by the hub goroutine
	topics map[string]struct{}
}

func NewClient(hub *Hub, userID int64, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan []byte, 256),
		topics: make(map[string]struct{}),
	}
}

// Run registers the connection and starts its pumps.
func (c *Client) Run() {
	select {
	case c.Hub.RegisterCh <- c:
	case <-c.Hub.done:
		_ = c.Conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.UnregisterCh <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxFrameSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("error reading frame of user %d: %v", c.UserID, err)
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			log.Printf("Error decoding frame from user %d: %v", c.UserID, err)
			continue
		}

		select {
		case c.Hub.IncomingCh <- inbound{client: c, env: env}:
		case <-c.Hub.done:
			return
		}
	}
}

// writePump writes one event per text frame; the client decodes frames one
// envelope at a time.
func (c *Client) writePump() {
	ticker := time.NewTicker(config.PingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				// closed by the hub
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
