package realtime

import (
	"cherrypick/client/internal/config"
	"cherrypick/client/internal/models"
	"cherrypick/client/internal/observability"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 256

// WSDialer opens websocket transports with a bounded, fixed-delay
// reconnection policy.
type WSDialer struct {
	Dialer            *websocket.Dialer
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

func NewWSDialer(attempts int, delay time.Duration) *WSDialer {
	return &WSDialer{
		Dialer:            websocket.DefaultDialer,
		ReconnectAttempts: attempts,
		ReconnectDelay:    delay,
	}
}

func (d *WSDialer) Open(endpoint string, header http.Header, hooks Hooks) Transport {
	return &wsTransport{
		endpoint: endpoint,
		header:   header,
		hooks:    hooks,
		dialer:   d.Dialer,
		attempts: d.ReconnectAttempts,
		delay:    d.ReconnectDelay,
		done:     make(chan struct{}),
	}
}

type wsTransport struct {
	endpoint string
	header   http.Header
	hooks    Hooks
	dialer   *websocket.Dialer
	attempts int
	delay    time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	sendCh chan []byte

	alive     atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

func (t *wsTransport) Start() {
	t.alive.Store(true)
	go t.run()
}

func (t *wsTransport) Alive() bool {
	return t.alive.Load()
}

func (t *wsTransport) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(models.Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	t.mu.Lock()
	ch := t.sendCh
	t.mu.Unlock()
	if ch == nil {
		return ErrNotConnected
	}

	select {
	case ch <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		t.alive.Store(false)
		close(t.done)

		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(config.WriteWait))
			_ = conn.Close()
		}
	})
	return nil
}

func (t *wsTransport) closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// run dials, serves the connection until it drops, and redials until the
// attempt budget is spent or Close is called.
func (t *wsTransport) run() {
	defer t.alive.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-t.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	failures := 0
	for {
		conn, _, err := t.dialer.DialContext(ctx, t.endpoint, t.header)
		if err != nil {
			if t.closed() {
				return
			}
			t.hooks.OnError(err)
			if !t.waitRetry(&failures) {
				return
			}
			continue
		}

		failures = 0
		reason := t.serve(conn)
		if t.closed() {
			t.hooks.OnDisconnect("client disconnect")
			return
		}
		t.hooks.OnDisconnect(reason)
		if !t.waitRetry(&failures) {
			return
		}
	}
}

func (t *wsTransport) waitRetry(failures *int) bool {
	*failures++
	if *failures > t.attempts {
		log.Printf("WARNING: realtime reconnection gave up after %d attempts", t.attempts)
		return false
	}
	observability.IncReconnectAttempt()

	timer := time.NewTimer(t.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-t.done:
		return false
	}
}

func (t *wsTransport) serve(conn *websocket.Conn) string {
	send := make(chan []byte, sendBufferSize)
	stop := make(chan struct{})

	t.mu.Lock()
	t.conn = conn
	t.sendCh = send
	t.mu.Unlock()

	// Close ran while dialing and saw no conn
	if t.closed() {
		t.mu.Lock()
		t.conn = nil
		t.sendCh = nil
		t.mu.Unlock()
		_ = conn.Close()
		return "client disconnect"
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.writePump(conn, send, stop)
	}()

	t.hooks.OnConnect()
	reason := t.readPump(conn)

	t.mu.Lock()
	t.conn = nil
	t.sendCh = nil
	t.mu.Unlock()

	close(stop)
	_ = conn.Close()
	wg.Wait()
	return reason
}

// readPump decodes envelopes until the connection fails.
func (t *wsTransport) readPump(conn *websocket.Conn) string {
	conn.SetReadLimit(config.MaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(config.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "server disconnect"
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ERROR: realtime read failed: %v", err)
			}
			return "transport close"
		}

		var env models.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			log.Printf("ERROR: undecodable realtime frame: %v", err)
			continue
		}
		t.hooks.OnEvent(env.Event, env.Data)
	}
}

// writePump serialises outgoing frames and keeps the connection alive with pings.
func (t *wsTransport) writePump(conn *websocket.Conn, send <-chan []byte, stop <-chan struct{}) {
	ticker := time.NewTicker(config.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("ERROR: realtime write failed: %v", err)
				_ = conn.Close()
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}

		case <-stop:
			return
		}
	}
}
