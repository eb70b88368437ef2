package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	// ErrNotConnected is returned by a transport asked to emit while it has no live connection.
	ErrNotConnected = errors.New("realtime: transport not connected")
	// ErrSendBufferFull is returned when the write pump cannot keep up.
	ErrSendBufferFull = errors.New("realtime: send buffer full")
)

// Hooks are the lifecycle and event callbacks a transport reports through.
// They are invoked from the transport's own goroutine, one at a time.
type Hooks struct {
	OnConnect    func()
	OnDisconnect func(reason string)
	OnError      func(err error)
	OnEvent      func(event string, data json.RawMessage)
}

// Transport is one realtime connection including its reconnection policy.
type Transport interface {
	// Start begins connecting in the background and returns immediately.
	Start()
	// Emit sends a named command with a JSON-encodable payload.
	Emit(event string, payload any) error
	// Alive reports whether the transport is still connected or still
	// trying to (re)connect. It turns false after Close or once the
	// reconnection attempts are exhausted.
	Alive() bool
	Close() error
}

// Dialer creates transports. header carries the handshake credential.
type Dialer interface {
	Open(endpoint string, header http.Header, hooks Hooks) Transport
}
