package realtime_test

import (
	"cherrypick/client/internal/realtime"
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/stretchr/testify/mock"
)

type emitted struct {
	Event   string
	Payload string
}

// fakeTransport records emitted commands; tests drive its lifecycle by
// calling the hooks the client registered.
type fakeTransport struct {
	mu      sync.Mutex
	hooks   realtime.Hooks
	header  http.Header
	emitted []emitted
	alive   bool
	closed  bool
	emitErr error
}

func (f *fakeTransport) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive = true
}

func (f *fakeTransport) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	data, _ := json.Marshal(payload)
	f.emitted = append(f.emitted, emitted{Event: event, Payload: string(data)})
	return nil
}

func (f *fakeTransport) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive = false
	f.closed = true
	return nil
}

func (f *fakeTransport) commands() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.emitted...)
}

func (f *fakeTransport) connect() { f.hooks.OnConnect() }

func (f *fakeTransport) drop(reason string) { f.hooks.OnDisconnect(reason) }

func (f *fakeTransport) fail(err error) { f.hooks.OnError(err) }

func (f *fakeTransport) giveUp() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive = false
}

func (f *fakeTransport) push(event string, payload any) {
	data, _ := json.Marshal(payload)
	f.hooks.OnEvent(event, data)
}

type fakeDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
}

func (d *fakeDialer) Open(endpoint string, header http.Header, hooks realtime.Hooks) realtime.Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &fakeTransport{hooks: hooks, header: header}
	d.transports = append(d.transports, t)
	return t
}

func (d *fakeDialer) opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

func (d *fakeDialer) last() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[len(d.transports)-1]
}

// MockTokens is a testify mock for realtime.TokenSource.
type MockTokens struct {
	mock.Mock
}

func (m *MockTokens) GetToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
