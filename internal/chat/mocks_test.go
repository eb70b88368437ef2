package chat_test

import (
	"cherrypick/client/internal/models"
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockAPI is a testify mock of chat.API.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) GetChatMessages(ctx context.Context, roomID int64, page int) ([]models.ChatMessage, error) {
	args := m.Called(ctx, roomID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockAPI) SendMessage(ctx context.Context, roomID int64, text string) (*models.ChatMessage, error) {
	args := m.Called(ctx, roomID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockAPI) MarkAllRead(ctx context.Context, roomID int64) error {
	return m.Called(ctx, roomID).Error(0)
}

// MockProfile is a testify mock of chat.ProfileSource.
type MockProfile struct {
	mock.Mock
}

func (m *MockProfile) GetProfile(ctx context.Context) (*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockProfile) GetToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type sentMessage struct {
	roomID          int64
	text            string
	clientMessageID string
}

// fakeRealtime records commands and lets tests push events.
type fakeRealtime struct {
	mu           sync.Mutex
	connected    bool
	joined       []int64
	left         []int64
	sent         []sentMessage
	unsubscribed []string
	onMessage    func(models.ChatMessage)
	onRead       func(models.MessageRead)
}

func (f *fakeRealtime) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeRealtime) JoinRoom(roomID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, roomID)
}

func (f *fakeRealtime) LeaveRoom(roomID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, roomID)
}

func (f *fakeRealtime) SendMessage(roomID int64, text, clientMessageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{roomID, text, clientMessageID})
}

func (f *fakeRealtime) OnNewMessage(fn func(models.ChatMessage)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onMessage = fn
}

func (f *fakeRealtime) OnMessageRead(fn func(models.MessageRead)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRead = fn
}

func (f *fakeRealtime) Unsubscribe(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, event)
	switch event {
	case models.EventNewMessage:
		f.onMessage = nil
	case models.EventMessageRead:
		f.onRead = nil
	}
}

func (f *fakeRealtime) pushMessage(msg models.ChatMessage) {
	f.mu.Lock()
	fn := f.onMessage
	f.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (f *fakeRealtime) pushRead(receipt models.MessageRead) {
	f.mu.Lock()
	fn := f.onRead
	f.mu.Unlock()
	if fn != nil {
		fn(receipt)
	}
}

type alert struct {
	title, message string
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []alert
}

func (a *recordingAlerter) Alert(titleKey, messageKey string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert{titleKey, messageKey})
}

func (a *recordingAlerter) all() []alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]alert(nil), a.alerts...)
}

type memCache struct {
	rooms   map[int64][]models.ChatMessage
	saveErr error
}

func (c *memCache) SaveHistory(roomID int64, msgs []models.ChatMessage) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	if c.rooms == nil {
		c.rooms = make(map[int64][]models.ChatMessage)
	}
	c.rooms[roomID] = append([]models.ChatMessage(nil), msgs...)
	return nil
}

func (c *memCache) LoadHistory(roomID int64) ([]models.ChatMessage, error) {
	return c.rooms[roomID], nil
}
