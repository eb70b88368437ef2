package realtime_test

import (
	"cherrypick/client/internal/models"
	"cherrypick/client/internal/realtime"
	"cherrypick/client/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newConnectedClient(t *testing.T, opts realtime.Options) (*realtime.Client, *fakeDialer) {
	t.Helper()
	dialer := &fakeDialer{}
	c := realtime.NewClient(dialer, nil, opts)
	require.NoError(t, c.Connect(context.Background()))
	dialer.last().connect()
	require.True(t, c.IsConnected())
	return c, dialer
}

func TestConnect_IdempotentWhileConnected(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{})

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Connect(context.Background()))
	}

	assert.Equal(t, 1, dialer.opened())
}

// TestConnect_ConcurrentCallsOpenOnce covers the window between the state
// check and opening the transport.
func TestConnect_ConcurrentCallsOpenOnce(t *testing.T) {
	dialer := &fakeDialer{}
	c := realtime.NewClient(dialer, nil, realtime.Options{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Connect(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, dialer.opened())
	assert.False(t, c.IsConnected(), "connecting must read as not connected")
}

func TestConnect_ReplacesExhaustedTransport(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{})
	first := dialer.last()

	first.drop("transport close")
	first.giveUp()
	require.NoError(t, c.Connect(context.Background()))

	assert.Equal(t, 2, dialer.opened())
	assert.True(t, first.closed)
}

func TestState_FollowsTransportHooks(t *testing.T) {
	dialer := &fakeDialer{}
	c := realtime.NewClient(dialer, nil, realtime.Options{})
	assert.Equal(t, "disconnected", c.State())

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, "connecting", c.State())
	assert.False(t, c.IsConnected())

	dialer.last().connect()
	assert.Equal(t, "connected", c.State())

	dialer.last().drop("ping timeout")
	assert.Equal(t, "disconnected", c.State())

	c.Disconnect()
	assert.Equal(t, "disconnected", c.State())
}

// While the transport is between its own reconnection attempts it is still
// alive, and a second transport must not be opened.
func TestConnect_NoopWhileTransportRetries(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{})
	first := dialer.last()

	first.drop("transport close")
	require.True(t, first.Alive())
	require.Equal(t, "disconnected", c.State())

	require.NoError(t, c.Connect(context.Background()))

	assert.Equal(t, 1, dialer.opened())
	assert.False(t, first.closed)

	first.connect()
	assert.True(t, c.IsConnected(), "the retrying transport still drives state")
}

func TestConnect_AttachesBearerCredential(t *testing.T) {
	tokens := new(MockTokens)
	tokens.On("GetToken", mock.Anything).Return("abc.def.ghi", nil)
	dialer := &fakeDialer{}
	c := realtime.NewClient(dialer, tokens, realtime.Options{Endpoint: "ws://example/ws"})

	require.NoError(t, c.Connect(context.Background()))

	assert.Equal(t, "Bearer abc.def.ghi", dialer.last().header.Get("Authorization"))
	tokens.AssertExpectations(t)
}

func TestConnect_CredentialFailureIsNotFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "no stored token", err: storage.ErrNotFound},
		{name: "storage failure", err: errors.New("disk on fire")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := new(MockTokens)
			tokens.On("GetToken", mock.Anything).Return("", tt.err)
			dialer := &fakeDialer{}
			c := realtime.NewClient(dialer, tokens, realtime.Options{})

			err := c.Connect(context.Background())

			assert.NoError(t, err)
			require.Equal(t, 1, dialer.opened())
			assert.Empty(t, dialer.last().header.Get("Authorization"))
		})
	}
}

func TestCommands_DroppedWhileDisconnected(t *testing.T) {
	dialer := &fakeDialer{}
	c := realtime.NewClient(dialer, nil, realtime.Options{})

	// never connected
	c.JoinRoom(42)
	c.LeaveRoom(42)
	c.SendMessage(42, "hi", "")
	assert.Equal(t, 0, dialer.opened())

	// transport open but not yet connected
	require.NoError(t, c.Connect(context.Background()))
	c.JoinRoom(42)
	c.SendMessage(42, "hi", "")
	assert.Empty(t, dialer.last().commands())

	// connected, then dropped
	dialer.last().connect()
	dialer.last().drop("transport close")
	c.JoinRoom(42)
	c.LeaveRoom(42)
	c.SendMessage(42, "hi", "")
	c.JoinAuctionRoom(19)
	assert.Empty(t, dialer.last().commands())
	assert.False(t, c.IsConnected())
}

func TestCommands_ErrorHookDisconnects(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{})

	dialer.last().fail(errors.New("connection refused"))

	assert.False(t, c.IsConnected())
}

func TestCommands_EmittedWhileConnected(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{})

	c.JoinRoom(42)
	c.SendMessage(42, "hi", "")
	c.SendMessage(42, "again", "corr-1")
	c.LeaveRoom(42)
	c.JoinAuctionRoom(19)

	cmds := dialer.last().commands()
	require.Len(t, cmds, 5)
	assert.Equal(t, models.EventJoinChatRoom, cmds[0].Event)
	assert.JSONEq(t, `{"roomId":42}`, cmds[0].Payload)
	assert.Equal(t, models.EventSendMessage, cmds[1].Event)
	assert.JSONEq(t, `{"roomId":42,"message":"hi","messageType":"TEXT"}`, cmds[1].Payload)
	assert.JSONEq(t, `{"roomId":42,"message":"again","messageType":"TEXT","clientMessageId":"corr-1"}`, cmds[2].Payload)
	assert.Equal(t, models.EventLeaveChatRoom, cmds[3].Event)
	assert.Equal(t, models.EventJoinAuctionRoom, cmds[4].Event)
	assert.JSONEq(t, `{"auctionId":19}`, cmds[4].Payload)
}

func TestCommands_TransportEmitErrorIsSwallowed(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{})
	dialer.last().emitErr = realtime.ErrSendBufferFull

	assert.NotPanics(t, func() { c.SendMessage(42, "hi", "") })
	assert.Empty(t, dialer.last().commands())
}

func TestSubscribe_LastRegistrationWins(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{})
	var calledA, calledB int

	c.Subscribe(models.EventNewMessage, func(json.RawMessage) { calledA++ })
	c.Subscribe(models.EventNewMessage, func(json.RawMessage) { calledB++ })
	dialer.last().push(models.EventNewMessage, models.ChatMessage{ID: 1})

	assert.Equal(t, 0, calledA)
	assert.Equal(t, 1, calledB)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{})
	calls := 0
	c.Subscribe(models.EventMessageRead, func(json.RawMessage) { calls++ })
	c.Subscribe(models.EventNewBid, func(json.RawMessage) { calls++ })

	c.Unsubscribe(models.EventMessageRead)
	dialer.last().push(models.EventMessageRead, models.MessageRead{MessageID: 1, RoomID: 42})
	assert.Equal(t, 0, calls)

	c.UnsubscribeAll()
	dialer.last().push(models.EventNewBid, map[string]int{"auctionId": 19})
	assert.Equal(t, 0, calls)
}

func TestTypedHandlers(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{})
	var got []models.ChatMessage
	var receipt models.MessageRead
	var bid models.BidUpdate

	c.OnNewMessage(func(m models.ChatMessage) { got = append(got, m) })
	c.OnMessageRead(func(r models.MessageRead) { receipt = r })
	c.OnNewBid(func(b models.BidUpdate) { bid = b })

	dialer.last().push(models.EventNewMessage, map[string]any{"id": 501, "chatRoomId": 42, "message": "yo"})
	dialer.last().hooks.OnEvent(models.EventNewMessage, json.RawMessage(`"not an object"`))
	dialer.last().push(models.EventMessageRead, map[string]any{"messageId": 501, "roomId": 42})
	dialer.last().push(models.EventNewBid, map[string]any{"auctionId": 19, "bidAmount": 16500})

	require.Len(t, got, 1)
	assert.Equal(t, "yo", got[0].Message)
	assert.Equal(t, models.MessageRead{MessageID: 501, RoomID: 42}, receipt)
	assert.Equal(t, int64(19), bid.AuctionID)
	assert.JSONEq(t, `{"auctionId":19,"bidAmount":16500}`, string(bid.Raw))
}

func TestDisconnect(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{})
	first := dialer.last()

	c.Disconnect()
	c.Disconnect()

	assert.False(t, c.IsConnected())
	assert.True(t, first.closed)

	// late callbacks from the torn-down transport are ignored
	first.connect()
	assert.False(t, c.IsConnected())

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, 2, dialer.opened())
}

func TestRejoinOnReconnect(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{RejoinOnReconnect: true})
	tr := dialer.last()

	c.JoinRoom(42)
	c.JoinRoom(7)
	c.LeaveRoom(7)
	tr.drop("transport close")
	tr.connect()

	var joins []string
	for _, cmd := range tr.commands() {
		if cmd.Event == models.EventJoinChatRoom {
			joins = append(joins, cmd.Payload)
		}
	}
	require.Len(t, joins, 3)
	assert.JSONEq(t, `{"roomId":42}`, joins[2])
}

func TestRejoinDisabledByDefault(t *testing.T) {
	c, dialer := newConnectedClient(t, realtime.Options{})
	tr := dialer.last()

	c.JoinRoom(42)
	tr.drop("transport close")
	tr.connect()

	assert.Len(t, tr.commands(), 1)
}

func TestQueueWhileDisconnected(t *testing.T) {
	dialer := &fakeDialer{}
	c := realtime.NewClient(dialer, nil, realtime.Options{QueueWhileDisconnected: true})
	require.NoError(t, c.Connect(context.Background()))

	c.SendMessage(42, "queued", "")
	c.JoinRoom(42)
	assert.Empty(t, dialer.last().commands())

	dialer.last().connect()

	cmds := dialer.last().commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, models.EventSendMessage, cmds[0].Event)
	assert.JSONEq(t, `{"roomId":42,"message":"queued","messageType":"TEXT"}`, cmds[0].Payload)
}
