package devserver_test

import (
	"cherrypick/client/internal/devserver"
	"cherrypick/client/internal/models"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Authenticate(t *testing.T) {
	s := devserver.NewSeededStore()

	user, err := s.Authenticate("01000000002", "password")
	require.NoError(t, err)
	assert.Equal(t, "구매자", user.Nickname)

	_, err = s.Authenticate("01000000002", "wrong")
	assert.ErrorIs(t, err, devserver.ErrBadCredentials)
	_, err = s.Authenticate("01099999999", "password")
	assert.ErrorIs(t, err, devserver.ErrBadCredentials)
}

func TestStore_MessagesPaging(t *testing.T) {
	s := devserver.NewSeededStore()
	for i := 0; i < 120; i++ {
		_, err := s.AddMessage(42, 1, fmt.Sprintf("m%d", i), models.MessageTypeText, "")
		require.NoError(t, err)
	}

	first, err := s.Messages(42, 2, 0, 50)
	require.NoError(t, err)
	require.Len(t, first.Content, 50)
	assert.Equal(t, "m70", first.Content[0].Message)
	assert.Equal(t, "m119", first.Content[49].Message)
	assert.Equal(t, 120, first.TotalElements)
	assert.Equal(t, 3, first.TotalPages)

	last, err := s.Messages(42, 2, 2, 50)
	require.NoError(t, err)
	require.Len(t, last.Content, 20)
	assert.Equal(t, "m0", last.Content[0].Message)

	beyond, err := s.Messages(42, 2, 3, 50)
	require.NoError(t, err)
	assert.Empty(t, beyond.Content)
	assert.NotNil(t, beyond.Content)
}

func TestStore_Membership(t *testing.T) {
	s := devserver.NewSeededStore()
	s.AddUser(models.User{ID: 3, PhoneNumber: "01000000003", Nickname: "구경꾼"}, "password")

	_, err := s.AddMessage(42, 3, "hi", models.MessageTypeText, "")
	assert.ErrorIs(t, err, devserver.ErrNotMember)
	_, err = s.AddMessage(7, 1, "hi", models.MessageTypeText, "")
	assert.ErrorIs(t, err, devserver.ErrRoomNotFound)

	require.NoError(t, s.Leave(42, 2))
	assert.False(t, s.IsMember(42, 2))
	assert.True(t, s.IsMember(42, 1))
}

func TestStore_ReadReceipts(t *testing.T) {
	s := devserver.NewSeededStore()
	own, err := s.AddMessage(42, 1, "from seller", models.MessageTypeText, "corr")
	require.NoError(t, err)
	assert.Equal(t, "corr", own.ClientMessageID, "echo keeps the correlation id")
	_, err = s.AddMessage(42, 1, "again", models.MessageTypeText, "")
	require.NoError(t, err)

	changed, err := s.MarkRead(42, own.ID, 1)
	require.NoError(t, err)
	assert.False(t, changed, "own messages are not marked")

	assert.Equal(t, 2, s.UnreadCount(2))
	changed, err = s.MarkRead(42, own.ID, 2)
	require.NoError(t, err)
	assert.True(t, changed)

	ids, err := s.MarkAllRead(42, 2)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
	assert.Equal(t, 0, s.UnreadCount(2))

	page, err := s.Messages(42, 1, 0, 50)
	require.NoError(t, err)
	assert.Empty(t, page.Content[0].ClientMessageID, "history does not carry correlation ids")
}

func TestStore_RoomsOf(t *testing.T) {
	s := devserver.NewSeededStore()
	_, err := s.AddMessage(42, 2, "문의드립니다", models.MessageTypeText, "")
	require.NoError(t, err)

	rooms := s.RoomsOf(1)
	require.Len(t, rooms, 1)
	assert.Equal(t, "판매자", rooms[0].SellerNickname)
	assert.Equal(t, "구매자", rooms[0].BuyerNickname)
	assert.Equal(t, 1, rooms[0].UnreadCount)
	require.NotNil(t, rooms[0].LastMessage)
	assert.Equal(t, "문의드립니다", rooms[0].LastMessage.Message)

	assert.Empty(t, s.RoomsOf(99))
}

func TestStore_PlaceBid(t *testing.T) {
	s := devserver.NewSeededStore()

	bid, err := s.PlaceBid(19, 2, 16500, false)
	require.NoError(t, err)
	assert.Equal(t, int64(16500), bid.BidAmount)

	_, err = s.PlaceBid(19, 2, 16500, false)
	assert.ErrorIs(t, err, devserver.ErrBidTooLow)
	_, err = s.PlaceBid(20, 2, 0, false)
	assert.ErrorIs(t, err, devserver.ErrBidTooLow)
}
