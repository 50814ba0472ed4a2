package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josesc03/bookintokback/internal/domain"
)

func TestActiveChatsFor_Summaries(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, nil)
	ctx := context.Background()

	chatID := e.newChat(t)
	_, err := e.messaging.Send(ctx, chatID, ownerUID, "still here?")
	req.NoError(err)

	// The owner sees the requester's name and their own message flagged.
	chats, err := e.directory.ActiveChatsFor(ctx, ownerUID)
	req.NoError(err)
	req.Len(chats, 1)
	req.Equal(chatID, chats[0].ChatID)
	req.Equal("Rafa Requester", chats[0].CounterpartName)
	req.Equal("The Name of the Wind", chats[0].BookTitle)
	req.Equal("https://img.example/wind.jpg", chats[0].BookImageURL)
	req.Equal("still here?", chats[0].LastMessage)
	req.True(chats[0].IsMine)

	// The requester sees the same message from the other side.
	chats, err = e.directory.ActiveChatsFor(ctx, requesterUID)
	req.NoError(err)
	req.Len(chats, 1)
	req.Equal("Olivia Owner", chats[0].CounterpartName)
	req.False(chats[0].IsMine)
}

func TestActiveChatsFor_MostRecentFirst(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, nil)
	ctx := context.Background()

	second := domain.Book{OwnerUID: ownerUID, Title: "The Wise Man's Fear"}
	req.NoError(e.db.Create(&second).Error)

	firstChat := e.newChat(t)
	secondChat, _, created, err := e.exchanges.CreateChat(ctx, requesterUID, second.ID)
	req.NoError(err)
	req.True(created)

	// A fresh message on the older chat moves it back to the top.
	_, err = e.messaging.Send(ctx, firstChat, requesterUID, "bump")
	req.NoError(err)

	chats, err := e.directory.ActiveChatsFor(ctx, requesterUID)
	req.NoError(err)
	req.Len(chats, 2)
	req.Equal(firstChat, chats[0].ChatID)
	req.Equal(secondChat.ID, chats[1].ChatID)
}

func TestActiveChatsFor_ExcludesEndedExchanges(t *testing.T) {
	for _, state := range []domain.ExchangeState{domain.StateCompleted, domain.StateCancelled} {
		state := state
		t.Run(string(state), func(t *testing.T) {
			req := require.New(t)
			e := newEnv(t, nil)

			chatID := e.newChat(t)
			e.forceState(t, chatID, state)

			chats, err := e.directory.ActiveChatsFor(context.Background(), requesterUID)
			req.NoError(err)
			req.Empty(chats)
		})
	}
}

func TestActiveChatsFor_NoChats(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, nil)

	chats, err := e.directory.ActiveChatsFor(context.Background(), strangerUID)
	req.NoError(err)
	req.Empty(chats)
}

func TestMessageView_PerParticipantConfirmFlag(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, nil)
	ctx := context.Background()

	chatID := e.newChat(t)
	e.forceState(t, chatID, domain.StateAccepted)
	_, err := e.exchanges.Confirm(ctx, chatID, ownerUID)
	req.NoError(err)

	ownerView, err := e.directory.MessageView(ctx, chatID, ownerUID)
	req.NoError(err)
	req.Equal(domain.MsgTypeMessageList, ownerView.Type)
	req.Equal(chatID, ownerView.ChatID)
	req.Equal(domain.StateAccepted, ownerView.ExchangeState)
	req.True(ownerView.HasConfirmed)
	req.Len(ownerView.Messages, 1) // greeting

	requesterView, err := e.directory.MessageView(ctx, chatID, requesterUID)
	req.NoError(err)
	req.Equal(domain.StateAccepted, requesterView.ExchangeState)
	req.False(requesterView.HasConfirmed)
	req.Equal(ownerView.Messages, requesterView.Messages)
}

func TestMessageView_AccessControl(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, nil)
	ctx := context.Background()

	chatID := e.newChat(t)

	_, err := e.directory.MessageView(ctx, chatID, strangerUID)
	req.ErrorIs(err, ErrForbidden)

	_, err = e.directory.MessageView(ctx, 9001, ownerUID)
	req.ErrorIs(err, ErrNotFound)
}

func TestChatInfo(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, nil)
	ctx := context.Background()

	chatID := e.newChat(t)

	info, err := e.directory.ChatInfo(ctx, chatID, requesterUID)
	req.NoError(err)
	req.Equal(chatID, info.ChatID)
	req.Equal(ownerUID, info.CounterpartUID)
	req.Equal("Olivia Owner", info.CounterpartName)
	req.Equal("The Name of the Wind", info.BookTitle)

	_, err = e.directory.ChatInfo(ctx, chatID, strangerUID)
	req.ErrorIs(err, ErrForbidden)
}
