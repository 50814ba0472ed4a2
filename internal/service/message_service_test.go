package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josesc03/bookintokback/internal/domain"
)

func TestSend_AppendsInOrder(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, nil)
	ctx := context.Background()

	chatID := e.newChat(t)

	want := []string{"is it still available?", "it is!", "great, when can we meet?"}
	senders := []string{requesterUID, ownerUID, requesterUID}
	for i, content := range want {
		msg, err := e.messaging.Send(ctx, chatID, senders[i], content)
		req.NoError(err)
		req.NotZero(msg.ID)
		req.False(msg.Timestamp.IsZero())
	}

	messages, err := e.messaging.List(ctx, chatID)
	req.NoError(err)
	req.Len(messages, len(want)+1) // greeting plus the three above

	// Chronological, oldest first, with ids strictly increasing so equal
	// timestamps cannot reorder.
	for i := 1; i < len(messages); i++ {
		req.False(messages[i].Timestamp.Before(messages[i-1].Timestamp))
		req.Greater(messages[i].ID, messages[i-1].ID)
	}
	for i, content := range want {
		req.Equal(content, messages[i+1].Content)
		req.Equal(senders[i], messages[i+1].SenderUID)
	}
}

func TestSend_RejectedOnceExchangeEnds(t *testing.T) {
	for _, state := range []domain.ExchangeState{domain.StateCompleted, domain.StateCancelled} {
		state := state
		t.Run(string(state), func(t *testing.T) {
			req := require.New(t)
			e := newEnv(t, nil)
			ctx := context.Background()

			chatID := e.newChat(t)
			_, err := e.messaging.Send(ctx, chatID, ownerUID, "before")
			req.NoError(err)

			e.forceState(t, chatID, state)

			_, err = e.messaging.Send(ctx, chatID, ownerUID, "after")
			req.ErrorIs(err, ErrChatInactive)

			// History stays readable and untouched.
			messages, err := e.messaging.List(ctx, chatID)
			req.NoError(err)
			req.Equal("before", messages[len(messages)-1].Content)
		})
	}
}

func TestSend_NonParticipant(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, nil)
	chatID := e.newChat(t)

	_, err := e.messaging.Send(context.Background(), chatID, strangerUID, "let me in")
	req.ErrorIs(err, ErrForbidden)
}

func TestSend_UnknownChat(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, nil)

	_, err := e.messaging.Send(context.Background(), 31337, ownerUID, "hello?")
	req.ErrorIs(err, ErrNotFound)
}

func TestList_UnknownChat(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, nil)

	_, err := e.messaging.List(context.Background(), 31337)
	req.ErrorIs(err, ErrNotFound)
}

func TestList_LargeHistory(t *testing.T) {
	req := require.New(t)
	e := newEnv(t, nil)
	ctx := context.Background()

	chatID := e.newChat(t)
	for i := 0; i < 50; i++ {
		sender := ownerUID
		if i%2 == 0 {
			sender = requesterUID
		}
		_, err := e.messaging.Send(ctx, chatID, sender, fmt.Sprintf("message %d", i))
		req.NoError(err)
	}

	messages, err := e.messaging.List(ctx, chatID)
	req.NoError(err)
	req.Len(messages, 51)
	req.Equal("message 49", messages[50].Content)
}
