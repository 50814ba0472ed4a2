package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/josesc03/bookintokback/internal/domain"
)

func dialWS(t *testing.T, server *httptest.Server, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + path + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestChatsChannel_Snapshot(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)
	chatID := app.newChat(t)

	server := httptest.NewServer(app.router)
	defer server.Close()

	conn := dialWS(t, server, "/ws/chats", requesterToken)

	var list domain.ChatListPayload
	_, data, err := conn.ReadMessage()
	req.NoError(err)
	req.NoError(json.Unmarshal(data, &list))
	req.Equal(domain.MsgTypeChatList, list.Type)
	req.Len(list.Chats, 1)
	req.Equal(chatID, list.Chats[0].ChatID)

	// An explicit pull yields a fresh snapshot.
	req.NoError(conn.WriteJSON(domain.WSRequest{Action: domain.ActionGetChats}))
	_, data, err = conn.ReadMessage()
	req.NoError(err)
	req.NoError(json.Unmarshal(data, &list))
	req.Equal(domain.MsgTypeChatList, list.Type)
}

func TestChatsChannel_InvalidCredential(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)

	server := httptest.NewServer(app.router)
	defer server.Close()

	conn := dialWS(t, server, "/ws/chats", "bogus-token")

	_, _, err := conn.ReadMessage()
	req.Error(err)
	closeErr, ok := err.(*websocket.CloseError)
	req.True(ok, "expected close frame, got %v", err)
	req.Equal(websocket.ClosePolicyViolation, closeErr.Code)
	req.Equal("invalid credential", closeErr.Text)
}

func TestMessagesChannel_SnapshotAndPush(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)
	chatID := app.newChat(t)

	server := httptest.NewServer(app.router)
	defer server.Close()

	conn := dialWS(t, server, fmt.Sprintf("/ws/chats/%d/messages", chatID), ownerToken)

	// Connect delivers a consistent initial snapshot.
	var view domain.MessageListPayload
	_, data, err := conn.ReadMessage()
	req.NoError(err)
	req.NoError(json.Unmarshal(data, &view))
	req.Equal(domain.MsgTypeMessageList, view.Type)
	req.Equal(chatID, view.ChatID)
	req.Equal(domain.StatePending, view.ExchangeState)
	req.Len(view.Messages, 1) // greeting

	// A mutation by the other participant is pushed without a pull.
	_, err = app.messaging.Send(context.Background(), chatID, requesterUID, "deal?")
	req.NoError(err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = conn.ReadMessage()
	req.NoError(err)
	req.NoError(json.Unmarshal(data, &view))
	req.Len(view.Messages, 2)
	req.Equal("deal?", view.Messages[1].Content)
}

func TestMessagesChannel_NotAParticipant(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)
	chatID := app.newChat(t)

	server := httptest.NewServer(app.router)
	defer server.Close()

	conn := dialWS(t, server, fmt.Sprintf("/ws/chats/%d/messages", chatID), strangerToken)

	_, _, err := conn.ReadMessage()
	req.Error(err)
	closeErr, ok := err.(*websocket.CloseError)
	req.True(ok, "expected close frame, got %v", err)
	req.Equal(websocket.ClosePolicyViolation, closeErr.Code)
	req.Equal("not a participant", closeErr.Text)
}

func TestMessagesChannel_UnknownChat(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)

	server := httptest.NewServer(app.router)
	defer server.Close()

	conn := dialWS(t, server, "/ws/chats/9999/messages", ownerToken)

	_, _, err := conn.ReadMessage()
	req.Error(err)
	closeErr, ok := err.(*websocket.CloseError)
	req.True(ok, "expected close frame, got %v", err)
	req.Equal(websocket.CloseNormalClosure, closeErr.Code)
}

func TestMessagesChannel_UnknownAction(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)
	chatID := app.newChat(t)

	server := httptest.NewServer(app.router)
	defer server.Close()

	conn := dialWS(t, server, fmt.Sprintf("/ws/chats/%d/messages", chatID), ownerToken)

	// Drain the snapshot first.
	_, _, err := conn.ReadMessage()
	req.NoError(err)

	req.NoError(conn.WriteJSON(domain.WSRequest{Action: "fly_to_the_moon"}))

	var wsErr domain.WSError
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	req.NoError(err)
	req.NoError(json.Unmarshal(data, &wsErr))
	req.Equal(domain.MsgTypeError, wsErr.Type)
	req.Equal(domain.ErrCodeBadRequest, wsErr.Code)
}
