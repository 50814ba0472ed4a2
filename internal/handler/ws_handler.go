package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/josesc03/bookintokback/internal/audit"
	"github.com/josesc03/bookintokback/internal/domain"
	"github.com/josesc03/bookintokback/internal/hub"
	"github.com/josesc03/bookintokback/internal/service"
	"github.com/josesc03/bookintokback/pkg/log"
	"github.com/josesc03/bookintokback/pkg/middleware"
	"github.com/josesc03/bookintokback/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler terminates websocket connections for the two channel kinds: the
// active-chat directory and per-chat message views.
type WSHandler struct {
	registry  *hub.Hub
	verifier  middleware.TokenVerifier
	directory service.DirectoryService
}

// NewWSHandler creates the websocket session handler.
func NewWSHandler(registry *hub.Hub, verifier middleware.TokenVerifier, directory service.DirectoryService) *WSHandler {
	return &WSHandler{
		registry:  registry,
		verifier:  verifier,
		directory: directory,
	}
}

// RegisterRoutes registers the websocket endpoints onto the Gin engine.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/chats", h.HandleChats)
	r.GET("/ws/chats/:chat_id/messages", h.HandleMessages)
}

// HandleChats serves the chat-directory channel: authenticate, push one
// initial snapshot, then answer get_chats pulls and receive directory pushes.
func (h *WSHandler) HandleChats(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	ctx := c.Request.Context()
	identity, err := h.verifier.Verify(ctx, middleware.BearerToken(c.Request))
	if err != nil {
		audit.Log(ctx, audit.ActionAuthFailed, "", "chats channel rejected")
		closeWithReason(conn, websocket.ClosePolicyViolation, "invalid credential")
		return
	}

	client := hub.NewClient(identity.UserID, hub.KindChats, 0, h.registry, conn)
	h.registry.Register(client)
	audit.Log(ctx, audit.ActionConnect, identity.UserID, "chats channel opened")

	h.pushChatList(client)

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleChatsFrame)
		audit.Log(ctx, audit.ActionDisconnect, identity.UserID, "chats channel closed")
	}()
}

// HandleMessages serves a per-chat message channel. Besides authentication it
// requires the caller to be a participant of the chat.
func (h *WSHandler) HandleMessages(c *gin.Context) {
	chatID, err := strconv.ParseUint(c.Param("chat_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid chat id")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	ctx := c.Request.Context()
	identity, err := h.verifier.Verify(ctx, middleware.BearerToken(c.Request))
	if err != nil {
		audit.Log(ctx, audit.ActionAuthFailed, "", "messages channel rejected")
		closeWithReason(conn, websocket.ClosePolicyViolation, "invalid credential")
		return
	}

	// The initial snapshot doubles as the participant check.
	view, err := h.directory.MessageView(ctx, uint(chatID), identity.UserID)
	if err != nil {
		switch err {
		case service.ErrForbidden:
			closeWithReason(conn, websocket.ClosePolicyViolation, "not a participant")
		case service.ErrNotFound:
			closeWithReason(conn, websocket.CloseNormalClosure, "chat not found")
		default:
			log.Ctx(ctx).Error().Err(err).Uint(log.FieldChatID, uint(chatID)).Msg("initial message view failed")
			closeWithReason(conn, websocket.CloseInternalServerErr, "internal error")
		}
		return
	}

	client := hub.NewClient(identity.UserID, hub.KindMessages, uint(chatID), h.registry, conn)
	h.registry.Register(client)
	audit.LogChat(ctx, audit.ActionConnect, identity.UserID, uint(chatID), "messages channel opened")

	client.Enqueue(view)

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleMessagesFrame)
		audit.LogChat(ctx, audit.ActionDisconnect, identity.UserID, uint(chatID), "messages channel closed")
	}()
}

func (h *WSHandler) handleChatsFrame(client *hub.Client, message []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(message, &req); err != nil {
		client.Enqueue(domain.NewWSError(domain.ErrCodeBadRequest, "invalid request frame"))
		return
	}

	switch req.Action {
	case domain.ActionGetChats:
		h.pushChatList(client)
	default:
		client.Enqueue(domain.NewWSError(domain.ErrCodeBadRequest, "unknown action"))
	}
}

func (h *WSHandler) handleMessagesFrame(client *hub.Client, message []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(message, &req); err != nil {
		client.Enqueue(domain.NewWSError(domain.ErrCodeBadRequest, "invalid request frame"))
		return
	}

	switch req.Action {
	case domain.ActionGetMessages:
		view, err := h.directory.MessageView(context.Background(), client.ChatID, client.UserID)
		if err != nil {
			client.Enqueue(domain.NewWSError(domain.ErrCodeInternalError, "failed to compute message view"))
			return
		}
		client.Enqueue(view)
	default:
		client.Enqueue(domain.NewWSError(domain.ErrCodeBadRequest, "unknown action"))
	}
}

// pushChatList computes a fresh directory snapshot and queues it.
func (h *WSHandler) pushChatList(client *hub.Client) {
	chats, err := h.directory.ActiveChatsFor(context.Background(), client.UserID)
	if err != nil {
		log.L().Error().Err(err).Str(log.FieldUserID, client.UserID).Msg("chat directory snapshot failed")
		client.Enqueue(domain.NewWSError(domain.ErrCodeInternalError, "failed to compute chat list"))
		return
	}
	client.Enqueue(&domain.ChatListPayload{Type: domain.MsgTypeChatList, Chats: chats})
}

func closeWithReason(conn *websocket.Conn, code int, reason string) {
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	conn.Close()
}
