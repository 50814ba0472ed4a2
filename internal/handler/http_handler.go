package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/josesc03/bookintokback/internal/domain"
	"github.com/josesc03/bookintokback/internal/service"
	"github.com/josesc03/bookintokback/pkg/log"
	"github.com/josesc03/bookintokback/pkg/middleware"
	"github.com/josesc03/bookintokback/pkg/response"
)

// HTTPHandler serves the one-shot request/response surface. Mutations return
// enough data for the caller to update its own view immediately; other
// participants learn about the change through the fan-out push.
type HTTPHandler struct {
	exchanges      service.ExchangeService
	messages       service.MessageService
	directory      service.DirectoryService
	authMiddleware *middleware.AuthMiddleware
}

// NewHTTPHandler creates the REST handler.
func NewHTTPHandler(
	exchanges service.ExchangeService,
	messages service.MessageService,
	directory service.DirectoryService,
	authMiddleware *middleware.AuthMiddleware,
) *HTTPHandler {
	return &HTTPHandler{
		exchanges:      exchanges,
		messages:       messages,
		directory:      directory,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all REST routes onto the Gin engine.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	auth := h.authMiddleware.RequireAuth()

	api := r.Group("/api/v1")
	{
		api.POST("/books/:book_id/chats", auth, h.CreateChat)

		chats := api.Group("/chats")
		{
			chats.GET("", auth, h.ListChats)
			chats.GET("/:chat_id", auth, h.GetChatInfo)
			chats.GET("/:chat_id/messages", auth, h.GetMessages)
			chats.POST("/:chat_id/messages", auth, h.SendMessage)
			chats.GET("/:chat_id/state", auth, h.GetState)
			chats.PUT("/:chat_id/state", auth, h.RequestTransition)
			chats.POST("/:chat_id/confirm", auth, h.Confirm)
			chats.POST("/:chat_id/cancel", auth, h.Cancel)
		}

		api.GET("/users/:user_id/exchanged", auth, h.HasExchanged)
	}
}

// CreateChat handles POST /api/v1/books/:book_id/chats. The authenticated
// user opens (or rejoins) a chat about the book.
func (h *HTTPHandler) CreateChat(c *gin.Context) {
	ctx := c.Request.Context()

	bookID, ok := uintParam(c, "book_id")
	if !ok {
		return
	}
	uid := middleware.GetUserID(c)

	chat, exchange, created, err := h.exchanges.CreateChat(ctx, uid, bookID)
	if err != nil {
		h.respondError(c, err, "create chat failed")
		return
	}

	data := gin.H{"chat": chat, "exchange": exchange, "created": created}
	if created {
		response.Created(c, data)
		return
	}
	response.Success(c, data)
}

// ListChats handles GET /api/v1/chats.
func (h *HTTPHandler) ListChats(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.GetUserID(c)

	chats, err := h.directory.ActiveChatsFor(ctx, uid)
	if err != nil {
		h.respondError(c, err, "list chats failed")
		return
	}
	response.Success(c, gin.H{"chats": chats})
}

// GetChatInfo handles GET /api/v1/chats/:chat_id.
func (h *HTTPHandler) GetChatInfo(c *gin.Context) {
	ctx := c.Request.Context()

	chatID, ok := uintParam(c, "chat_id")
	if !ok {
		return
	}

	info, err := h.directory.ChatInfo(ctx, chatID, middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err, "get chat info failed")
		return
	}
	response.Success(c, info)
}

// GetMessages handles GET /api/v1/chats/:chat_id/messages.
func (h *HTTPHandler) GetMessages(c *gin.Context) {
	ctx := c.Request.Context()

	chatID, ok := uintParam(c, "chat_id")
	if !ok {
		return
	}

	view, err := h.directory.MessageView(ctx, chatID, middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err, "get messages failed")
		return
	}
	response.Success(c, view)
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage handles POST /api/v1/chats/:chat_id/messages.
func (h *HTTPHandler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	chatID, ok := uintParam(c, "chat_id")
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "content is required")
		return
	}

	msg, err := h.messages.Send(ctx, chatID, middleware.GetUserID(c), req.Content)
	if err != nil {
		h.respondError(c, err, "send message failed")
		return
	}
	response.Created(c, gin.H{"message": msg})
}

// GetState handles GET /api/v1/chats/:chat_id/state.
func (h *HTTPHandler) GetState(c *gin.Context) {
	ctx := c.Request.Context()

	chatID, ok := uintParam(c, "chat_id")
	if !ok {
		return
	}

	state, err := h.exchanges.State(ctx, chatID)
	if err != nil {
		h.respondError(c, err, "get state failed")
		return
	}
	response.Success(c, gin.H{"state": state})
}

type transitionRequest struct {
	State string `json:"state" binding:"required"`
}

// RequestTransition handles PUT /api/v1/chats/:chat_id/state.
func (h *HTTPHandler) RequestTransition(c *gin.Context) {
	ctx := c.Request.Context()

	chatID, ok := uintParam(c, "chat_id")
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "state is required")
		return
	}

	target := domain.ExchangeState(strings.ToUpper(req.State))
	state, err := h.exchanges.RequestTransition(ctx, chatID, target, middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err, "transition failed")
		return
	}
	response.Success(c, gin.H{"state": state})
}

// Confirm handles POST /api/v1/chats/:chat_id/confirm.
func (h *HTTPHandler) Confirm(c *gin.Context) {
	ctx := c.Request.Context()

	chatID, ok := uintParam(c, "chat_id")
	if !ok {
		return
	}

	exchange, err := h.exchanges.Confirm(ctx, chatID, middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err, "confirm failed")
		return
	}
	response.Success(c, gin.H{"state": exchange.State})
}

// Cancel handles POST /api/v1/chats/:chat_id/cancel.
func (h *HTTPHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()

	chatID, ok := uintParam(c, "chat_id")
	if !ok {
		return
	}

	if err := h.exchanges.Cancel(ctx, chatID, middleware.GetUserID(c)); err != nil {
		h.respondError(c, err, "cancel failed")
		return
	}
	response.Success(c, gin.H{"state": domain.StateCancelled})
}

// HasExchanged handles GET /api/v1/users/:user_id/exchanged: whether the
// caller and the target user ever completed an exchange together.
func (h *HTTPHandler) HasExchanged(c *gin.Context) {
	ctx := c.Request.Context()

	target := c.Param("user_id")
	if target == "" {
		response.BadRequest(c, "user_id is required")
		return
	}

	completed, err := h.exchanges.HasCompletedExchange(ctx, middleware.GetUserID(c), target)
	if err != nil {
		h.respondError(c, err, "exchange lookup failed")
		return
	}
	response.Success(c, gin.H{"completed": completed})
}

// respondError translates service errors to the caller-visible taxonomy.
func (h *HTTPHandler) respondError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, "not a participant of this chat")
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, domain.ErrCodeInvalidTransition, "state transition not allowed")
	case errors.Is(err, service.ErrChatInactive):
		response.Error(c, http.StatusConflict, domain.ErrCodeChatInactive, "chat is inactive")
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, "not a legitimate party to this exchange")
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Msg(msg)
		response.InternalError(c, msg)
	}
}

// uintParam parses an unsigned id path parameter, responding 400 on failure.
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}
