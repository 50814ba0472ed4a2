package domain

import "time"

// WebSocket actions from client.
const (
	ActionGetChats    = "get_chats"
	ActionGetMessages = "get_messages"
)

// WebSocket payload types to client.
const (
	MsgTypeChatList    = "chat_list"
	MsgTypeMessageList = "message_list"
	MsgTypeError       = "error"
)

// Error codes shared by the REST and websocket surfaces.
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeChatInactive      = "CHAT_INACTIVE"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// WSRequest is a client-initiated pull request on a live channel.
type WSRequest struct {
	Action string `json:"action"`
}

// ChatSummary is one row of a user's active-chat directory.
type ChatSummary struct {
	ChatID          uint      `json:"chat_id"`
	CounterpartName string    `json:"counterpart_name"`
	BookTitle       string    `json:"book_title"`
	BookImageURL    string    `json:"book_image_url"`
	LastMessage     string    `json:"last_message"`
	LastMessageAt   time.Time `json:"last_message_at"`
	IsMine          bool      `json:"is_mine"`
}

// ChatListPayload is pushed on the chats channel and returned for get_chats.
type ChatListPayload struct {
	Type  string        `json:"type"`
	Chats []ChatSummary `json:"chats"`
}

// MessageView is one message as seen on the wire.
type MessageView struct {
	ID        uint      `json:"id"`
	SenderUID string    `json:"sender_uid"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageListPayload is pushed on a per-chat messages channel and returned for
// get_messages. HasConfirmed is the receiving user's own confirmation flag, so
// the payload differs per participant.
type MessageListPayload struct {
	Type          string        `json:"type"`
	ChatID        uint          `json:"chat_id"`
	Messages      []MessageView `json:"messages"`
	ExchangeState ExchangeState `json:"exchange_state"`
	HasConfirmed  bool          `json:"has_confirmed"`
}

// ChatInfo is the chat header: the counterpart and the book being traded.
type ChatInfo struct {
	ChatID          uint   `json:"chat_id"`
	CounterpartUID  string `json:"counterpart_uid"`
	CounterpartName string `json:"counterpart_name"`
	BookTitle       string `json:"book_title"`
	BookImageURL    string `json:"book_image_url"`
}

// WSError is an error frame sent on a live channel.
type WSError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewWSError builds an error frame.
func NewWSError(code, message string) *WSError {
	return &WSError{Type: MsgTypeError, Code: code, Message: message}
}
