package service

import (
	"context"
	"errors"

	"github.com/josesc03/bookintokback/internal/domain"
)

var (
	// ErrForbidden: authenticated but not a participant of the chat.
	ErrForbidden = errors.New("user is not a participant of this chat")
	// ErrNotFound: chat, exchange or book does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition: the state machine rejects the request.
	ErrInvalidTransition = errors.New("state transition not allowed")
	// ErrChatInactive: message send while the chat's exchange is terminal.
	ErrChatInactive = errors.New("chat is inactive")
	// ErrConflict: the caller is not a legitimate party to the exchange.
	ErrConflict = errors.New("conflicting exchange request")
)

// ExchangeService owns the exchange lifecycle of every chat.
type ExchangeService interface {
	// CreateChat opens a chat on a book for the requesting user. The book
	// owner becomes the offerer, the requester the interested party. Returns
	// the existing chat when one is still active for the pair and book.
	CreateChat(ctx context.Context, requesterUID string, bookID uint) (chat *domain.Chat, exchange *domain.Exchange, created bool, err error)

	// RequestTransition moves the exchange to the requested state if the
	// successor table allows it. COMPLETED is never directly requestable.
	RequestTransition(ctx context.Context, chatID uint, target domain.ExchangeState, uid string) (domain.ExchangeState, error)

	// Confirm records the caller's side of the dual confirmation; both sides
	// confirmed completes the exchange atomically. Repeat confirms are no-ops.
	Confirm(ctx context.Context, chatID uint, uid string) (*domain.Exchange, error)

	// Cancel is RequestTransition to CANCELLED.
	Cancel(ctx context.Context, chatID uint, uid string) error

	// State returns the exchange state for a chat.
	State(ctx context.Context, chatID uint) (domain.ExchangeState, error)

	// HasCompletedExchange reports whether the two users ever completed an
	// exchange together (gates ratings).
	HasCompletedExchange(ctx context.Context, uidA, uidB string) (bool, error)
}

// MessageService is the append-only message log.
type MessageService interface {
	Send(ctx context.Context, chatID uint, senderUID, content string) (*domain.Message, error)
	List(ctx context.Context, chatID uint) ([]domain.Message, error)
}

// DirectoryService computes read views. Views are always recomputed from the
// message log and the state machine, never cached or persisted.
type DirectoryService interface {
	ActiveChatsFor(ctx context.Context, uid string) ([]domain.ChatSummary, error)
	MessageView(ctx context.Context, chatID uint, uid string) (*domain.MessageListPayload, error)
	ChatInfo(ctx context.Context, chatID uint, uid string) (*domain.ChatInfo, error)
}

// Notifier is told after every successful mutation so it can push recomputed
// views to the affected participants.
type Notifier interface {
	ChatChanged(ctx context.Context, chatID uint)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) ChatChanged(context.Context, uint) {}
