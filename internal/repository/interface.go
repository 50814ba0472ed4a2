package repository

import (
	"context"
	"errors"

	"github.com/josesc03/bookintokback/internal/domain"
)

var (
	ErrChatNotFound     = errors.New("chat not found")
	ErrExchangeNotFound = errors.New("exchange not found")
	ErrBookNotFound     = errors.New("book not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrNotParticipant   = errors.New("user is not a chat participant")
	ErrChatInactive     = errors.New("chat is inactive")
	ErrStateConflict    = errors.New("exchange state changed concurrently")
)

// ChatRepository owns chats and their exchanges. A chat and its exchange are
// always created in the same transaction; exchange mutations are
// single-statement compare-and-swap updates so concurrent transitions on one
// chat serialize at the row level.
type ChatRepository interface {
	// CreateChatAndExchange creates a chat with a PENDING exchange and an
	// optional greeting message, unless an active chat for the same
	// (book, offerer, interested) triple already exists, in which case that
	// chat is returned and created is false.
	CreateChatAndExchange(ctx context.Context, offererUID, interestedUID string, bookID uint, greeting string) (chat *domain.Chat, exchange *domain.Exchange, created bool, err error)

	GetChat(ctx context.Context, chatID uint) (*domain.Chat, error)
	GetExchange(ctx context.Context, chatID uint) (*domain.Exchange, error)

	// UpdateState moves the exchange from -> to. Returns ErrStateConflict when
	// the exchange was no longer in the expected state.
	UpdateState(ctx context.Context, chatID uint, from, to domain.ExchangeState) error

	// Confirm flips one side's confirmation flag and derives the new state in
	// the same statement: both flags set means COMPLETED, otherwise ACCEPTED.
	// Confirming an already COMPLETED exchange is a no-op; a CANCELLED one is
	// ErrChatInactive.
	Confirm(ctx context.Context, chatID uint, byInterested bool) (*domain.Exchange, error)

	// ActiveChatsFor returns every chat the user participates in whose
	// exchange is PENDING or ACCEPTED.
	ActiveChatsFor(ctx context.Context, uid string) ([]domain.ActiveChat, error)

	// HasCompletedExchange reports whether any exchange between the two users
	// ever reached COMPLETED.
	HasCompletedExchange(ctx context.Context, uidA, uidB string) (bool, error)
}

// MessageRepository owns the append-only message log.
type MessageRepository interface {
	// Append verifies sender participation and exchange liveness inside one
	// transaction, then persists the message with a server-assigned id and
	// timestamp.
	Append(ctx context.Context, chatID uint, senderUID, content string) (*domain.Message, error)

	// List returns all of a chat's messages ordered by (timestamp, id).
	List(ctx context.Context, chatID uint) ([]domain.Message, error)

	// LastMessages returns the most recent message of each given chat, keyed
	// by chat id. Chats without messages are absent from the map.
	LastMessages(ctx context.Context, chatIDs []uint) (map[uint]domain.Message, error)
}

// BookRepository is the listing collaborator: read-only book lookups.
type BookRepository interface {
	GetBook(ctx context.Context, bookID uint) (*domain.Book, error)
}

// UserRepository is the identity collaborator's profile lookup.
type UserRepository interface {
	GetUser(ctx context.Context, uid string) (*domain.User, error)
}
