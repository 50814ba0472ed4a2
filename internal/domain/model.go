package domain

import "time"

// ExchangeState is the lifecycle state of a chat's exchange.
type ExchangeState string

const (
	StatePending   ExchangeState = "PENDING"
	StateAccepted  ExchangeState = "ACCEPTED"
	StateCompleted ExchangeState = "COMPLETED"
	StateCancelled ExchangeState = "CANCELLED"
)

// allowedTransitions is the successor table for caller-requested transitions.
// COMPLETED is deliberately absent from every successor set: it is only
// reachable through dual confirmation, never by direct request.
var allowedTransitions = map[ExchangeState]map[ExchangeState]bool{
	StatePending: {
		StateAccepted:  true,
		StateCancelled: true,
	},
	StateAccepted: {
		StateCancelled: true,
	},
	StateCompleted: {},
	StateCancelled: {},
}

// CanTransition reports whether a caller may request the transition from -> to.
func CanTransition(from, to ExchangeState) bool {
	return allowedTransitions[from][to]
}

// IsTerminal reports whether the state has no outgoing transitions.
func (s ExchangeState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// IsActive reports whether a chat in this state still accepts messages.
func (s ExchangeState) IsActive() bool {
	return s == StatePending || s == StateAccepted
}

// Valid reports whether s is one of the four known states.
func (s ExchangeState) Valid() bool {
	switch s {
	case StatePending, StateAccepted, StateCompleted, StateCancelled:
		return true
	}
	return false
}

// NextState derives the exchange state from the two confirmation flags. It is
// evaluated inside the same update that flips a flag, so there is no
// observable window where both flags are set but the state lags behind.
func NextState(confirmedByOfferer, confirmedByInterested bool) ExchangeState {
	if confirmedByOfferer && confirmedByInterested {
		return StateCompleted
	}
	return StateAccepted
}

// ActiveStates lists the states in which a chat is live.
var ActiveStates = []ExchangeState{StatePending, StateAccepted}

// Chat pairs the offerer (book owner) with the interested user over one book.
type Chat struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OffererUID    string    `gorm:"column:offerer_uid;type:varchar(64);not null;index" json:"offerer_uid"`
	InterestedUID string    `gorm:"column:interested_uid;type:varchar(64);not null;index" json:"interested_uid"`
	BookID        uint      `gorm:"column:book_id;not null;index" json:"book_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Chat) TableName() string { return "chats" }

// IsParticipant reports whether uid is one of the chat's two parties.
func (c *Chat) IsParticipant(uid string) bool {
	return uid == c.OffererUID || uid == c.InterestedUID
}

// Counterpart returns the other participant's uid.
func (c *Chat) Counterpart(uid string) string {
	if uid == c.OffererUID {
		return c.InterestedUID
	}
	return c.OffererUID
}

// Exchange tracks the lifecycle of one chat's trade. Exactly one exchange
// exists per chat, created in the same transaction as the chat.
type Exchange struct {
	ID                    uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID                uint          `gorm:"column:chat_id;not null;uniqueIndex" json:"chat_id"`
	State                 ExchangeState `gorm:"column:state;type:varchar(16);not null" json:"state"`
	ConfirmedByOfferer    bool          `gorm:"column:confirmed_by_offerer;not null;default:false" json:"confirmed_by_offerer"`
	ConfirmedByInterested bool          `gorm:"column:confirmed_by_interested;not null;default:false" json:"confirmed_by_interested"`
	CreatedAt             time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (Exchange) TableName() string { return "exchanges" }

// ConfirmedBy reports whether the given side of the chat already confirmed.
func (e *Exchange) ConfirmedBy(chat *Chat, uid string) bool {
	if uid == chat.InterestedUID {
		return e.ConfirmedByInterested
	}
	return e.ConfirmedByOfferer
}

// Message is one append-only chat message. The server assigns both the id and
// the timestamp; client clocks are never trusted.
type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    uint      `gorm:"column:chat_id;not null;index" json:"chat_id"`
	SenderUID string    `gorm:"column:sender_uid;type:varchar(64);not null" json:"sender_uid"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

func (Message) TableName() string { return "messages" }

// Book is the listing collaborator's view of a listed book: just enough to
// resolve the offerer and render chat previews.
type Book struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerUID string `gorm:"column:owner_uid;type:varchar(64);not null;index" json:"owner_uid"`
	Title    string `gorm:"column:title;type:varchar(255);not null" json:"title"`
	ImageURL string `gorm:"column:image_url;type:text" json:"image_url"`
}

func (Book) TableName() string { return "books" }

// User is the identity collaborator's view of a user.
type User struct {
	UID  string `gorm:"primaryKey;column:uid;type:varchar(64)" json:"uid"`
	Name string `gorm:"column:name;type:varchar(128);not null" json:"name"`
}

func (User) TableName() string { return "users" }

// ActiveChat is a chat joined with its exchange state, as returned by the
// active-chats query.
type ActiveChat struct {
	Chat  Chat
	State ExchangeState
}
