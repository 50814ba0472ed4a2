package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/josesc03/bookintokback/internal/domain"
)

// GormChatRepository implements ChatRepository using GORM.
type GormChatRepository struct {
	db *gorm.DB

	// createMu serializes chat creation. "One active chat per triple"
	// cannot be a plain unique index (uniqueness only holds while the
	// exchange is active), and under read committed two concurrent first
	// taps could both pass the existence check.
	createMu sync.Mutex
}

// NewGormChatRepository creates a new GORM-backed chat repository.
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

func (r *GormChatRepository) CreateChatAndExchange(ctx context.Context, offererUID, interestedUID string, bookID uint, greeting string) (*domain.Chat, *domain.Exchange, bool, error) {
	r.createMu.Lock()
	defer r.createMu.Unlock()

	var (
		chat     domain.Chat
		exchange domain.Exchange
		created  bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A still-active chat for the same triple wins over creating a
		// duplicate (guards duplicate "start chat" taps).
		err := tx.
			Joins("JOIN exchanges ON exchanges.chat_id = chats.id").
			Where("chats.book_id = ? AND chats.offerer_uid = ? AND chats.interested_uid = ?", bookID, offererUID, interestedUID).
			Where("exchanges.state IN ?", stateStrings(domain.ActiveStates)).
			First(&chat).Error
		if err == nil {
			created = false
			return tx.Where("chat_id = ?", chat.ID).First(&exchange).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		chat = domain.Chat{
			OffererUID:    offererUID,
			InterestedUID: interestedUID,
			BookID:        bookID,
		}
		if err := tx.Create(&chat).Error; err != nil {
			return err
		}

		exchange = domain.Exchange{
			ChatID: chat.ID,
			State:  domain.StatePending,
		}
		if err := tx.Create(&exchange).Error; err != nil {
			return err
		}

		if greeting != "" {
			msg := domain.Message{
				ChatID:    chat.ID,
				SenderUID: interestedUID,
				Content:   greeting,
				Timestamp: time.Now().UTC(),
			}
			if err := tx.Create(&msg).Error; err != nil {
				return err
			}
		}

		created = true
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return &chat, &exchange, created, nil
}

func (r *GormChatRepository) GetChat(ctx context.Context, chatID uint) (*domain.Chat, error) {
	var chat domain.Chat
	err := r.db.WithContext(ctx).Where("id = ?", chatID).First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return &chat, nil
}

func (r *GormChatRepository) GetExchange(ctx context.Context, chatID uint) (*domain.Exchange, error) {
	var exchange domain.Exchange
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&exchange).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExchangeNotFound
		}
		return nil, err
	}
	return &exchange, nil
}

func (r *GormChatRepository) UpdateState(ctx context.Context, chatID uint, from, to domain.ExchangeState) error {
	result := r.db.WithContext(ctx).Model(&domain.Exchange{}).
		Where("chat_id = ? AND state = ?", chatID, string(from)).
		Update("state", string(to))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStateConflict
	}
	return nil
}

func (r *GormChatRepository) Confirm(ctx context.Context, chatID uint, byInterested bool) (*domain.Exchange, error) {
	flagColumn, otherColumn := "confirmed_by_offerer", "confirmed_by_interested"
	if byInterested {
		flagColumn, otherColumn = otherColumn, flagColumn
	}

	var exchange domain.Exchange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Flag write and state derivation are one statement: the CASE is the
		// SQL form of domain.NextState, and column references read the
		// pre-update row, so both sides confirming concurrently still yields
		// exactly one transition to COMPLETED.
		result := tx.Model(&domain.Exchange{}).
			Where("chat_id = ? AND state IN ?", chatID, stateStrings(domain.ActiveStates)).
			Updates(map[string]interface{}{
				flagColumn: true,
				"state": gorm.Expr(
					"CASE WHEN "+otherColumn+" THEN ? ELSE ? END",
					string(domain.StateCompleted), string(domain.StateAccepted),
				),
			})
		if result.Error != nil {
			return result.Error
		}

		if err := tx.Where("chat_id = ?", chatID).First(&exchange).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrExchangeNotFound
			}
			return err
		}

		if result.RowsAffected == 0 && exchange.State == domain.StateCancelled {
			return ErrChatInactive
		}
		// RowsAffected == 0 with state COMPLETED is a repeat confirm: no-op.
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &exchange, nil
}

func (r *GormChatRepository) ActiveChatsFor(ctx context.Context, uid string) ([]domain.ActiveChat, error) {
	type row struct {
		ID            uint
		OffererUID    string
		InterestedUID string
		BookID        uint
		CreatedAt     time.Time
		State         string
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Table("chats").
		Select("chats.id, chats.offerer_uid, chats.interested_uid, chats.book_id, chats.created_at, exchanges.state").
		Joins("JOIN exchanges ON exchanges.chat_id = chats.id").
		Where("chats.offerer_uid = ? OR chats.interested_uid = ?", uid, uid).
		Where("exchanges.state IN ?", stateStrings(domain.ActiveStates)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	chats := make([]domain.ActiveChat, 0, len(rows))
	for _, r := range rows {
		chats = append(chats, domain.ActiveChat{
			Chat: domain.Chat{
				ID:            r.ID,
				OffererUID:    r.OffererUID,
				InterestedUID: r.InterestedUID,
				BookID:        r.BookID,
				CreatedAt:     r.CreatedAt,
			},
			State: domain.ExchangeState(r.State),
		})
	}
	return chats, nil
}

func (r *GormChatRepository) HasCompletedExchange(ctx context.Context, uidA, uidB string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("chats").
		Joins("JOIN exchanges ON exchanges.chat_id = chats.id").
		Where("(chats.offerer_uid = ? AND chats.interested_uid = ?) OR (chats.offerer_uid = ? AND chats.interested_uid = ?)",
			uidA, uidB, uidB, uidA).
		Where("exchanges.state = ?", string(domain.StateCompleted)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// stateStrings converts states to their stored representation for IN clauses.
func stateStrings(states []domain.ExchangeState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

// Ensure interface is satisfied at compile time.
var _ ChatRepository = (*GormChatRepository)(nil)
