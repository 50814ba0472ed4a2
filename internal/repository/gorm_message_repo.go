package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/josesc03/bookintokback/internal/domain"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-backed message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Append(ctx context.Context, chatID uint, senderUID, content string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat domain.Chat
		if err := tx.Where("id = ?", chatID).First(&chat).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChatNotFound
			}
			return err
		}
		if !chat.IsParticipant(senderUID) {
			return ErrNotParticipant
		}

		// A chat with a missing exchange is treated as already cancelled.
		var exchange domain.Exchange
		if err := tx.Where("chat_id = ?", chatID).First(&exchange).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChatInactive
			}
			return err
		}
		if !exchange.State.IsActive() {
			return ErrChatInactive
		}

		msg = domain.Message{
			ChatID:    chatID,
			SenderUID: senderUID,
			Content:   content,
			Timestamp: time.Now().UTC(),
		}
		return tx.Create(&msg).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *GormMessageRepository) List(ctx context.Context, chatID uint) ([]domain.Message, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Chat{}).Where("id = ?", chatID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrChatNotFound
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *GormMessageRepository) LastMessages(ctx context.Context, chatIDs []uint) (map[uint]domain.Message, error) {
	result := make(map[uint]domain.Message, len(chatIDs))
	if len(chatIDs) == 0 {
		return result, nil
	}

	// The server assigns ids monotonically at insert time, so the max id per
	// chat is also the latest message under (timestamp, id) order.
	sub := r.db.Model(&domain.Message{}).
		Select("MAX(id)").
		Where("chat_id IN ?", chatIDs).
		Group("chat_id")

	var messages []domain.Message
	err := r.db.WithContext(ctx).Where("id IN (?)", sub).Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for _, m := range messages {
		result[m.ChatID] = m
	}
	return result, nil
}

// Ensure interface is satisfied at compile time.
var _ MessageRepository = (*GormMessageRepository)(nil)
