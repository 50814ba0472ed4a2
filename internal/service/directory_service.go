package service

import (
	"context"
	"errors"
	"sort"

	"github.com/samber/lo"

	"github.com/josesc03/bookintokback/internal/domain"
	"github.com/josesc03/bookintokback/internal/repository"
	"github.com/josesc03/bookintokback/pkg/log"
)

type directoryService struct {
	chats    repository.ChatRepository
	messages repository.MessageRepository
	books    repository.BookRepository
	users    repository.UserRepository
}

// NewDirectoryService creates the chat-directory view service.
func NewDirectoryService(
	chats repository.ChatRepository,
	messages repository.MessageRepository,
	books repository.BookRepository,
	users repository.UserRepository,
) DirectoryService {
	return &directoryService{
		chats:    chats,
		messages: messages,
		books:    books,
		users:    users,
	}
}

func (s *directoryService) ActiveChatsFor(ctx context.Context, uid string) ([]domain.ChatSummary, error) {
	active, err := s.chats.ActiveChatsFor(ctx, uid)
	if err != nil {
		return nil, err
	}

	chatIDs := lo.Map(active, func(ac domain.ActiveChat, _ int) uint { return ac.Chat.ID })
	lastByChat, err := s.messages.LastMessages(ctx, chatIDs)
	if err != nil {
		return nil, err
	}

	summaries := lo.Map(active, func(ac domain.ActiveChat, _ int) domain.ChatSummary {
		summary := domain.ChatSummary{
			ChatID:          ac.Chat.ID,
			CounterpartName: s.displayName(ctx, ac.Chat.Counterpart(uid)),
			// A chat with no messages yet sorts by its creation time.
			LastMessageAt: ac.Chat.CreatedAt,
		}

		if book, err := s.books.GetBook(ctx, ac.Chat.BookID); err == nil {
			summary.BookTitle = book.Title
			summary.BookImageURL = book.ImageURL
		} else {
			log.Ctx(ctx).Warn().Err(err).Uint(log.FieldBookID, ac.Chat.BookID).Msg("book lookup failed for chat summary")
		}

		if last, ok := lastByChat[ac.Chat.ID]; ok {
			summary.LastMessage = last.Content
			summary.LastMessageAt = last.Timestamp
			summary.IsMine = last.SenderUID == uid
		}
		return summary
	})

	// Most recently active first.
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastMessageAt.Equal(summaries[j].LastMessageAt) {
			return summaries[i].ChatID > summaries[j].ChatID
		}
		return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
	})
	return summaries, nil
}

func (s *directoryService) MessageView(ctx context.Context, chatID uint, uid string) (*domain.MessageListPayload, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !chat.IsParticipant(uid) {
		return nil, ErrForbidden
	}

	messages, err := s.messages.List(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	payload := &domain.MessageListPayload{
		Type:   domain.MsgTypeMessageList,
		ChatID: chatID,
		Messages: lo.Map(messages, func(m domain.Message, _ int) domain.MessageView {
			return domain.MessageView{
				ID:        m.ID,
				SenderUID: m.SenderUID,
				Content:   m.Content,
				Timestamp: m.Timestamp,
			}
		}),
	}

	exchange, err := s.chats.GetExchange(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrExchangeNotFound) {
			// A chat whose exchange vanished is treated as already cancelled.
			payload.ExchangeState = domain.StateCancelled
			return payload, nil
		}
		return nil, err
	}

	payload.ExchangeState = exchange.State
	payload.HasConfirmed = exchange.ConfirmedBy(chat, uid)
	return payload, nil
}

func (s *directoryService) ChatInfo(ctx context.Context, chatID uint, uid string) (*domain.ChatInfo, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !chat.IsParticipant(uid) {
		return nil, ErrForbidden
	}

	counterpart := chat.Counterpart(uid)
	info := &domain.ChatInfo{
		ChatID:          chatID,
		CounterpartUID:  counterpart,
		CounterpartName: s.displayName(ctx, counterpart),
	}

	if book, err := s.books.GetBook(ctx, chat.BookID); err == nil {
		info.BookTitle = book.Title
		info.BookImageURL = book.ImageURL
	}
	return info, nil
}

func (s *directoryService) displayName(ctx context.Context, uid string) string {
	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return uid
	}
	return user.Name
}
