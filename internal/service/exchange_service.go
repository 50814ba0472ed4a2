package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/josesc03/bookintokback/internal/audit"
	"github.com/josesc03/bookintokback/internal/domain"
	"github.com/josesc03/bookintokback/internal/repository"
	"github.com/josesc03/bookintokback/pkg/log"
)

type exchangeService struct {
	chats    repository.ChatRepository
	books    repository.BookRepository
	users    repository.UserRepository
	notifier Notifier
}

// NewExchangeService creates the exchange state machine service.
func NewExchangeService(
	chats repository.ChatRepository,
	books repository.BookRepository,
	users repository.UserRepository,
	notifier Notifier,
) ExchangeService {
	return &exchangeService{
		chats:    chats,
		books:    books,
		users:    users,
		notifier: notifier,
	}
}

func (s *exchangeService) CreateChat(ctx context.Context, requesterUID string, bookID uint) (*domain.Chat, *domain.Exchange, bool, error) {
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, nil, false, ErrNotFound
		}
		return nil, nil, false, err
	}

	// Only the owner-vs-requester pairing is a legitimate party set.
	if book.OwnerUID == requesterUID {
		return nil, nil, false, ErrConflict
	}

	greeting := fmt.Sprintf("%s has started this conversation to arrange an exchange with you!", s.displayName(ctx, requesterUID))

	chat, exchange, created, err := s.chats.CreateChatAndExchange(ctx, book.OwnerUID, requesterUID, bookID, greeting)
	if err != nil {
		return nil, nil, false, err
	}

	if created {
		audit.LogChat(ctx, audit.ActionCreateChat, requesterUID, chat.ID, "chat and exchange created")
		s.notifier.ChatChanged(ctx, chat.ID)
	}
	return chat, exchange, created, nil
}

func (s *exchangeService) RequestTransition(ctx context.Context, chatID uint, target domain.ExchangeState, uid string) (domain.ExchangeState, error) {
	if !target.Valid() {
		return "", ErrInvalidTransition
	}

	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !chat.IsParticipant(uid) {
		return "", ErrForbidden
	}

	// CAS loop: a concurrent transition invalidates the read state, so
	// re-read and re-validate. The state machine is monotone (at most two
	// hops to a terminal state), so this converges quickly.
	for attempt := 0; attempt < 3; attempt++ {
		exchange, err := s.chats.GetExchange(ctx, chatID)
		if err != nil {
			if errors.Is(err, repository.ErrExchangeNotFound) {
				return "", ErrNotFound
			}
			return "", err
		}
		if !domain.CanTransition(exchange.State, target) {
			return "", ErrInvalidTransition
		}

		err = s.chats.UpdateState(ctx, chatID, exchange.State, target)
		if err == nil {
			audit.LogChat(ctx, audit.ActionTransition, uid, chatID, "exchange state updated")
			log.Ctx(ctx).Info().
				Uint(log.FieldChatID, chatID).
				Str(log.FieldState, string(target)).
				Msg("exchange transitioned")
			s.notifier.ChatChanged(ctx, chatID)
			return target, nil
		}
		if !errors.Is(err, repository.ErrStateConflict) {
			return "", err
		}
	}
	return "", ErrInvalidTransition
}

func (s *exchangeService) Confirm(ctx context.Context, chatID uint, uid string) (*domain.Exchange, error) {
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

	exchange, err := s.chats.Confirm(ctx, chatID, uid == chat.InterestedUID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrExchangeNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrChatInactive):
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	audit.LogChat(ctx, audit.ActionConfirm, uid, chatID, "exchange confirmed by one side")
	if exchange.State == domain.StateCompleted {
		log.Ctx(ctx).Info().Uint(log.FieldChatID, chatID).Msg("exchange completed")
	}
	s.notifier.ChatChanged(ctx, chatID)
	return exchange, nil
}

func (s *exchangeService) Cancel(ctx context.Context, chatID uint, uid string) error {
	_, err := s.RequestTransition(ctx, chatID, domain.StateCancelled, uid)
	if err != nil {
		return err
	}
	audit.LogChat(ctx, audit.ActionCancel, uid, chatID, "exchange cancelled")
	return nil
}

func (s *exchangeService) State(ctx context.Context, chatID uint) (domain.ExchangeState, error) {
	exchange, err := s.chats.GetExchange(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrExchangeNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return exchange.State, nil
}

func (s *exchangeService) HasCompletedExchange(ctx context.Context, uidA, uidB string) (bool, error) {
	return s.chats.HasCompletedExchange(ctx, uidA, uidB)
}

// displayName resolves a user's name for the greeting, falling back to the
// opaque uid when the profile is unknown.
func (s *exchangeService) displayName(ctx context.Context, uid string) string {
	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return uid
	}
	return user.Name
}
