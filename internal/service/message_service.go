package service

import (
	"context"
	"errors"

	"github.com/josesc03/bookintokback/internal/audit"
	"github.com/josesc03/bookintokback/internal/domain"
	"github.com/josesc03/bookintokback/internal/repository"
)

type messageService struct {
	messages repository.MessageRepository
	notifier Notifier
}

// NewMessageService creates the message log service.
func NewMessageService(messages repository.MessageRepository, notifier Notifier) MessageService {
	return &messageService{
		messages: messages,
		notifier: notifier,
	}
}

func (s *messageService) Send(ctx context.Context, chatID uint, senderUID, content string) (*domain.Message, error) {
	msg, err := s.messages.Append(ctx, chatID, senderUID, content)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrChatNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrNotParticipant):
			return nil, ErrForbidden
		case errors.Is(err, repository.ErrChatInactive):
			return nil, ErrChatInactive
		}
		return nil, err
	}

	audit.LogChat(ctx, audit.ActionSendMessage, senderUID, chatID, "message appended")
	s.notifier.ChatChanged(ctx, chatID)
	return msg, nil
}

func (s *messageService) List(ctx context.Context, chatID uint) ([]domain.Message, error) {
	messages, err := s.messages.List(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return messages, nil
}
