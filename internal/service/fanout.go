package service

import (
	"context"
	"encoding/json"

	"github.com/josesc03/bookintokback/internal/domain"
	"github.com/josesc03/bookintokback/internal/hub"
	"github.com/josesc03/bookintokback/internal/repository"
	"github.com/josesc03/bookintokback/pkg/log"
)

// Fanout recomputes and pushes views to every participant of a mutated chat.
// Push failures are logged and swallowed; they never surface to the caller
// that performed the mutation.
type Fanout struct {
	registry  *hub.Hub
	chats     repository.ChatRepository
	directory DirectoryService
}

// NewFanout creates the fan-out orchestrator.
func NewFanout(registry *hub.Hub, chats repository.ChatRepository, directory DirectoryService) *Fanout {
	return &Fanout{
		registry:  registry,
		chats:     chats,
		directory: directory,
	}
}

// ChatChanged pushes a fresh message view and chat directory to each of the
// chat's participants. Users without live channels are skipped silently; they
// will receive a consistent snapshot on their next connect.
func (f *Fanout) ChatChanged(ctx context.Context, chatID uint) {
	chat, err := f.chats.GetChat(ctx, chatID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Uint(log.FieldChatID, chatID).Msg("fanout: chat lookup failed")
		return
	}

	for _, uid := range []string{chat.OffererUID, chat.InterestedUID} {
		// The message view carries the recipient's own confirmation flag, so
		// it is computed per participant rather than once per chat.
		view, err := f.directory.MessageView(ctx, chatID, uid)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Uint(log.FieldChatID, chatID).Str(log.FieldUserID, uid).Msg("fanout: message view failed")
		} else if data, err := json.Marshal(view); err == nil {
			f.registry.SendMessages(uid, chatID, data)
		}

		chats, err := f.directory.ActiveChatsFor(ctx, uid)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldUserID, uid).Msg("fanout: chat directory failed")
			continue
		}
		payload := domain.ChatListPayload{Type: domain.MsgTypeChatList, Chats: chats}
		if data, err := json.Marshal(payload); err == nil {
			f.registry.SendChatList(uid, data)
		}
	}
}

var _ Notifier = (*Fanout)(nil)
