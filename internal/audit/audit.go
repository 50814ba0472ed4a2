package audit

import (
	"context"

	"github.com/josesc03/bookintokback/pkg/log"
)

// Audit actions for the exchange subsystem.
const (
	ActionCreateChat  = "exchange.create_chat"
	ActionTransition  = "exchange.transition"
	ActionConfirm     = "exchange.confirm"
	ActionCancel      = "exchange.cancel"
	ActionSendMessage = "chat.send_message"
	ActionConnect     = "session.connect"
	ActionAuthFailed  = "session.auth_failed"
	ActionDisconnect  = "session.disconnect"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogChat emits an audit log entry scoped to a chat.
func LogChat(ctx context.Context, action string, userID string, chatID uint, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Uint(log.FieldChatID, chatID).
		Msg(msg)
}
