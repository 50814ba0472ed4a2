package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/josesc03/bookintokback/internal/domain"
	"github.com/josesc03/bookintokback/internal/repository"
)

const (
	ownerUID     = "user-owner"
	requesterUID = "user-requester"
	strangerUID  = "user-stranger"
)

// env wires repositories and services over a throwaway sqlite database.
type env struct {
	db        *gorm.DB
	chats     repository.ChatRepository
	messages  repository.MessageRepository
	books     repository.BookRepository
	users     repository.UserRepository
	exchanges ExchangeService
	messaging MessageService
	directory DirectoryService
	bookID    uint
}

func newEnv(t *testing.T, notifier Notifier) *env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.User{},
		&domain.Book{},
		&domain.Chat{},
		&domain.Exchange{},
		&domain.Message{},
	))

	require.NoError(t, db.Create(&domain.User{UID: ownerUID, Name: "Olivia Owner"}).Error)
	require.NoError(t, db.Create(&domain.User{UID: requesterUID, Name: "Rafa Requester"}).Error)
	require.NoError(t, db.Create(&domain.User{UID: strangerUID, Name: "Sam Stranger"}).Error)

	book := domain.Book{OwnerUID: ownerUID, Title: "The Name of the Wind", ImageURL: "https://img.example/wind.jpg"}
	require.NoError(t, db.Create(&book).Error)

	if notifier == nil {
		notifier = NopNotifier{}
	}

	e := &env{
		db:       db,
		chats:    repository.NewGormChatRepository(db),
		messages: repository.NewGormMessageRepository(db),
		books:    repository.NewGormBookRepository(db),
		users:    repository.NewGormUserRepository(db),
		bookID:   book.ID,
	}
	e.directory = NewDirectoryService(e.chats, e.messages, e.books, e.users)
	e.exchanges = NewExchangeService(e.chats, e.books, e.users, notifier)
	e.messaging = NewMessageService(e.messages, notifier)
	return e
}

// newChat creates a chat on the seeded book and returns its id.
func (e *env) newChat(t *testing.T) uint {
	t.Helper()
	chat, _, created, err := e.exchanges.CreateChat(context.Background(), requesterUID, e.bookID)
	require.NoError(t, err)
	require.True(t, created)
	return chat.ID
}

// forceState sets a chat's exchange state directly, bypassing the state
// machine, to build arbitrary starting points.
func (e *env) forceState(t *testing.T, chatID uint, state domain.ExchangeState) {
	t.Helper()
	err := e.db.Model(&domain.Exchange{}).
		Where("chat_id = ?", chatID).
		Update("state", string(state)).Error
	require.NoError(t, err)
}
