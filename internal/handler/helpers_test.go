package handler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/josesc03/bookintokback/internal/config"
	"github.com/josesc03/bookintokback/internal/domain"
	"github.com/josesc03/bookintokback/internal/hub"
	"github.com/josesc03/bookintokback/internal/repository"
	"github.com/josesc03/bookintokback/internal/service"
	"github.com/josesc03/bookintokback/pkg/middleware"
)

const (
	ownerUID     = "user-owner"
	requesterUID = "user-requester"
	strangerUID  = "user-stranger"

	ownerToken     = "owner-token"
	requesterToken = "requester-token"
	strangerToken  = "stranger-token"
)

// mapVerifier resolves fixed tokens to identities.
type mapVerifier map[string]*middleware.Identity

func (v mapVerifier) Verify(_ context.Context, token string) (*middleware.Identity, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return nil, errors.New("unknown token")
}

// testApp wires the full stack over a throwaway sqlite database behind a Gin
// engine, the same way main does.
type testApp struct {
	router    *gin.Engine
	db        *gorm.DB
	registry  *hub.Hub
	exchanges service.ExchangeService
	messaging service.MessageService
	bookID    uint
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	book := domain.Book{OwnerUID: ownerUID, Title: "The Name of the Wind"}
	require.NoError(t, db.Create(&book).Error)

	chats := repository.NewGormChatRepository(db)
	messages := repository.NewGormMessageRepository(db)
	books := repository.NewGormBookRepository(db)
	users := repository.NewGormUserRepository(db)

	registry := hub.NewHub(config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
		SendBufferSize: 16,
	})

	directory := service.NewDirectoryService(chats, messages, books, users)
	fanout := service.NewFanout(registry, chats, directory)
	exchanges := service.NewExchangeService(chats, books, users, fanout)
	messaging := service.NewMessageService(messages, fanout)

	verifier := mapVerifier{
		ownerToken:     {UserID: ownerUID, Username: "Olivia Owner"},
		requesterToken: {UserID: requesterUID, Username: "Rafa Requester"},
		strangerToken:  {UserID: strangerUID, Username: "Sam Stranger"},
	}

	router := gin.New()
	NewHTTPHandler(exchanges, messaging, directory, middleware.NewAuthMiddleware(verifier)).RegisterRoutes(router)
	NewWSHandler(registry, verifier, directory).RegisterRoutes(router)

	return &testApp{
		router:    router,
		db:        db,
		registry:  registry,
		exchanges: exchanges,
		messaging: messaging,
		bookID:    book.ID,
	}
}

// newChat opens a chat on the seeded book as requester.
func (a *testApp) newChat(t *testing.T) uint {
	t.Helper()
	chat, _, created, err := a.exchanges.CreateChat(context.Background(), requesterUID, a.bookID)
	require.NoError(t, err)
	require.True(t, created)
	return chat.ID
}
