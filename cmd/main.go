package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/josesc03/bookintokback/internal/client"
	"github.com/josesc03/bookintokback/internal/config"
	"github.com/josesc03/bookintokback/internal/handler"
	"github.com/josesc03/bookintokback/internal/hub"
	"github.com/josesc03/bookintokback/internal/repository"
	"github.com/josesc03/bookintokback/internal/service"
	"github.com/josesc03/bookintokback/pkg/database"
	"github.com/josesc03/bookintokback/pkg/jwt"
	"github.com/josesc03/bookintokback/pkg/log"
	"github.com/josesc03/bookintokback/pkg/middleware"

	"github.com/josesc03/bookintokback/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "bookintok-backend",
	})
	logger := log.L()
	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting bookintok backend")

	// Database (system of record for chats, exchanges, messages).
	db, err := database.New(cfg.Database.ToPkg())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db,
		&domain.User{},
		&domain.Book{},
		&domain.Chat{},
		&domain.Exchange{},
		&domain.Message{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Identity collaborator.
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("auth.jwt_secret is required")
	}
	jwtManager := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration, cfg.Auth.Issuer)
	verifier := client.NewAuthClient(jwtManager)
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	// Repositories.
	chatRepo := repository.NewGormChatRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	bookRepo := repository.NewGormBookRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	// Connection registry, views and fan-out.
	registry := hub.NewHub(cfg.WebSocket)
	directory := service.NewDirectoryService(chatRepo, messageRepo, bookRepo, userRepo)
	fanout := service.NewFanout(registry, chatRepo, directory)

	exchangeSvc := service.NewExchangeService(chatRepo, bookRepo, userRepo, fanout)
	messageSvc := service.NewMessageService(messageRepo, fanout)

	// HTTP + websocket surface.
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	handler.NewHTTPHandler(exchangeSvc, messageSvc, directory, authMiddleware).RegisterRoutes(router)
	handler.NewWSHandler(registry, verifier, directory).RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("stopped")
}
