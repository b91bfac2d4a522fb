package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/villagehub/chatcore/internal/config"
	"github.com/villagehub/chatcore/internal/repository"
	"github.com/villagehub/chatcore/internal/repository/cache"
	"github.com/villagehub/chatcore/internal/repository/database"
	"github.com/villagehub/chatcore/internal/service"
)

type Option func(*Server)

func WithMigrateDown(m func() error) Option {
	return func(s *Server) {
		s.migrateDown = m
	}
}

type Server struct {
	router      *http.ServeMux
	migrateDown func() error
}

func NewServer(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		router: http.NewServeMux(),
	}

	for _, opt := range opts {
		opt(s)
	}

	msgRepository := repository.NewMessageRepo(database.Client())
	memberRepository := repository.NewMemberRepo(database.Client())
	friendRepository := repository.NewFriendshipRepo(database.Client())
	presenceRepository := repository.NewPresenceRepo(cache.Client())
	typingRepository := repository.NewTypingRepo(cache.Client(), cfg.Chat.TypingTTL())
	connRepository := repository.NewConnectionRepo(cache.Client())

	timeout := cfg.Chat.OpTimeout()
	identitySrv := service.NewIdentityService(memberRepository, presenceRepository)
	friendSrv := service.NewFriendshipService(friendRepository, memberRepository, connRepository, timeout)
	msgSrv := service.NewMessageService(msgRepository, memberRepository, typingRepository, connRepository, timeout)
	typingSrv := service.NewTypingService(typingRepository, connRepository, cfg.Chat.TypingTTL())
	roomSrv := service.NewRoomService(msgRepository, typingRepository, presenceRepository, connRepository, timeout)
	sessionSrv := service.NewSessionService(roomSrv, msgSrv, typingSrv, presenceRepository, friendRepository, msgRepository, connRepository)

	h := NewHandler(friendSrv, roomSrv, msgSrv, sessionSrv, memberRepository, presenceRepository)
	s.setupRoutes(h, cfg.Auth.JWTSecret, identitySrv)

	return s
}

func (s *Server) setupRoutes(h *Handler, secret string, identitySrv service.IdentityServiceIn) {
	auth := IdentityMiddleware(secret, identitySrv)

	s.router.Handle("/ws", auth(http.HandlerFunc(h.handleWS)))

	s.router.Handle("GET /rooms", auth(http.HandlerFunc(h.handleRooms)))
	s.router.Handle("POST /rooms/{counterpart_id}/open", auth(http.HandlerFunc(h.handleOpenRoom)))
	s.router.Handle("GET /channels/{counterpart_id}/messages", auth(http.HandlerFunc(h.handleChannelMessages)))
	s.router.Handle("POST /friends/requests", auth(http.HandlerFunc(h.handleSendFriendRequest)))
	s.router.Handle("POST /friends/requests/{sender_id}/accept", auth(http.HandlerFunc(h.handleAcceptFriendRequest)))
	s.router.Handle("POST /friends/requests/{sender_id}/reject", auth(http.HandlerFunc(h.handleRejectFriendRequest)))
	s.router.Handle("GET /friends/requests/incoming", auth(http.HandlerFunc(h.handleIncomingRequests)))
	s.router.Handle("GET /friends/requests/outgoing", auth(http.HandlerFunc(h.handleOutgoingRequests)))
	s.router.Handle("GET /friends", auth(http.HandlerFunc(h.handleFriends)))
	s.router.Handle("DELETE /friends/{other_id}", auth(http.HandlerFunc(h.handleUnfriend)))
	s.router.Handle("GET /members", auth(http.HandlerFunc(h.handleSearchMembers)))
	s.router.Handle("GET /presence/{member_id}", auth(http.HandlerFunc(h.handleGetPresence)))
}

func (s *Server) Run(addr string) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to start server", "error", err)
			return
		}
	}()
	log.Printf("Server is running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit

	ctx, shutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdown()

	if s.migrateDown != nil {
		if err := s.migrateDown(); err != nil {
			slog.Warn("Failed to migrate down", "error", err)
		}
		slog.Info("Migrations down")
	}

	slog.Info("Server exited")
	return server.Shutdown(ctx)
}
