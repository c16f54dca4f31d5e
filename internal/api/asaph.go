package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/asaphhq/asaph/internal/config"
	"github.com/asaphhq/asaph/internal/server"
	"github.com/asaphhq/asaph/internal/types"
	"github.com/gorilla/handlers"
)

// Store is the slice of the session store the request boundary
// consumes.
type Store interface {
	CreateAccount(email, password, name string) (types.Credentials, error)
	Login(email, password string) (types.Credentials, error)
	SignOut(id, token string) error
	GetProfile(id, token string) (types.Profile, error)
	SetProfile(id, token string, patch map[string]string) error
	CreateRoom(name, password, ownerId, token string) (types.RoomView, error)
	JoinRoom(roomId, password, accountId, token string, remember bool) (types.RoomView, error)
	LeaveRoom(id, token string) error
	SavedRooms(id, token string) ([]types.RoomView, error)
	RemoveRoom(roomId, id, token string) (bool, error)
	VerifyAccount(id, token string) (types.Account, error)
}

type AsaphApp struct {
	log            *log.Logger
	store          Store
	mux            *http.Server
	hub            *server.Hub
	allowedOrigins []string
	iceServers     []string
}

func NewAsaphApp(mux *http.ServeMux, logger *log.Logger, hub *server.Hub, st Store, cfg *config.Config) *AsaphApp {
	s := &AsaphApp{
		log:            logger,
		store:          st,
		hub:            hub,
		allowedOrigins: cfg.AllowedOrigins,
		iceServers:     cfg.IceServers,
	}

	mux.HandleFunc("POST /api/account/create", s.createAccount)
	mux.HandleFunc("POST /api/account/login", s.login)
	mux.HandleFunc("POST /api/account/signout", s.signOut)
	mux.HandleFunc("GET /api/account/profile", s.getProfile)
	mux.HandleFunc("POST /api/account/profile", s.setProfile)
	mux.HandleFunc("POST /api/session/create", s.createSession)
	mux.HandleFunc("POST /api/session/join", s.joinSession)
	mux.HandleFunc("POST /api/session/leave", s.leaveSession)
	mux.HandleFunc("GET /api/session/sessions", s.savedSessions)
	mux.HandleFunc("POST /api/session/remove", s.removeSession)
	mux.HandleFunc("GET /api/ice", s.iceConfig)
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *AsaphApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *AsaphApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
