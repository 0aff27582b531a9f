package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkrutov/leobot/internal/conversation"
	"github.com/mkrutov/leobot/internal/logging"
	"github.com/mkrutov/leobot/internal/version"
)

// Server exposes a read-only HTTP/WebSocket view of the bot's state:
// /healthz for liveness, /status for a JSON snapshot of active
// conversations, and /ws for a live event feed.
type Server struct {
	bind  string
	port  int
	store conversation.Store
	hub   *Hub
	log   *logging.Logger

	upgrader websocket.Upgrader
	http     *http.Server
}

// New creates a gateway server bound to bind:port.
func New(bind string, port int, store conversation.Store, hub *Hub, log *logging.Logger) *Server {
	return &Server{
		bind:  bind,
		port:  port,
		store: store,
		hub:   hub,
		log:   log.Sub("gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWS)
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	addr := fmt.Sprintf("%s:%d", s.bind, s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info().Str("addr", addr).Msg("gateway listening")
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("gateway server stopped")
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// statusConversation is one row of the /status snapshot.
type statusConversation struct {
	Identity  int64     `json:"identity"`
	Stage     string    `json:"stage"`
	Turns     int       `json:"turns"`
	StartedAt time.Time `json:"startedAt"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ids := s.store.Identities()
	convos := make([]statusConversation, 0, len(ids))
	for _, id := range ids {
		conv, ok := s.store.Get(id)
		if !ok {
			continue
		}
		convos = append(convos, statusConversation{
			Identity:  conv.Identity,
			Stage:     string(conv.Stage),
			Turns:     len(s.store.History(id)),
			StartedAt: conv.StartedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"conversations": convos,
		"count":         len(convos),
		"subscribers":   s.hub.Count(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := s.hub.Register(conn)
	defer func() {
		s.hub.Unregister(id)
		conn.Close()
	}()

	// The feed is one-way; reads only detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
