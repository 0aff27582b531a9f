package gateway

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mkrutov/leobot/internal/logging"
)

// Event is one conversation lifecycle notification pushed to subscribers.
type Event struct {
	Seq       int64     `json:"seq"`
	Type      string    `json:"type"` // "conversation_started" | "reply_sent"
	Identity  int64     `json:"identity"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// client is one subscribed WebSocket connection.
type client struct {
	id   string
	sock *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.WriteJSON(e)
}

// Hub fans conversation events out to WebSocket subscribers. It implements
// orchestrator.Events; broadcasting never blocks message handling — dead
// connections are dropped on write failure.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	seq     atomic.Int64
	log     *logging.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logging.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     log.Sub("gateway.hub"),
	}
}

// Register adds a connection to the hub and returns its id.
func (h *Hub) Register(conn *websocket.Conn) string {
	c := &client{id: uuid.New().String(), sock: conn}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.log.Debug().Str("connId", c.id).Msg("subscriber connected")
	return c.id
}

// Unregister removes a connection from the hub.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ConversationStarted implements orchestrator.Events.
func (h *Hub) ConversationStarted(identity int64) {
	h.broadcast(Event{Type: "conversation_started", Identity: identity})
}

// ReplySent implements orchestrator.Events.
func (h *Hub) ReplySent(identity int64, text string) {
	h.broadcast(Event{Type: "reply_sent", Identity: identity, Text: text})
}

func (h *Hub) broadcast(e Event) {
	e.Seq = h.seq.Add(1)
	e.Timestamp = time.Now()

	h.mu.RLock()
	subs := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		subs = append(subs, c)
	}
	h.mu.RUnlock()

	for _, c := range subs {
		if err := c.send(e); err != nil {
			h.log.Debug().Err(err).Str("connId", c.id).Msg("dropping dead subscriber")
			c.sock.Close()
			h.Unregister(c.id)
		}
	}
}
