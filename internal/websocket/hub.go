package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/infra"
	"priceactiontalk/internal/middleware"
)

// TokenParser verifies access tokens
type TokenParser interface {
	Parse(token string) (*middleware.JWTClaims, error)
}

// UserLookup loads users by id
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// ChatStore persists chat messages
type ChatStore interface {
	CreateMessage(ctx context.Context, userID uuid.UUID, room, content string) (*domain.ChatMessage, error)
}

// Hub tracks connected clients and their rooms, and relays broker deliveries to them
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	broker   Broker
	tokens   TokenParser
	users    UserLookup
	chat     ChatStore
	upgrader gws.Upgrader
}

// NewHub creates a Hub publishing through broker
func NewHub(broker Broker, tokens TokenParser, users UserLookup, chat ChatStore, allowedOrigins []string) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		broker:  broker,
		tokens:  tokens,
		users:   users,
		chat:    chat,
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker allows requests without an Origin header and those from allowed.
// An empty list allows every origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Run delivers broker traffic to local clients until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	return h.broker.Run(ctx, h.deliver)
}

// ServeWS upgrades the request and starts the client pumps
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	client := newClient(h, conn)
	h.register(client)

	go client.writePump()

	client.reply(TypeWelcome, "", map[string]string{
		"clientId": client.id,
		"message":  WelcomeText,
	})

	client.readPump()
}

// BroadcastToRoom implements domain.Broadcaster
func (h *Hub) BroadcastToRoom(ctx context.Context, room, msgType string, payload any) error {
	return h.publish(ctx, room, "", msgType, payload)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) publish(ctx context.Context, room, exclude, msgType string, payload interface{}) error {
	data, err := encode(msgType, room, payload)
	if err != nil {
		return err
	}
	return h.broker.Publish(ctx, Envelope{Room: room, Exclude: exclude, Data: data})
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	infra.WSConnected()
	zlog.Debug().Str("client_id", c.id).Int("clients", total).Msg("WebSocket client connected")
}

// unregister removes c from every room and closes its send queue. Safe to call twice.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	for room := range c.rooms {
		h.removeFromRoom(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	total := len(h.clients)
	h.mu.Unlock()

	infra.WSDisconnected()
	zlog.Debug().Str("client_id", c.id).Int("clients", total).Msg("WebSocket client disconnected")
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// leave reports whether c was a member of room
func (h *Hub) leave(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := c.rooms[room]; !ok {
		return false
	}
	h.removeFromRoom(c, room)
	return true
}

// removeFromRoom requires h.mu held for writing
func (h *Hub) removeFromRoom(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) isMember(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

// deliver hands env to every local member of its room. Clients that cannot keep up are dropped.
func (h *Hub) deliver(env Envelope) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.rooms[env.Room] {
		if c.id == env.Exclude {
			continue
		}
		select {
		case c.send <- env.Data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		zlog.Warn().Str("client_id", c.id).Str("room", env.Room).Msg("Dropping slow WebSocket client")
		h.unregister(c)
		c.conn.Close()
	}
}

// sendTo queues data for c unless it has already been unregistered
func (h *Hub) sendTo(c *Client, data []byte) {
	h.mu.RLock()
	_, ok := h.clients[c]
	if ok {
		select {
		case c.send <- data:
		default:
			ok = false
		}
	}
	h.mu.RUnlock()

	if !ok {
		h.unregister(c)
	}
}

// requestTimeout bounds store calls made while handling one client message
const requestTimeout = 5 * time.Second
