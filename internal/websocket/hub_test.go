package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"

	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/middleware"
	"priceactiontalk/internal/service"
)

type mockUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func (m *mockUsers) add(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *mockUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

type mockChat struct {
	mu    sync.Mutex
	saved []*domain.ChatMessage
}

func (m *mockChat) CreateMessage(_ context.Context, userID uuid.UUID, room, content string) (*domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := &domain.ChatMessage{ID: uuid.New(), UserID: userID, Room: room, Content: content, Timestamp: time.Now()}
	m.saved = append(m.saved, msg)
	return msg, nil
}

type relayFixture struct {
	hub    *Hub
	url    string
	tokens *middleware.TokenService
	users  *mockUsers
	chat   *mockChat
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	tokens := middleware.NewTokenService("ws-secret", time.Hour)
	users := &mockUsers{users: make(map[uuid.UUID]*domain.User)}
	chat := &mockChat{}
	hub := NewHub(NewLocalBroker(64), tokens, users, chat, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(NewRouter(hub))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return &relayFixture{
		hub:    hub,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		tokens: tokens,
		users:  users,
		chat:   chat,
	}
}

// addUser registers an active user and returns a token for them
func (f *relayFixture) addUser(t *testing.T, username string, active bool) string {
	t.Helper()
	u := &domain.User{ID: uuid.New(), Username: username, Level: 2, IsActive: active}
	f.users.add(u)
	token, err := f.tokens.Generate(u)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

type testConn struct {
	t    *testing.T
	conn *gws.Conn
}

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Room    string          `json:"room"`
}

func (f *relayFixture) dial(t *testing.T) *testConn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial(f.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	c := &testConn{t: t, conn: conn}
	if msg := c.read(); msg.Type != TypeWelcome {
		t.Fatalf("first message = %q, want welcome", msg.Type)
	}
	return c
}

func (c *testConn) send(frame string) {
	c.t.Helper()
	if err := c.conn.WriteMessage(gws.TextMessage, []byte(frame)); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *testConn) read() received {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg received
	if err := c.conn.ReadJSON(&msg); err != nil {
		c.t.Fatalf("read: %v", err)
	}
	return msg
}

func (c *testConn) expect(msgType string) received {
	c.t.Helper()
	msg := c.read()
	if msg.Type != msgType {
		c.t.Fatalf("message type = %q, want %q (payload %s)", msg.Type, msgType, msg.Payload)
	}
	return msg
}

func (c *testConn) expectError(msgType, text string) {
	c.t.Helper()
	msg := c.expect(msgType)
	var p errorPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		c.t.Fatal(err)
	}
	if p.Message != text {
		c.t.Errorf("error message = %q, want %q", p.Message, text)
	}
}

func (c *testConn) auth(token string) {
	c.t.Helper()
	c.send(`{"type":"auth","payload":{"token":"` + token + `"}}`)
	c.expect(TypeAuthSuccess)
}

func TestRelay_Welcome(t *testing.T) {
	f := newRelayFixture(t)

	conn, _, err := gws.DefaultDialer.Dial(f.url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	c := &testConn{t: t, conn: conn}
	msg := c.read()
	if msg.Type != TypeWelcome {
		t.Fatalf("type = %q, want welcome", msg.Type)
	}

	var p map[string]string
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p["clientId"] == "" || p["message"] != WelcomeText {
		t.Errorf("unexpected welcome payload: %v", p)
	}
}

func TestRelay_ProtocolErrors(t *testing.T) {
	f := newRelayFixture(t)
	c := f.dial(t)

	t.Run("invalid format", func(t *testing.T) {
		c.send("not json")
		c.expectError(TypeError, "Invalid message format")
	})

	t.Run("unknown type", func(t *testing.T) {
		c.send(`{"type":"dance"}`)
		c.expectError(TypeError, "Unknown message type")
	})

	t.Run("chat requires auth", func(t *testing.T) {
		c.send(`{"type":"chat_message","room":"general","payload":{"content":"hi"}}`)
		c.expectError(TypeError, "Authentication and room required")
	})

	t.Run("join requires auth", func(t *testing.T) {
		c.send(`{"type":"join_room","payload":{"room":"general"}}`)
		c.expectError(TypeError, "Authentication required")
	})

	t.Run("prices require auth", func(t *testing.T) {
		c.send(`{"type":"subscribe_prices"}`)
		c.expectError(TypeError, "Authentication required")
	})

	t.Run("bad token", func(t *testing.T) {
		c.send(`{"type":"auth","payload":{"token":"garbage"}}`)
		c.expectError(TypeAuthError, "Invalid token")
	})

	t.Run("inactive user", func(t *testing.T) {
		token := f.addUser(t, "ghost", false)
		c.send(`{"type":"auth","payload":{"token":"` + token + `"}}`)
		c.expectError(TypeAuthError, "Invalid user")
	})
}

func TestRelay_RoomBroadcast(t *testing.T) {
	f := newRelayFixture(t)

	alice := f.dial(t)
	alice.auth(f.addUser(t, "alice", true))
	alice.send(`{"type":"join_room","payload":{"room":"general"}}`)
	alice.expect(TypeRoomJoined)

	bob := f.dial(t)
	bob.auth(f.addUser(t, "bob", true))
	bob.send(`{"type":"join_room","payload":{"room":"general"}}`)
	bob.expect(TypeRoomJoined)

	joined := alice.expect(TypeUserJoined)
	if !strings.Contains(string(joined.Payload), `"username":"bob"`) {
		t.Errorf("user_joined payload = %s", joined.Payload)
	}

	bob.send(`{"type":"chat_message","room":"general","payload":{"content":"  london open looks strong  "}}`)

	for name, c := range map[string]*testConn{"alice": alice, "bob": bob} {
		msg := c.expect(TypeChatMessage)
		if msg.Room != "general" || !strings.Contains(string(msg.Payload), `"london open looks strong"`) {
			t.Errorf("%s got room %q payload %s", name, msg.Room, msg.Payload)
		}
	}

	f.chat.mu.Lock()
	saved := f.chat.saved
	f.chat.mu.Unlock()
	if len(saved) != 1 || saved[0].Content != "london open looks strong" {
		t.Errorf("unexpected stored messages: %+v", saved)
	}

	bob.send(`{"type":"leave_room","payload":{"room":"general"}}`)
	bob.expect(TypeRoomLeft)
	alice.expect(TypeUserLeft)
}

func TestRelay_ChatRequiresMembership(t *testing.T) {
	f := newRelayFixture(t)

	c := f.dial(t)
	c.auth(f.addUser(t, "carol", true))
	c.send(`{"type":"chat_message","room":"general","payload":{"content":"hello"}}`)
	c.expectError(TypeError, "Join the room before sending messages")

	c.send(`{"type":"join_room","payload":{"room":"general"}}`)
	c.expect(TypeRoomJoined)
	c.send(`{"type":"chat_message","room":"general","payload":{"content":"   "}}`)
	c.expectError(TypeError, "Message content required")
}

func TestRelay_ServerBroadcast(t *testing.T) {
	f := newRelayFixture(t)

	c := f.dial(t)
	c.auth(f.addUser(t, "dave", true))
	c.send(`{"type":"subscribe_prices"}`)
	c.expect(TypePriceSubscriptionActive)

	quote := domain.Quote{Instrument: "EURUSD", Bid: 1.085, Ask: 1.0852}
	if err := f.hub.BroadcastToRoom(context.Background(), domain.RoomPrices, TypePriceUpdate, quote); err != nil {
		t.Fatal(err)
	}

	msg := c.expect(TypePriceUpdate)
	if msg.Room != domain.RoomPrices || !strings.Contains(string(msg.Payload), "EURUSD") {
		t.Errorf("unexpected price update: %+v", msg)
	}
}

type recordingBroadcaster struct {
	counts map[string]int
	fail   error
}

func (b *recordingBroadcaster) BroadcastToRoom(_ context.Context, room, msgType string, _ any) error {
	b.counts[room+"/"+msgType]++
	return b.fail
}

func TestMockFeed_Tick(t *testing.T) {
	quoter := service.NewMarketPriceService(rand.New(rand.NewSource(1)))
	gen := service.NewMockFactorGenerator(rand.New(rand.NewSource(1)))

	t.Run("relays every instrument", func(t *testing.T) {
		b := &recordingBroadcaster{counts: make(map[string]int)}
		feed := NewMockFeed(quoter, gen, b)

		for i := 0; i < 50; i++ {
			if err := feed.Tick(context.Background()); err != nil {
				t.Fatalf("tick: %v", err)
			}
		}

		if got, want := b.counts[domain.RoomPrices+"/"+MessagePriceUpdate], 50*len(quoter.Instruments()); got != want {
			t.Errorf("price updates = %d, want %d", got, want)
		}
		if macro := b.counts[domain.RoomMacro+"/"+MessageMacroUpdate]; macro >= 50 {
			t.Errorf("macro updates = %d, expected only occasional ones", macro)
		}
	})

	t.Run("reports relay failures", func(t *testing.T) {
		boom := errors.New("broker down")
		b := &recordingBroadcaster{counts: make(map[string]int), fail: boom}

		if err := NewMockFeed(quoter, gen, b).Tick(context.Background()); !errors.Is(err, boom) {
			t.Errorf("expected broker error, got %v", err)
		}
	})
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := check(r); got != tt.want {
				t.Errorf("check(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
