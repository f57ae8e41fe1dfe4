package websocket

import (
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Client is one WebSocket connection
type Client struct {
	id   string
	hub  *Hub
	conn *gws.Conn
	send chan []byte

	// rooms is guarded by hub.mu
	rooms map[string]struct{}

	// set by auth, read only by the read pump
	userID   uuid.UUID
	username string
	level    int
}

func newClient(hub *Hub, conn *gws.Conn) *Client {
	return &Client{
		id:    uuid.NewString(),
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]struct{}),
	}
}

func (c *Client) authenticated() bool {
	return c.userID != uuid.Nil
}

// readPump reads client frames until the connection fails
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if gws.IsUnexpectedCloseError(err, gws.CloseGoingAway, gws.CloseNormalClosure, gws.CloseNoStatusReceived) {
				zlog.Debug().Err(err).Str("client_id", c.id).Msg("WebSocket read failed")
			}
			return
		}
		c.handle(data)
	}
}

// writePump drains the send queue and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(gws.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(gws.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(gws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply sends a message to this client only
func (c *Client) reply(msgType, room string, payload interface{}) {
	data, err := encode(msgType, room, payload)
	if err != nil {
		zlog.Error().Err(err).Str("type", msgType).Msg("Failed to encode WebSocket message")
		return
	}
	c.hub.sendTo(c, data)
}

func (c *Client) replyError(msgType, message string) {
	c.reply(msgType, "", errorPayload{Message: message})
}
