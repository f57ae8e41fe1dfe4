package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	zlog "github.com/rs/zerolog/log"

	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/infra"
)

// handle dispatches one client frame
func (c *Client) handle(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		infra.WSMessage("in", "invalid")
		c.replyError(TypeError, "Invalid message format")
		return
	}

	switch msg.Type {
	case TypeAuth:
		c.handleAuth(msg)
	case TypeJoinRoom:
		c.handleJoin(msg)
	case TypeLeaveRoom:
		c.handleLeave(msg)
	case TypeChatMessage:
		c.handleChat(msg)
	case TypeSubscribePrices:
		c.handleSubscribe(domain.RoomPrices, TypePriceSubscriptionActive)
	case TypeSubscribeMacro:
		c.handleSubscribe(domain.RoomMacro, TypeMacroSubscriptionActive)
	default:
		infra.WSMessage("in", "unknown")
		c.replyError(TypeError, "Unknown message type")
		return
	}
	infra.WSMessage("in", msg.Type)
}

func (c *Client) handleAuth(msg inbound) {
	var p authPayload
	if len(msg.Payload) > 0 {
		_ = json.Unmarshal(msg.Payload, &p)
	}
	if p.Token == "" {
		c.replyError(TypeAuthError, "Token required")
		return
	}

	claims, err := c.hub.tokens.Parse(p.Token)
	if err != nil {
		c.replyError(TypeAuthError, "Invalid token")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	user, err := c.hub.users.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		c.replyError(TypeAuthError, "Invalid user")
		return
	}

	c.userID = user.ID
	c.username = user.Username
	c.level = user.Level

	c.reply(TypeAuthSuccess, "", map[string]interface{}{
		"userId":   user.ID,
		"username": user.Username,
		"level":    user.Level,
	})
}

// roomName reads the room from the payload, falling back to the frame's room
func roomName(msg inbound) string {
	var p roomPayload
	if len(msg.Payload) > 0 {
		_ = json.Unmarshal(msg.Payload, &p)
	}
	if p.Room == "" {
		p.Room = msg.Room
	}
	return strings.TrimSpace(p.Room)
}

func (c *Client) handleJoin(msg inbound) {
	if !c.authenticated() {
		c.replyError(TypeError, "Authentication required")
		return
	}
	room := roomName(msg)
	if room == "" {
		c.replyError(TypeError, "Room required")
		return
	}

	c.hub.join(c, room)
	c.reply(TypeRoomJoined, room, roomPayload{Room: room})

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	err := c.hub.publish(ctx, room, c.id, TypeUserJoined, map[string]string{
		"username": c.username,
		"room":     room,
	})
	if err != nil {
		zlog.Warn().Err(err).Str("room", room).Msg("Failed to announce join")
	}
}

func (c *Client) handleLeave(msg inbound) {
	room := roomName(msg)
	if room == "" || !c.hub.leave(c, room) {
		c.replyError(TypeError, "Not in room")
		return
	}

	c.reply(TypeRoomLeft, room, roomPayload{Room: room})

	if !c.authenticated() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	err := c.hub.publish(ctx, room, c.id, TypeUserLeft, map[string]string{
		"username": c.username,
		"room":     room,
	})
	if err != nil {
		zlog.Warn().Err(err).Str("room", room).Msg("Failed to announce leave")
	}
}

func (c *Client) handleChat(msg inbound) {
	if !c.authenticated() || msg.Room == "" {
		c.replyError(TypeError, "Authentication and room required")
		return
	}
	if !c.hub.isMember(c, msg.Room) {
		c.replyError(TypeError, "Join the room before sending messages")
		return
	}

	var p chatPayload
	if len(msg.Payload) > 0 {
		_ = json.Unmarshal(msg.Payload, &p)
	}
	content := strings.TrimSpace(p.Content)
	if content == "" {
		c.replyError(TypeError, "Message content required")
		return
	}
	if utf8.RuneCountInString(content) > MaxChatLength {
		c.replyError(TypeError, "Message is too long")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	saved, err := c.hub.chat.CreateMessage(ctx, c.userID, msg.Room, content)
	if err != nil {
		zlog.Error().Err(err).Str("room", msg.Room).Msg("Failed to store chat message")
		c.replyError(TypeError, "Failed to send message")
		return
	}

	if err := c.hub.publish(ctx, msg.Room, "", TypeChatMessage, saved); err != nil {
		zlog.Warn().Err(err).Str("room", msg.Room).Msg("Failed to relay chat message")
	}
}

func (c *Client) handleSubscribe(room, confirmType string) {
	if !c.authenticated() {
		c.replyError(TypeError, "Authentication required")
		return
	}
	c.hub.join(c, room)
	c.reply(confirmType, room, roomPayload{Room: room})
}
