package websocket

import (
	"encoding/json"
	"time"
)

// Client message types
const (
	TypeAuth            = "auth"
	TypeJoinRoom        = "join_room"
	TypeLeaveRoom       = "leave_room"
	TypeChatMessage     = "chat_message"
	TypeSubscribePrices = "subscribe_prices"
	TypeSubscribeMacro  = "subscribe_macro"
)

// Server message types
const (
	TypeWelcome                 = "welcome"
	TypeError                   = "error"
	TypeAuthSuccess             = "auth_success"
	TypeAuthError               = "auth_error"
	TypeRoomJoined              = "room_joined"
	TypeRoomLeft                = "room_left"
	TypeUserJoined              = "user_joined"
	TypeUserLeft                = "user_left"
	TypePriceSubscriptionActive = "price_subscription_active"
	TypeMacroSubscriptionActive = "macro_subscription_active"
	TypePriceUpdate             = "price_update"
)

// WelcomeText greets every new connection
const WelcomeText = "Connected to PriceActionTalk WebSocket"

// MaxChatLength bounds chat message content in characters
const MaxChatLength = 500

// Message is the server to client frame
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Room      string      `json:"room,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// inbound is the client to server frame
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Room    string          `json:"room"`
}

type authPayload struct {
	Token string `json:"token"`
}

type roomPayload struct {
	Room string `json:"room"`
}

type chatPayload struct {
	Content string `json:"content"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func encode(msgType, room string, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{
		Type:      msgType,
		Payload:   payload,
		Room:      room,
		Timestamp: time.Now().UTC(),
	})
}
