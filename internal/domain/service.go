package domain

import "context"

// Broadcaster pushes server events to WebSocket rooms
type Broadcaster interface {
	// BroadcastToRoom sends a typed message to every client in room
	BroadcastToRoom(ctx context.Context, room, msgType string, payload any) error
}

// Well-known relay rooms
const (
	RoomPrices = "prices"
	RoomMacro  = "macro"
)
