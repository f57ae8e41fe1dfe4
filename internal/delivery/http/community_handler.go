package http

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	zlog "github.com/rs/zerolog/log"

	"priceactiontalk/internal/delivery/http/dto"
	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/middleware"
)

// MessageChat is the relay message type for chat messages
const MessageChat = "chat_message"

// CommunityHandler handles challenges and room chat
type CommunityHandler struct {
	communityRepo domain.CommunityRepository
	broadcaster   domain.Broadcaster
}

// NewCommunityHandler creates a new CommunityHandler. broadcaster may be nil.
func NewCommunityHandler(communityRepo domain.CommunityRepository, broadcaster domain.Broadcaster) *CommunityHandler {
	return &CommunityHandler{
		communityRepo: communityRepo,
		broadcaster:   broadcaster,
	}
}

// ListChallenges returns upcoming and active challenges
// GET /api/community/challenges
func (h *CommunityHandler) ListChallenges(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	challenges, err := h.communityRepo.ListChallenges(ctx)
	if err != nil {
		return err
	}

	return SuccessResponse(c, challenges)
}

// JoinChallenge enrolls the user in a challenge
// POST /api/community/challenges/:id/join
func (h *CommunityHandler) JoinChallenge(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	challengeID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.communityRepo.JoinChallenge(ctx, challengeID, userID); err != nil {
		return err
	}

	return SuccessMessageResponse(c, "Successfully joined challenge", nil)
}

// Leaderboard returns a challenge's ranked participants
// GET /api/community/challenges/:id/leaderboard
func (h *CommunityHandler) Leaderboard(c echo.Context) error {
	challengeID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.communityRepo.Leaderboard(ctx, challengeID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, rows)
}

// ListMessages returns a room's recent messages, oldest first
// GET /api/community/chat/:room?limit=50
func (h *CommunityHandler) ListMessages(c echo.Context) error {
	limit := queryInt(c, "limit", 50)
	if limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	messages, err := h.communityRepo.ListMessages(ctx, c.Param("room"), limit)
	if err != nil {
		return err
	}

	return SuccessResponse(c, messages)
}

// PostMessage persists a chat message and relays it to the room
// POST /api/community/chat/:room
func (h *CommunityHandler) PostMessage(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req dto.ChatMessageRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalidPayload
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := c.Validate(&req); err != nil {
		return err
	}

	room := c.Param("room")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	msg, err := h.communityRepo.CreateMessage(ctx, userID, room, req.Content)
	if err != nil {
		return err
	}

	if h.broadcaster != nil {
		if err := h.broadcaster.BroadcastToRoom(ctx, room, MessageChat, msg); err != nil {
			zlog.Warn().Err(err).Str("room", room).Msg("Failed to relay chat message")
		}
	}

	return CreatedResponse(c, msg)
}
