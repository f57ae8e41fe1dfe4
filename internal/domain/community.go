package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Challenge statuses
const (
	ChallengeUpcoming  = "upcoming"
	ChallengeActive    = "active"
	ChallengeCompleted = "completed"
)

// Challenge is a time-boxed trading competition
type Challenge struct {
	ID               uuid.UUID       `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Status           string          `json:"status"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
	MaxParticipants  *int            `json:"max_participants"`
	Rules            json.RawMessage `json:"rules"`
	Prize            *string         `json:"prize"`
	ParticipantCount int             `json:"participant_count"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ChallengeParticipant is a leaderboard row
type ChallengeParticipant struct {
	ID          uuid.UUID `json:"id"`
	ChallengeID uuid.UUID `json:"challenge_id"`
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	Level       int       `json:"level"`
	FinalScore  *float64  `json:"final_score"`
	Rank        *int      `json:"rank"`
	Status      string    `json:"status"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ChatMessage is a persisted room message
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Level     int       `json:"level"`
	Room      string    `json:"room"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
