package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// User represents a registered account
type User struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 string     `json:"email"`
	Username              string     `json:"username"`
	PasswordHash          string     `json:"-"`
	SubscriptionTier      string     `json:"subscription_tier"`
	SubscriptionStatus    *string    `json:"subscription_status,omitempty"`
	SubscriptionStartDate *time.Time `json:"subscription_start_date,omitempty"`
	StripeCustomerID      *string    `json:"-"`
	XP                    int        `json:"xp"`
	Level                 int        `json:"level"`
	IsActive              bool       `json:"is_active"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Subscription tiers
const (
	TierFree    = "free"
	TierBasic   = "basic"
	TierPremium = "premium"
)

// TierRank orders tiers so guards can compare them
func TierRank(tier string) int {
	switch tier {
	case TierPremium:
		return 2
	case TierBasic:
		return 1
	default:
		return 0
	}
}

// Profile holds optional user preferences
type Profile struct {
	UserID               uuid.UUID `json:"user_id"`
	FirstName            *string   `json:"first_name"`
	LastName             *string   `json:"last_name"`
	Bio                  *string   `json:"bio"`
	AvatarURL            *string   `json:"avatar_url"`
	Timezone             *string   `json:"timezone"`
	Theme                *string   `json:"theme"`
	Language             *string   `json:"language"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
}

// UserWithProfile is the shape returned by /me and /profile
type UserWithProfile struct {
	*User
	Profile *Profile `json:"profile"`
}

// ProfileUpdate carries the whitelisted profile columns. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName            *string
	LastName             *string
	Bio                  *string
	Timezone             *string
	Theme                *string
	Language             *string
	NotificationsEnabled *bool
}

// Columns returns the column/value pairs that are set, in a stable order
func (u ProfileUpdate) Columns() ([]string, []any) {
	var cols []string
	var vals []any
	add := func(col string, set bool, val any) {
		if set {
			cols = append(cols, col)
			vals = append(vals, val)
		}
	}
	add("first_name", u.FirstName != nil, u.FirstName)
	add("last_name", u.LastName != nil, u.LastName)
	add("bio", u.Bio != nil, u.Bio)
	add("timezone", u.Timezone != nil, u.Timezone)
	add("theme", u.Theme != nil, u.Theme)
	add("language", u.Language != nil, u.Language)
	add("notifications_enabled", u.NotificationsEnabled != nil, u.NotificationsEnabled)
	return cols, vals
}

// UserStats aggregates a user's activity across modules
type UserStats struct {
	Trading    TradingStats   `json:"trading"`
	Learning   LearningStats  `json:"learning"`
	Challenges ChallengeStats `json:"challenges"`
}

// TradingStats summarises journal trades
type TradingStats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnL        float64 `json:"avg_pnl"`
}

// LearningStats summarises module progress
type LearningStats struct {
	TotalModules     int `json:"total_modules"`
	CompletedModules int `json:"completed_modules"`
}

// ChallengeStats summarises challenge participation
type ChallengeStats struct {
	TotalChallenges     int      `json:"total_challenges"`
	CompletedChallenges int      `json:"completed_challenges"`
	AvgRank             *float64 `json:"avg_rank"`
}

// XPForLevel returns the XP needed to advance past level
func XPForLevel(level int) int {
	return int(math.Floor(100 * math.Pow(1.5, float64(level-1))))
}

// LevelForXP returns the level reached with xp accumulated experience
func LevelForXP(xp int) int {
	level, total := 1, 0
	for {
		total += XPForLevel(level)
		if total > xp {
			return level
		}
		level++
	}
}
