package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create inserts the user and an empty profile atomically
	Create(ctx context.Context, user *User) error

	// ExistsByEmailOrUsername reports whether either identifier is taken
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetWithProfile retrieves the user joined with their profile
	GetWithProfile(ctx context.Context, id uuid.UUID) (*UserWithProfile, error)

	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error

	// GetStats aggregates journal, learning and challenge activity
	GetStats(ctx context.Context, id uuid.UUID) (*UserStats, error)
}

// TradeRepository defines the interface for journal trades
type TradeRepository interface {
	Create(ctx context.Context, trade *Trade) error
	List(ctx context.Context, userID uuid.UUID, filter TradeFilter, page Page) ([]*Trade, int, error)
	GetByID(ctx context.Context, id, userID uuid.UUID) (*Trade, error)
	Update(ctx context.Context, trade *Trade) error
	Delete(ctx context.Context, id, userID uuid.UUID) error

	// Analytics summarises trades entered since the given time (nil for all time)
	Analytics(ctx context.Context, userID uuid.UUID, since *time.Time) (*TradeAnalytics, error)

	// Exposure aggregates the inputs of the risk calculator
	Exposure(ctx context.Context, userID uuid.UUID) (*RiskExposure, error)
}

// DemoRepository defines the interface for demo accounts and trades
type DemoRepository interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*DemoAccount, error)
	GetSummary(ctx context.Context, userID uuid.UUID) (*DemoAccountSummary, error)
	CreateAccount(ctx context.Context, userID uuid.UUID, initialBalance float64) (*DemoAccount, error)
	ListTrades(ctx context.Context, userID uuid.UUID, status string, page Page) ([]*DemoTrade, int, error)

	// ListOpenTradesWithStops returns every open trade carrying a stop loss or take profit
	ListOpenTradesWithStops(ctx context.Context) ([]*DemoTrade, error)

	// RunInTx executes fn inside a serializable transaction
	RunInTx(ctx context.Context, fn func(tx DemoTx) error) error
}

// DemoTx is the set of demo operations available inside a transaction
type DemoTx interface {
	// LockAccount reads the account with a row lock
	LockAccount(ctx context.Context, userID uuid.UUID) (*DemoAccount, error)
	SaveAccount(ctx context.Context, account *DemoAccount) error

	CountOpenTrades(ctx context.Context, userID uuid.UUID) (int, error)
	InsertTrade(ctx context.Context, trade *DemoTrade) error

	// LockOpenTrade reads an open trade with a row lock
	LockOpenTrade(ctx context.Context, id, userID uuid.UUID) (*DemoTrade, error)
	CloseTrade(ctx context.Context, trade *DemoTrade) error

	// CloseAllOpenTrades closes every open trade at its open price with zero P&L
	CloseAllOpenTrades(ctx context.Context, userID uuid.UUID, reason string) (int, error)

	// GetRiskSettings and HasActiveBlocker read the risk guard under the same snapshot
	GetRiskSettings(ctx context.Context, userID uuid.UUID) (*RiskSettings, error)
	HasActiveBlocker(ctx context.Context, userID uuid.UUID, severity string) (bool, error)
}

// MacroRepository defines the interface for macro bias observations
type MacroRepository interface {
	InsertBatch(ctx context.Context, biases []*MacroBias) error

	// Recent returns the newest observation per currency created after since
	Recent(ctx context.Context, since time.Time) ([]*MacroBias, error)

	// History returns observations after since, optionally for one currency
	History(ctx context.Context, currency string, since time.Time) ([]*MacroBias, error)

	// Latest returns the newest observation for currency created after since
	Latest(ctx context.Context, currency string, since time.Time) (*MacroBias, error)
}

// LearningRepository defines the interface for learning content and progress
type LearningRepository interface {
	ListPaths(ctx context.Context, userID uuid.UUID, level int) ([]*LearningPath, error)
	ListModules(ctx context.Context, userID, pathID uuid.UUID) ([]*LearningModule, error)
	ListProgress(ctx context.Context, userID uuid.UUID) ([]*ProgressEntry, error)

	// RecordProgress moves a module's progress forward and awards XP on first completion
	RecordProgress(ctx context.Context, userID, moduleID uuid.UUID, status string, score *float64) (*ProgressResult, error)
}

// CommunityRepository defines the interface for challenges and chat
type CommunityRepository interface {
	ListChallenges(ctx context.Context) ([]*Challenge, error)
	JoinChallenge(ctx context.Context, challengeID, userID uuid.UUID) error
	Leaderboard(ctx context.Context, challengeID uuid.UUID) ([]*ChallengeParticipant, error)

	// ListMessages returns the newest limit messages in chronological order
	ListMessages(ctx context.Context, room string, limit int) ([]*ChatMessage, error)
	CreateMessage(ctx context.Context, userID uuid.UUID, room, content string) (*ChatMessage, error)
}

// ForumRepository defines the interface for forum posts, replies and votes
type ForumRepository interface {
	ListPosts(ctx context.Context, filter PostFilter, page Page) ([]*ForumPost, int, error)
	CreatePost(ctx context.Context, post *ForumPost) error

	// GetPostDetail increments the view counter and returns the post with replies
	GetPostDetail(ctx context.Context, id uuid.UUID) (*ForumPostDetail, error)

	// CreateReply inserts the reply and increments the post's reply counter atomically
	CreateReply(ctx context.Context, reply *ForumReply) error

	Vote(ctx context.Context, postID, userID uuid.UUID, direction string) (*VoteResult, error)
	Categories(ctx context.Context) ([]*CategoryCount, error)
}

// RiskRepository defines the interface for risk settings and trade blockers
type RiskRepository interface {
	// GetSettings returns stored settings or the defaults
	GetSettings(ctx context.Context, userID uuid.UUID) (*RiskSettings, error)
	UpsertSettings(ctx context.Context, settings *RiskSettings) error

	ListBlockers(ctx context.Context, userID uuid.UUID) ([]*TradeBlocker, error)
	ResolveBlocker(ctx context.Context, id, userID uuid.UUID) error
	HasActiveBlocker(ctx context.Context, userID uuid.UUID, severity string) (bool, error)

	// EmergencyStop closes open trades, disables trading and records a critical blocker atomically
	EmergencyStop(ctx context.Context, userID uuid.UUID) (*EmergencyStopResult, error)
}

// SubscriptionSync carries provider state to mirror locally
type SubscriptionSync struct {
	UserID               *uuid.UUID // resolved from CustomerID when nil
	StripeSubscriptionID string
	CustomerID           string
	Plan                 string
	Status               string
	PeriodStart          *time.Time
	PeriodEnd            *time.Time
	CancelAtPeriodEnd    bool
	SessionID            string // completes the payment session when set
	PaymentIntentID      string
}

// SubscriptionRepository defines the interface for billing records
type SubscriptionRepository interface {
	CreatePaymentSession(ctx context.Context, session *PaymentSession) error
	GetPaymentSession(ctx context.Context, sessionID string, userID uuid.UUID) (*PaymentSession, error)

	LatestForUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	ActiveForUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// Sync upserts the subscription and updates the owner's tier in one transaction
	Sync(ctx context.Context, sync SubscriptionSync) error

	// MarkCancelled flags the subscription as cancelled at period end
	MarkCancelled(ctx context.Context, stripeSubscriptionID string) error

	// SetStatus updates the subscription and owner status, e.g. to past_due
	SetStatus(ctx context.Context, stripeSubscriptionID, status string) error
}
