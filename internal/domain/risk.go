package domain

import (
	"time"

	"github.com/google/uuid"
)

// RiskSettings are a user's self-imposed trading limits
type RiskSettings struct {
	UserID                 uuid.UUID `json:"user_id"`
	MaxRiskPerTrade        float64   `json:"max_risk_per_trade"`
	MaxDailyLoss           float64   `json:"max_daily_loss"`
	MaxWeeklyLoss          float64   `json:"max_weekly_loss"`
	MaxMonthlyLoss         float64   `json:"max_monthly_loss"`
	MaxOpenTrades          int       `json:"max_open_trades"`
	MaxCorrelationExposure float64   `json:"max_correlation_exposure"`
	TradingEnabled         bool      `json:"trading_enabled"`
	AutoCloseEnabled       bool      `json:"auto_close_enabled"`
	EmergencyStopEnabled   bool      `json:"emergency_stop_enabled"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// DefaultRiskSettings returns the limits applied to users who never saved any
func DefaultRiskSettings(userID uuid.UUID) *RiskSettings {
	return &RiskSettings{
		UserID:                 userID,
		MaxRiskPerTrade:        2,
		MaxDailyLoss:           5,
		MaxWeeklyLoss:          10,
		MaxMonthlyLoss:         20,
		MaxOpenTrades:          5,
		MaxCorrelationExposure: 15,
		TradingEnabled:         true,
		AutoCloseEnabled:       false,
		EmergencyStopEnabled:   true,
	}
}

// RiskMetrics is the computed risk snapshot
type RiskMetrics struct {
	AccountBalance  float64 `json:"account_balance"`
	CurrentRisk     float64 `json:"current_risk"`
	DailyPnL        float64 `json:"daily_pnl"`
	WeeklyPnL       float64 `json:"weekly_pnl"`
	MonthlyPnL      float64 `json:"monthly_pnl"`
	OpenTradesCount int     `json:"open_trades_count"`
	PortfolioHeat   float64 `json:"portfolio_heat"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	RiskScore       float64 `json:"risk_score"`
}

// Blocker severities
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// TradeBlocker prevents trading until resolved
type TradeBlocker struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Reason      string     `json:"reason"`
	Severity    string     `json:"severity"`
	IsActive    bool       `json:"is_active"`
	TriggeredAt time.Time  `json:"triggered_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}

// EmergencyStopResult reports what an emergency stop touched
type EmergencyStopResult struct {
	JournalTradesClosed int           `json:"journal_trades_closed"`
	DemoTradesClosed    int           `json:"demo_trades_closed"`
	Blocker             *TradeBlocker `json:"blocker"`
}
