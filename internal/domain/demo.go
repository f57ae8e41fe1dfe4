package domain

import (
	"time"

	"github.com/google/uuid"
)

// DemoAccount is a user's simulated margin account. One per user.
type DemoAccount struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	InitialBalance float64   `json:"initial_balance"`
	Balance        float64   `json:"balance"`
	Equity         float64   `json:"equity"`
	MarginUsed     float64   `json:"margin_used"`
	FreeMargin     float64   `json:"free_margin"`
	MarginLevel    float64   `json:"margin_level"`
	TotalPnL       float64   `json:"total_pnl"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DemoAccountSummary adds trade statistics to the account
type DemoAccountSummary struct {
	*DemoAccount
	TradeCount int     `json:"trade_count"`
	OpenTrades int     `json:"open_trades"`
	WinRate    float64 `json:"win_rate"`
	DailyPnL   float64 `json:"daily_pnl"`
}

// DemoTrade is a simulated position against a DemoAccount
type DemoTrade struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Instrument   string     `json:"instrument"`
	Side         string     `json:"side"`
	Volume       float64    `json:"volume"`
	OpenPrice    float64    `json:"open_price"`
	CurrentPrice float64    `json:"current_price"`
	ExitPrice    *float64   `json:"exit_price"`
	StopLoss     *float64   `json:"stop_loss"`
	TakeProfit   *float64   `json:"take_profit"`
	Margin       float64    `json:"margin"`
	Swap         float64    `json:"swap"`
	Commission   float64    `json:"commission"`
	PnL          float64    `json:"pnl"`
	Status       string     `json:"status"`
	CloseReason  *string    `json:"close_reason"`
	ClosedAt     *time.Time `json:"closed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Close reasons recorded on demo trades
const (
	CloseReasonManual     = "manual"
	CloseReasonStopLoss   = "stop_loss"
	CloseReasonTakeProfit = "take_profit"
	CloseReasonReset      = "reset"
	CloseReasonEmergency  = "emergency_stop"
)

// CheckStops reports whether the trade's stop loss or take profit is hit by q.
// Buys are valued at the bid and sells at the ask.
func (t *DemoTrade) CheckStops(q Quote) (bool, string) {
	if t.Side == SideBuy {
		if t.StopLoss != nil && q.Bid <= *t.StopLoss {
			return true, CloseReasonStopLoss
		}
		if t.TakeProfit != nil && q.Bid >= *t.TakeProfit {
			return true, CloseReasonTakeProfit
		}
		return false, ""
	}

	if t.StopLoss != nil && q.Ask >= *t.StopLoss {
		return true, CloseReasonStopLoss
	}
	if t.TakeProfit != nil && q.Ask <= *t.TakeProfit {
		return true, CloseReasonTakeProfit
	}
	return false, ""
}

// PlaceDemoTrade is the input to opening a demo position
type PlaceDemoTrade struct {
	UserID     uuid.UUID
	Instrument string
	Side       string
	Volume     float64
	StopLoss   *float64
	TakeProfit *float64
}
