package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is a manually logged journal entry
type Trade struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Instrument   string     `json:"instrument"`
	Side         string     `json:"side"`
	EntryPrice   float64    `json:"entry_price"`
	ExitPrice    *float64   `json:"exit_price"`
	Quantity     float64    `json:"quantity"`
	StopLoss     *float64   `json:"stop_loss"`
	TakeProfit   *float64   `json:"take_profit"`
	EntryTime    time.Time  `json:"entry_time"`
	ExitTime     *time.Time `json:"exit_time"`
	Status       string     `json:"status"`
	PnL          *float64   `json:"pnl"`
	StrategyTags []string   `json:"strategy_tags"`
	Emotions     []string   `json:"emotions"`
	Notes        *string    `json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Trade sides
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade statuses, shared by journal and demo trades
const (
	TradeStatusOpen      = "open"
	TradeStatusClosed    = "closed"
	TradeStatusCancelled = "cancelled"
)

// CalculatePnL returns the realized P&L of closing the trade at exit
func (t *Trade) CalculatePnL(exit float64) float64 {
	diff := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(t.EntryPrice))
	if t.Side == SideSell {
		diff = diff.Neg()
	}
	return diff.Mul(decimal.NewFromFloat(t.Quantity)).Round(8).InexactFloat64()
}

// TradeFilter narrows journal listings
type TradeFilter struct {
	Status     string
	Instrument string
}

// TradeUpdate is a partial journal update. Nil fields are left untouched.
type TradeUpdate struct {
	ExitPrice    *float64
	StopLoss     *float64
	TakeProfit   *float64
	ExitTime     *time.Time
	Status       *string
	StrategyTags []string
	Emotions     []string
	Notes        *string
}

// Apply writes the set fields onto t
func (u TradeUpdate) Apply(t *Trade) {
	if u.ExitPrice != nil {
		t.ExitPrice = u.ExitPrice
	}
	if u.StopLoss != nil {
		t.StopLoss = u.StopLoss
	}
	if u.TakeProfit != nil {
		t.TakeProfit = u.TakeProfit
	}
	if u.ExitTime != nil {
		t.ExitTime = u.ExitTime
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.StrategyTags != nil {
		t.StrategyTags = u.StrategyTags
	}
	if u.Emotions != nil {
		t.Emotions = u.Emotions
	}
	if u.Notes != nil {
		t.Notes = u.Notes
	}
}

// TradeAnalytics is the journal summary for a timeframe
type TradeAnalytics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	OpenTrades    int     `json:"open_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnL        float64 `json:"avg_pnl"`
	BestTrade     float64 `json:"best_trade"`
	WorstTrade    float64 `json:"worst_trade"`
	Timeframe     string  `json:"timeframe"`
}

// RiskExposure is the raw aggregate used by the risk calculator
type RiskExposure struct {
	TotalTrades     int
	OpenTrades      int
	DailyPnL        float64
	WeeklyPnL       float64
	MonthlyPnL      float64
	CurrentExposure float64
}
