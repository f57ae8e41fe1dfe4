package dto

import (
	"time"

	"priceactiontalk/internal/domain"
)

// CreateTradeRequest represents a new journal entry
type CreateTradeRequest struct {
	Instrument   string    `json:"instrument" validate:"required"`
	Side         string    `json:"side" validate:"required,oneof=buy sell"`
	EntryPrice   float64   `json:"entry_price" validate:"gt=0"`
	Quantity     float64   `json:"quantity" validate:"gt=0"`
	StopLoss     *float64  `json:"stop_loss" validate:"omitempty,gt=0"`
	TakeProfit   *float64  `json:"take_profit" validate:"omitempty,gt=0"`
	EntryTime    time.Time `json:"entry_time" validate:"required"`
	StrategyTags []string  `json:"strategy_tags"`
	Emotions     []string  `json:"emotions"`
	Notes        *string   `json:"notes"`
}

// UpdateTradeRequest is a partial journal update
type UpdateTradeRequest struct {
	ExitPrice    *float64   `json:"exit_price" validate:"omitempty,gt=0"`
	ExitTime     *time.Time `json:"exit_time"`
	StopLoss     *float64   `json:"stop_loss" validate:"omitempty,gt=0"`
	TakeProfit   *float64   `json:"take_profit" validate:"omitempty,gt=0"`
	StrategyTags []string   `json:"strategy_tags"`
	Emotions     []string   `json:"emotions"`
	Notes        *string    `json:"notes"`
	Status       *string    `json:"status" validate:"omitempty,oneof=open closed cancelled"`
}

// ToDomain converts the request to a trade update
func (r UpdateTradeRequest) ToDomain() domain.TradeUpdate {
	return domain.TradeUpdate{
		ExitPrice:    r.ExitPrice,
		ExitTime:     r.ExitTime,
		StopLoss:     r.StopLoss,
		TakeProfit:   r.TakeProfit,
		StrategyTags: r.StrategyTags,
		Emotions:     r.Emotions,
		Notes:        r.Notes,
		Status:       r.Status,
	}
}

// IsEmpty reports whether no field was supplied
func (r UpdateTradeRequest) IsEmpty() bool {
	return r.ExitPrice == nil && r.ExitTime == nil && r.StopLoss == nil && r.TakeProfit == nil &&
		r.StrategyTags == nil && r.Emotions == nil && r.Notes == nil && r.Status == nil
}
