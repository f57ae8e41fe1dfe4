package dto

// CreateDemoAccountRequest opens a demo account
type CreateDemoAccountRequest struct {
	InitialBalance float64 `json:"initial_balance" validate:"omitempty,gt=0,max=1000000"`
}

// PlaceDemoTradeRequest opens a demo position at market
type PlaceDemoTradeRequest struct {
	Instrument string   `json:"instrument" validate:"required"`
	Side       string   `json:"side" validate:"required,oneof=buy sell"`
	Volume     float64  `json:"volume" validate:"gt=0,max=100"`
	StopLoss   *float64 `json:"stop_loss" validate:"omitempty,gt=0"`
	TakeProfit *float64 `json:"take_profit" validate:"omitempty,gt=0"`
}
