package domain

import (
	"context"
	"time"
)

// Quote is a two-sided price for an instrument
type Quote struct {
	Instrument string    `json:"instrument"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	Spread     float64   `json:"spread"`
	Timestamp  time.Time `json:"timestamp"`
}

// PriceQuoter defines the interface for fetching market prices
type PriceQuoter interface {
	// Quote returns the current price for one instrument
	Quote(ctx context.Context, instrument string) (Quote, error)

	// Instruments lists every instrument the quoter can price
	Instruments() []string
}
