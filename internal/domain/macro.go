package domain

import (
	"time"

	"github.com/google/uuid"
)

// Currencies tracked by the macro dashboard
var Currencies = []string{"USD", "EUR", "GBP", "JPY", "AUD", "CAD", "CHF", "NZD"}

// MacroFactors are the raw 0-100 inputs behind a heat score
type MacroFactors struct {
	COTPositioning  float64 `json:"cot_positioning"`
	RetailSentiment float64 `json:"retail_sentiment"`
	PriceMomentum   float64 `json:"price_momentum"`
	MacroSurprise   float64 `json:"macro_surprise"`

	Weights map[string]float64 `json:"weights,omitempty"`
}

// MacroBias is one scored observation for a currency
type MacroBias struct {
	ID                   uuid.UUID    `json:"id"`
	Currency             string       `json:"currency"`
	HeatScore            float64      `json:"heat_score"`
	COTScore             float64      `json:"cot_score"`
	RetailSentimentScore float64      `json:"retail_sentiment_score"`
	PriceMomentumScore   float64      `json:"price_momentum_score"`
	MacroSurpriseScore   float64      `json:"macro_surprise_score"`
	Factors              MacroFactors `json:"factors"`
	CreatedAt            time.Time    `json:"created_at"`
}

// Pair signals
const (
	SignalStrongBuy  = "STRONG_BUY"
	SignalBuy        = "BUY"
	SignalNeutral    = "NEUTRAL"
	SignalSell       = "SELL"
	SignalStrongSell = "STRONG_SELL"
)

// PairAnalysis compares two currencies' latest heat scores
type PairAnalysis struct {
	Pair          string    `json:"pair"`
	BaseCurrency  string    `json:"base_currency"`
	QuoteCurrency string    `json:"quote_currency"`
	BaseScore     float64   `json:"base_score"`
	QuoteScore    float64   `json:"quote_score"`
	PairBias      float64   `json:"pair_bias"`
	Signal        string    `json:"signal"`
	Confidence    float64   `json:"confidence"`
	LastUpdated   time.Time `json:"last_updated"`
}
