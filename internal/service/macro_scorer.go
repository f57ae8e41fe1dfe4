package service

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"priceactiontalk/internal/domain"
)

// Factor weights of the heat score
const (
	WeightCOT             = 0.25
	WeightRetailSentiment = 0.15
	WeightPriceMomentum   = 0.30
	WeightMacroSurprise   = 0.30

	maxHeat = 5.0
)

// Signal thresholds on the base-minus-quote difference
const (
	strongThreshold = 2.0
	weakThreshold   = 0.5
)

// NormalizeFactor maps a 0..100 factor onto -5..+5
func NormalizeFactor(x float64) float64 {
	return (x - 50) / 50 * maxHeat
}

// HeatScore combines the four factors and clamps the result to [-5, 5]
func HeatScore(f domain.MacroFactors) float64 {
	score := NormalizeFactor(f.COTPositioning)*WeightCOT +
		NormalizeFactor(f.RetailSentiment)*WeightRetailSentiment +
		NormalizeFactor(f.PriceMomentum)*WeightPriceMomentum +
		NormalizeFactor(f.MacroSurprise)*WeightMacroSurprise

	return math.Max(-maxHeat, math.Min(maxHeat, score))
}

// ScoreCurrency builds a MacroBias observation from raw factors
func ScoreCurrency(currency string, f domain.MacroFactors, at time.Time) *domain.MacroBias {
	f.Weights = map[string]float64{
		"cot":              WeightCOT,
		"retail_sentiment": WeightRetailSentiment,
		"price_momentum":   WeightPriceMomentum,
		"macro_surprise":   WeightMacroSurprise,
	}
	return &domain.MacroBias{
		ID:                   uuid.New(),
		Currency:             currency,
		HeatScore:            round(HeatScore(f), 4),
		COTScore:             f.COTPositioning,
		RetailSentimentScore: f.RetailSentiment,
		PriceMomentumScore:   f.PriceMomentum,
		MacroSurpriseScore:   f.MacroSurprise,
		Factors:              f,
		CreatedAt:            at,
	}
}

// PairSignal labels a pair bias. Boundaries are exclusive: exactly 0.5 is NEUTRAL and exactly 2 is BUY.
func PairSignal(bias float64) string {
	switch {
	case bias > strongThreshold:
		return domain.SignalStrongBuy
	case bias > weakThreshold:
		return domain.SignalBuy
	case bias < -strongThreshold:
		return domain.SignalStrongSell
	case bias < -weakThreshold:
		return domain.SignalSell
	default:
		return domain.SignalNeutral
	}
}

// ParsePair splits a six letter pair such as EURUSD into its currencies
func ParsePair(pair string) (string, string, error) {
	p := strings.ToUpper(strings.TrimSpace(pair))
	if len(p) != 6 {
		return "", "", fmt.Errorf("%w: %s", domain.ErrInvalidPair, pair)
	}
	for _, r := range p {
		if r < 'A' || r > 'Z' {
			return "", "", fmt.Errorf("%w: %s", domain.ErrInvalidPair, pair)
		}
	}
	return p[:3], p[3:], nil
}

// AnalyzePair compares the latest observations of the base and quote currencies
func AnalyzePair(base, quote *domain.MacroBias) *domain.PairAnalysis {
	bias := round(base.HeatScore-quote.HeatScore, 4)

	updated := base.CreatedAt
	if quote.CreatedAt.After(updated) {
		updated = quote.CreatedAt
	}

	return &domain.PairAnalysis{
		Pair:          base.Currency + quote.Currency,
		BaseCurrency:  base.Currency,
		QuoteCurrency: quote.Currency,
		BaseScore:     base.HeatScore,
		QuoteScore:    quote.HeatScore,
		PairBias:      bias,
		Signal:        PairSignal(bias),
		Confidence:    round(math.Min(100, math.Abs(bias)/10*100), 2),
		LastUpdated:   updated,
	}
}

// MockFactorGenerator draws plausible factor values for development data
type MockFactorGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockFactorGenerator creates a generator. A nil rng is seeded from the clock.
func NewMockFactorGenerator(rng *rand.Rand) *MockFactorGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockFactorGenerator{rng: rng}
}

// Factors returns one random factor set
func (g *MockFactorGenerator) Factors() domain.MacroFactors {
	g.mu.Lock()
	defer g.mu.Unlock()

	return domain.MacroFactors{
		COTPositioning:  round(30+g.rng.Float64()*40, 2),
		RetailSentiment: round(20+g.rng.Float64()*60, 2),
		PriceMomentum:   round(25+g.rng.Float64()*50, 2),
		MacroSurprise:   round(35+g.rng.Float64()*30, 2),
	}
}

// Generate scores every tracked currency
func (g *MockFactorGenerator) Generate(at time.Time) []*domain.MacroBias {
	out := make([]*domain.MacroBias, 0, len(domain.Currencies))
	for _, c := range domain.Currencies {
		out = append(out, ScoreCurrency(c, g.Factors(), at))
	}
	return out
}

// Pick returns a random tracked currency
func (g *MockFactorGenerator) Pick() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return domain.Currencies[g.rng.Intn(len(domain.Currencies))]
}

// Chance reports true with probability p
func (g *MockFactorGenerator) Chance(p float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < p
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
