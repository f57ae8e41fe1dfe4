package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"priceactiontalk/internal/domain"
)

// basePrices anchor the mock feed per instrument
var basePrices = map[string]float64{
	"EURUSD": 1.0892,
	"GBPUSD": 1.2734,
	"USDJPY": 149.85,
	"AUDUSD": 0.6543,
	"USDCAD": 1.3621,
	"USDCHF": 0.8934,
	"NZDUSD": 0.5987,
}

// spreads are fixed per instrument
var spreads = map[string]float64{
	"EURUSD": 0.00015,
	"GBPUSD": 0.0002,
	"USDJPY": 0.015,
	"AUDUSD": 0.00018,
	"USDCAD": 0.00022,
	"USDCHF": 0.00025,
	"NZDUSD": 0.0003,
}

const (
	defaultSpread = 0.0002
	maxVariation  = 0.005
)

// MarketPriceService produces mock quotes jittered around a base price per instrument
type MarketPriceService struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewMarketPriceService creates a new MarketPriceService. A nil rng is seeded from the clock.
func NewMarketPriceService(rng *rand.Rand) *MarketPriceService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MarketPriceService{rng: rng, now: time.Now}
}

// Quote returns a fresh bid/ask for instrument. The bid is the mid price and the ask adds the spread.
func (s *MarketPriceService) Quote(_ context.Context, instrument string) (domain.Quote, error) {
	symbol := strings.ToUpper(instrument)
	base, ok := basePrices[symbol]
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: %s", domain.ErrUnknownInstrument, instrument)
	}

	s.mu.Lock()
	variation := (s.rng.Float64() - 0.5) * 2 * maxVariation
	s.mu.Unlock()

	// quote to a tenth of a pip
	places := -PipSize(symbol).Exponent() + 1
	bid := decimal.NewFromFloat(base + variation).Round(places)
	spread := decimal.NewFromFloat(Spread(symbol))

	return domain.Quote{
		Instrument: symbol,
		Bid:        bid.InexactFloat64(),
		Ask:        bid.Add(spread).Round(places).InexactFloat64(),
		Spread:     spread.InexactFloat64(),
		Timestamp:  s.now().UTC(),
	}, nil
}

// Instruments lists every instrument with a base price
func (s *MarketPriceService) Instruments() []string {
	out := make([]string, 0, len(basePrices))
	for symbol := range basePrices {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Spread returns the fixed spread for instrument
func Spread(instrument string) float64 {
	if s, ok := spreads[strings.ToUpper(instrument)]; ok {
		return s
	}
	return defaultSpread
}

// BasePrice returns the anchor price for instrument
func BasePrice(instrument string) (float64, bool) {
	p, ok := basePrices[strings.ToUpper(instrument)]
	return p, ok
}
