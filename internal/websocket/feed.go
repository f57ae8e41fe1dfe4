package websocket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/service"
)

// MacroUpdateChance is the probability that a feed tick also relays a macro score
const MacroUpdateChance = 0.1

// Message types relayed by the feed
const (
	MessagePriceUpdate = TypePriceUpdate
	MessageMacroUpdate = "macro_update"
)

// MockFeed relays mock prices, and occasionally a mock macro score, to the relay rooms
type MockFeed struct {
	quoter      domain.PriceQuoter
	generator   *service.MockFactorGenerator
	broadcaster domain.Broadcaster
	now         func() time.Time
}

// NewMockFeed creates a new MockFeed
func NewMockFeed(quoter domain.PriceQuoter, generator *service.MockFactorGenerator, broadcaster domain.Broadcaster) *MockFeed {
	return &MockFeed{
		quoter:      quoter,
		generator:   generator,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// Tick publishes one round of updates. It is meant to run as a scheduled job.
func (f *MockFeed) Tick(ctx context.Context) error {
	var errs []error

	for _, instrument := range f.quoter.Instruments() {
		quote, err := f.quoter.Quote(ctx, instrument)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := f.broadcaster.BroadcastToRoom(ctx, domain.RoomPrices, MessagePriceUpdate, quote); err != nil {
			errs = append(errs, fmt.Errorf("relay %s: %w", instrument, err))
		}
	}

	if f.generator.Chance(MacroUpdateChance) {
		bias := service.ScoreCurrency(f.generator.Pick(), f.generator.Factors(), f.now().UTC())
		if err := f.broadcaster.BroadcastToRoom(ctx, domain.RoomMacro, MessageMacroUpdate, bias); err != nil {
			errs = append(errs, fmt.Errorf("relay macro: %w", err))
		}
	}

	return errors.Join(errs...)
}
