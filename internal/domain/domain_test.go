package domain

import (
	"math"
	"testing"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{474, 3},
		{475, 4},
	}

	for _, tt := range tests {
		if got := LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{ProgressNotStarted, ProgressInProgress, true},
		{ProgressNotStarted, ProgressCompleted, true},
		{ProgressInProgress, ProgressInProgress, true},
		{ProgressInProgress, ProgressCompleted, true},
		{ProgressInProgress, ProgressNotStarted, false},
		{ProgressCompleted, ProgressInProgress, false},
		{ProgressCompleted, ProgressCompleted, true},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTradeCalculatePnL(t *testing.T) {
	buy := &Trade{Side: SideBuy, EntryPrice: 1.1, Quantity: 1000}
	if got := buy.CalculatePnL(1.12); math.Abs(got-20) > 1e-9 {
		t.Errorf("buy PnL = %v, want 20", got)
	}

	sell := &Trade{Side: SideSell, EntryPrice: 1.1, Quantity: 1000}
	if got := sell.CalculatePnL(1.12); math.Abs(got+20) > 1e-9 {
		t.Errorf("sell PnL = %v, want -20", got)
	}
}

func TestDemoTradeCheckStops(t *testing.T) {
	sl, tp := 1.0800, 1.1000

	buy := &DemoTrade{Side: SideBuy, StopLoss: &sl, TakeProfit: &tp}
	sell := &DemoTrade{Side: SideSell, StopLoss: &tp, TakeProfit: &sl}

	tests := []struct {
		name       string
		trade      *DemoTrade
		quote      Quote
		wantHit    bool
		wantReason string
	}{
		{"buy untouched", buy, Quote{Bid: 1.09, Ask: 1.0902}, false, ""},
		{"buy stop loss", buy, Quote{Bid: 1.0799, Ask: 1.0801}, true, CloseReasonStopLoss},
		{"buy take profit", buy, Quote{Bid: 1.1001, Ask: 1.1003}, true, CloseReasonTakeProfit},
		{"sell stop loss on ask", sell, Quote{Bid: 1.0999, Ask: 1.1001}, true, CloseReasonStopLoss},
		{"sell take profit on ask", sell, Quote{Bid: 1.0797, Ask: 1.0799}, true, CloseReasonTakeProfit},
		{"no stops", &DemoTrade{Side: SideBuy}, Quote{Bid: 2, Ask: 2}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, reason := tt.trade.CheckStops(tt.quote)
			if hit != tt.wantHit || reason != tt.wantReason {
				t.Errorf("CheckStops() = (%v, %q), want (%v, %q)", hit, reason, tt.wantHit, tt.wantReason)
			}
		})
	}
}

func TestPagination(t *testing.T) {
	p := NewPage(0, 500, 20, 100)
	if p.Page != 1 || p.Limit != 100 {
		t.Fatalf("NewPage clamp = %+v", p)
	}

	p = NewPage(3, 0, 20, 100)
	if p.Limit != 20 || p.Offset() != 40 {
		t.Fatalf("NewPage default = %+v offset %d", p, p.Offset())
	}

	meta := p.Paginate(41)
	if meta.TotalPages != 3 || meta.Total != 41 {
		t.Errorf("Paginate(41) = %+v", meta)
	}

	p = NewPage(math.MaxInt, 100, 20, 100)
	if off := p.Offset(); off < 0 || off > math.MaxInt32 {
		t.Errorf("huge page offset = %d, want within int32", off)
	}
}

func TestTradeUpdate_Apply(t *testing.T) {
	exit := 1.25
	notes := "closed at resistance"
	closed := TradeStatusClosed
	trade := &Trade{Instrument: "EURUSD", Side: SideBuy, EntryPrice: 1.2, Quantity: 2, Status: TradeStatusOpen, StrategyTags: []string{"breakout"}}

	TradeUpdate{ExitPrice: &exit, Status: &closed, Notes: &notes}.Apply(trade)

	if trade.ExitPrice == nil || *trade.ExitPrice != exit || trade.Status != TradeStatusClosed || *trade.Notes != notes {
		t.Errorf("set fields not applied: %+v", trade)
	}
	if trade.Instrument != "EURUSD" || trade.EntryPrice != 1.2 || trade.Quantity != 2 || len(trade.StrategyTags) != 1 {
		t.Errorf("untouched fields changed: %+v", trade)
	}
}

func TestProfileUpdateColumns(t *testing.T) {
	theme := "dark"
	enabled := false
	cols, vals := ProfileUpdate{Theme: &theme, NotificationsEnabled: &enabled}.Columns()

	if len(cols) != 2 || cols[0] != "theme" || cols[1] != "notifications_enabled" {
		t.Fatalf("Columns() = %v", cols)
	}
	if len(vals) != 2 {
		t.Fatalf("values = %v", vals)
	}
}
