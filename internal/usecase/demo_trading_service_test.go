package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"priceactiontalk/internal/domain"
)

// fakeDemoStore is an in-memory DemoRepository. RunInTx works on a copy and commits on success.
// Risk reads inside a transaction go to risk.
type fakeDemoStore struct {
	accounts map[uuid.UUID]*domain.DemoAccount
	trades   map[uuid.UUID]*domain.DemoTrade
	risk     *mockRiskRepo
}

func newFakeDemoStore(risk *mockRiskRepo) *fakeDemoStore {
	return &fakeDemoStore{
		accounts: map[uuid.UUID]*domain.DemoAccount{},
		trades:   map[uuid.UUID]*domain.DemoTrade{},
		risk:     risk,
	}
}

func (f *fakeDemoStore) clone() *fakeDemoStore {
	c := newFakeDemoStore(f.risk)
	for k, v := range f.accounts {
		a := *v
		c.accounts[k] = &a
	}
	for k, v := range f.trades {
		t := *v
		c.trades[k] = &t
	}
	return c
}

func (f *fakeDemoStore) GetAccount(_ context.Context, userID uuid.UUID) (*domain.DemoAccount, error) {
	a, ok := f.accounts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeDemoStore) GetSummary(ctx context.Context, userID uuid.UUID) (*domain.DemoAccountSummary, error) {
	a, err := f.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.DemoAccountSummary{DemoAccount: a}, nil
}

func (f *fakeDemoStore) CreateAccount(_ context.Context, userID uuid.UUID, balance float64) (*domain.DemoAccount, error) {
	if _, ok := f.accounts[userID]; ok {
		return nil, domain.ErrDemoAccountExists
	}
	a := &domain.DemoAccount{
		ID:             uuid.New(),
		UserID:         userID,
		InitialBalance: balance,
		Balance:        balance,
		Equity:         balance,
		FreeMargin:     balance,
	}
	f.accounts[userID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeDemoStore) ListTrades(_ context.Context, userID uuid.UUID, status string, _ domain.Page) ([]*domain.DemoTrade, int, error) {
	var out []*domain.DemoTrade
	for _, t := range f.trades {
		if t.UserID == userID && (status == "" || t.Status == status) {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

func (f *fakeDemoStore) ListOpenTradesWithStops(context.Context) ([]*domain.DemoTrade, error) {
	var out []*domain.DemoTrade
	for _, t := range f.trades {
		if t.Status == domain.TradeStatusOpen && (t.StopLoss != nil || t.TakeProfit != nil) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeDemoStore) RunInTx(_ context.Context, fn func(tx domain.DemoTx) error) error {
	work := f.clone()
	if err := fn(work); err != nil {
		return err
	}
	f.accounts = work.accounts
	f.trades = work.trades
	return nil
}

func (f *fakeDemoStore) LockAccount(ctx context.Context, userID uuid.UUID) (*domain.DemoAccount, error) {
	return f.GetAccount(ctx, userID)
}

func (f *fakeDemoStore) SaveAccount(_ context.Context, a *domain.DemoAccount) error {
	cp := *a
	f.accounts[a.UserID] = &cp
	return nil
}

func (f *fakeDemoStore) CountOpenTrades(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, t := range f.trades {
		if t.UserID == userID && t.Status == domain.TradeStatusOpen {
			n++
		}
	}
	return n, nil
}

func (f *fakeDemoStore) InsertTrade(_ context.Context, t *domain.DemoTrade) error {
	t.ID = uuid.New()
	cp := *t
	f.trades[t.ID] = &cp
	return nil
}

func (f *fakeDemoStore) LockOpenTrade(_ context.Context, id, userID uuid.UUID) (*domain.DemoTrade, error) {
	t, ok := f.trades[id]
	if !ok || t.UserID != userID || t.Status != domain.TradeStatusOpen {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeDemoStore) CloseTrade(_ context.Context, t *domain.DemoTrade) error {
	cp := *t
	f.trades[t.ID] = &cp
	return nil
}

func (f *fakeDemoStore) CloseAllOpenTrades(_ context.Context, userID uuid.UUID, reason string) (int, error) {
	n := 0
	for _, t := range f.trades {
		if t.UserID == userID && t.Status == domain.TradeStatusOpen {
			exit := t.OpenPrice
			r := reason
			t.Status = domain.TradeStatusClosed
			t.ExitPrice = &exit
			t.PnL = 0
			t.CloseReason = &r
			n++
		}
	}
	return n, nil
}

func (f *fakeDemoStore) GetRiskSettings(ctx context.Context, userID uuid.UUID) (*domain.RiskSettings, error) {
	return f.risk.GetSettings(ctx, userID)
}

func (f *fakeDemoStore) HasActiveBlocker(ctx context.Context, userID uuid.UUID, severity string) (bool, error) {
	return f.risk.HasActiveBlocker(ctx, userID, severity)
}

// mockRiskRepo is a function-field RiskRepository
type mockRiskRepo struct {
	getSettingsFunc      func(ctx context.Context, userID uuid.UUID) (*domain.RiskSettings, error)
	hasActiveBlockerFunc func(ctx context.Context, userID uuid.UUID, severity string) (bool, error)
}

func (m *mockRiskRepo) GetSettings(ctx context.Context, userID uuid.UUID) (*domain.RiskSettings, error) {
	if m.getSettingsFunc != nil {
		return m.getSettingsFunc(ctx, userID)
	}
	return domain.DefaultRiskSettings(userID), nil
}

func (m *mockRiskRepo) UpsertSettings(context.Context, *domain.RiskSettings) error { return nil }

func (m *mockRiskRepo) ListBlockers(context.Context, uuid.UUID) ([]*domain.TradeBlocker, error) {
	return nil, nil
}

func (m *mockRiskRepo) ResolveBlocker(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (m *mockRiskRepo) HasActiveBlocker(ctx context.Context, userID uuid.UUID, severity string) (bool, error) {
	if m.hasActiveBlockerFunc != nil {
		return m.hasActiveBlockerFunc(ctx, userID, severity)
	}
	return false, nil
}

func (m *mockRiskRepo) EmergencyStop(context.Context, uuid.UUID) (*domain.EmergencyStopResult, error) {
	return &domain.EmergencyStopResult{}, nil
}

// fixedQuoter returns preset quotes
type fixedQuoter struct {
	quotes map[string]domain.Quote
}

func (q *fixedQuoter) Quote(_ context.Context, instrument string) (domain.Quote, error) {
	quote, ok := q.quotes[instrument]
	if !ok {
		return domain.Quote{}, domain.ErrUnknownInstrument
	}
	return quote, nil
}

func (q *fixedQuoter) Instruments() []string {
	out := make([]string, 0, len(q.quotes))
	for k := range q.quotes {
		out = append(out, k)
	}
	return out
}

func (q *fixedQuoter) set(instrument string, bid, spread float64) {
	q.quotes[instrument] = domain.Quote{Instrument: instrument, Bid: bid, Ask: bid + spread, Spread: spread, Timestamp: time.Now()}
}

func newDemoFixture(t *testing.T, balance float64) (*DemoTradingService, *fakeDemoStore, *fixedQuoter, *mockRiskRepo, uuid.UUID) {
	t.Helper()
	risk := &mockRiskRepo{}
	store := newFakeDemoStore(risk)
	quoter := &fixedQuoter{quotes: map[string]domain.Quote{}}
	quoter.set("EURUSD", 1.1000, 0.0002)

	userID := uuid.New()
	if _, err := store.CreateAccount(context.Background(), userID, balance); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return NewDemoTradingService(store, quoter), store, quoter, risk, userID
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestDemoTradingService_PlaceTrade(t *testing.T) {
	t.Run("reserves margin", func(t *testing.T) {
		svc, store, _, _, userID := newDemoFixture(t, 10000)

		trade, margin, err := svc.PlaceTrade(context.Background(), domain.PlaceDemoTrade{
			UserID: userID, Instrument: "EURUSD", Side: domain.SideBuy, Volume: 0.5,
		})
		if err != nil {
			t.Fatalf("PlaceTrade failed: %v", err)
		}

		// Buy fills at the ask: 1.1002 * 0.5 * 100000 / 100
		if !near(trade.OpenPrice, 1.1002) || !near(margin, 550.10) {
			t.Errorf("open price %v margin %v", trade.OpenPrice, margin)
		}

		a := store.accounts[userID]
		if !near(a.MarginUsed, 550.10) || !near(a.FreeMargin, 9449.90) || !near(a.Balance, 10000) {
			t.Errorf("unexpected account after place: %+v", a)
		}
	})

	t.Run("insufficient margin", func(t *testing.T) {
		svc, store, _, _, userID := newDemoFixture(t, 1000)

		_, _, err := svc.PlaceTrade(context.Background(), domain.PlaceDemoTrade{
			UserID: userID, Instrument: "EURUSD", Side: domain.SideBuy, Volume: 1,
		})
		if !errors.Is(err, domain.ErrInsufficientMargin) {
			t.Fatalf("expected ErrInsufficientMargin, got %v", err)
		}
		if len(store.trades) != 0 || store.accounts[userID].MarginUsed != 0 {
			t.Error("expected no state change")
		}
	})

	t.Run("no account", func(t *testing.T) {
		svc, _, _, _, _ := newDemoFixture(t, 1000)
		_, _, err := svc.PlaceTrade(context.Background(), domain.PlaceDemoTrade{
			UserID: uuid.New(), Instrument: "EURUSD", Side: domain.SideSell, Volume: 0.01,
		})
		if !errors.Is(err, domain.ErrDemoAccountNotFound) {
			t.Errorf("expected ErrDemoAccountNotFound, got %v", err)
		}
	})

	t.Run("unknown instrument", func(t *testing.T) {
		svc, _, _, _, userID := newDemoFixture(t, 1000)
		_, _, err := svc.PlaceTrade(context.Background(), domain.PlaceDemoTrade{
			UserID: userID, Instrument: "XXXYYY", Side: domain.SideBuy, Volume: 0.01,
		})
		if !errors.Is(err, domain.ErrUnknownInstrument) {
			t.Errorf("expected ErrUnknownInstrument, got %v", err)
		}
	})

	t.Run("trading disabled", func(t *testing.T) {
		svc, _, _, risk, userID := newDemoFixture(t, 10000)
		risk.getSettingsFunc = func(_ context.Context, id uuid.UUID) (*domain.RiskSettings, error) {
			s := domain.DefaultRiskSettings(id)
			s.TradingEnabled = false
			return s, nil
		}

		_, _, err := svc.PlaceTrade(context.Background(), domain.PlaceDemoTrade{
			UserID: userID, Instrument: "EURUSD", Side: domain.SideBuy, Volume: 0.01,
		})
		if !errors.Is(err, domain.ErrTradingDisabled) {
			t.Errorf("expected ErrTradingDisabled, got %v", err)
		}
	})

	t.Run("missing account reported before risk guard", func(t *testing.T) {
		svc, _, _, risk, _ := newDemoFixture(t, 10000)
		risk.getSettingsFunc = func(_ context.Context, id uuid.UUID) (*domain.RiskSettings, error) {
			s := domain.DefaultRiskSettings(id)
			s.TradingEnabled = false
			return s, nil
		}

		_, _, err := svc.PlaceTrade(context.Background(), domain.PlaceDemoTrade{
			UserID: uuid.New(), Instrument: "EURUSD", Side: domain.SideBuy, Volume: 0.01,
		})
		if !errors.Is(err, domain.ErrDemoAccountNotFound) {
			t.Errorf("expected ErrDemoAccountNotFound, got %v", err)
		}
	})

	t.Run("critical blocker", func(t *testing.T) {
		svc, _, _, risk, userID := newDemoFixture(t, 10000)
		risk.hasActiveBlockerFunc = func(_ context.Context, _ uuid.UUID, severity string) (bool, error) {
			return severity == domain.SeverityCritical, nil
		}

		_, _, err := svc.PlaceTrade(context.Background(), domain.PlaceDemoTrade{
			UserID: userID, Instrument: "EURUSD", Side: domain.SideBuy, Volume: 0.01,
		})
		if !errors.Is(err, domain.ErrTradingDisabled) {
			t.Errorf("expected ErrTradingDisabled, got %v", err)
		}
	})

	t.Run("max open trades", func(t *testing.T) {
		svc, _, _, risk, userID := newDemoFixture(t, 10000)
		risk.getSettingsFunc = func(_ context.Context, id uuid.UUID) (*domain.RiskSettings, error) {
			s := domain.DefaultRiskSettings(id)
			s.MaxOpenTrades = 1
			return s, nil
		}

		req := domain.PlaceDemoTrade{UserID: userID, Instrument: "EURUSD", Side: domain.SideBuy, Volume: 0.01}
		if _, _, err := svc.PlaceTrade(context.Background(), req); err != nil {
			t.Fatalf("first trade failed: %v", err)
		}
		if _, _, err := svc.PlaceTrade(context.Background(), req); !errors.Is(err, domain.ErrMaxOpenTrades) {
			t.Errorf("expected ErrMaxOpenTrades, got %v", err)
		}
	})
}

func TestDemoTradingService_CloseTrade(t *testing.T) {
	t.Run("credits pnl and releases margin", func(t *testing.T) {
		svc, store, quoter, _, userID := newDemoFixture(t, 10000)
		ctx := context.Background()

		trade, margin, err := svc.PlaceTrade(ctx, domain.PlaceDemoTrade{
			UserID: userID, Instrument: "EURUSD", Side: domain.SideBuy, Volume: 1,
		})
		if err != nil {
			t.Fatalf("PlaceTrade failed: %v", err)
		}

		// Opened at ask 1.1002, exits at bid 1.1022: 20 pips on one lot
		quoter.set("EURUSD", 1.1022, 0.0002)

		closed, err := svc.CloseTrade(ctx, userID, trade.ID)
		if err != nil {
			t.Fatalf("CloseTrade failed: %v", err)
		}

		if closed.Status != domain.TradeStatusClosed || closed.CloseReason == nil || *closed.CloseReason != domain.CloseReasonManual {
			t.Errorf("unexpected closed trade: %+v", closed)
		}
		if !near(closed.PnL, 200) {
			t.Errorf("pnl = %v, want 200", closed.PnL)
		}

		a := store.accounts[userID]
		if !near(a.Balance, 10200) || !near(a.Equity, 10200) || !near(a.TotalPnL, 200) {
			t.Errorf("unexpected balances: %+v", a)
		}
		if a.MarginUsed != 0 || !near(a.FreeMargin, 10200) || a.MarginLevel != 0 {
			t.Errorf("expected margin released (was %v): %+v", margin, a)
		}
	})

	t.Run("already closed", func(t *testing.T) {
		svc, _, _, _, userID := newDemoFixture(t, 10000)
		ctx := context.Background()

		trade, _, err := svc.PlaceTrade(ctx, domain.PlaceDemoTrade{
			UserID: userID, Instrument: "EURUSD", Side: domain.SideSell, Volume: 0.1,
		})
		if err != nil {
			t.Fatalf("PlaceTrade failed: %v", err)
		}
		if _, err := svc.CloseTrade(ctx, userID, trade.ID); err != nil {
			t.Fatalf("first close failed: %v", err)
		}
		if _, err := svc.CloseTrade(ctx, userID, trade.ID); !errors.Is(err, domain.ErrDemoTradeNotFound) {
			t.Errorf("expected ErrDemoTradeNotFound, got %v", err)
		}
	})
}

func TestDemoTradingService_ResetAccount(t *testing.T) {
	svc, store, quoter, _, userID := newDemoFixture(t, 5000)
	ctx := context.Background()

	trade, _, err := svc.PlaceTrade(ctx, domain.PlaceDemoTrade{
		UserID: userID, Instrument: "EURUSD", Side: domain.SideBuy, Volume: 0.1,
	})
	if err != nil {
		t.Fatalf("PlaceTrade failed: %v", err)
	}
	second, _, err := svc.PlaceTrade(ctx, domain.PlaceDemoTrade{
		UserID: userID, Instrument: "EURUSD", Side: domain.SideBuy, Volume: 0.1,
	})
	if err != nil {
		t.Fatalf("PlaceTrade failed: %v", err)
	}
	quoter.set("EURUSD", 1.0900, 0.0002)
	if _, err := svc.CloseTrade(ctx, userID, trade.ID); err != nil {
		t.Fatalf("CloseTrade failed: %v", err)
	}

	account, closed, err := svc.ResetAccount(ctx, userID)
	if err != nil {
		t.Fatalf("ResetAccount failed: %v", err)
	}
	if closed != 1 {
		t.Errorf("closed = %d, want 1", closed)
	}
	if account.Balance != 5000 || account.Equity != 5000 || account.MarginUsed != 0 || account.FreeMargin != 5000 || account.TotalPnL != 0 {
		t.Errorf("unexpected account after reset: %+v", account)
	}

	st := store.trades[second.ID]
	if st.Status != domain.TradeStatusClosed || st.PnL != 0 || *st.CloseReason != domain.CloseReasonReset {
		t.Errorf("unexpected reset trade: %+v", st)
	}
}

func TestDemoTradingService_CheckStops(t *testing.T) {
	svc, store, quoter, _, userID := newDemoFixture(t, 10000)
	ctx := context.Background()

	sl := 1.0950
	tp := 1.1100
	hit, _, err := svc.PlaceTrade(ctx, domain.PlaceDemoTrade{
		UserID: userID, Instrument: "EURUSD", Side: domain.SideBuy, Volume: 0.1, StopLoss: &sl,
	})
	if err != nil {
		t.Fatalf("PlaceTrade failed: %v", err)
	}
	untouched, _, err := svc.PlaceTrade(ctx, domain.PlaceDemoTrade{
		UserID: userID, Instrument: "EURUSD", Side: domain.SideBuy, Volume: 0.1, TakeProfit: &tp,
	})
	if err != nil {
		t.Fatalf("PlaceTrade failed: %v", err)
	}

	quoter.set("EURUSD", 1.0940, 0.0002)
	if err := svc.CheckStops(ctx); err != nil {
		t.Fatalf("CheckStops failed: %v", err)
	}

	closed := store.trades[hit.ID]
	if closed.Status != domain.TradeStatusClosed || *closed.CloseReason != domain.CloseReasonStopLoss {
		t.Errorf("expected stop loss close, got %+v", closed)
	}
	if closed.ExitPrice == nil || !near(*closed.ExitPrice, 1.0940) {
		t.Errorf("expected exit at bid, got %v", closed.ExitPrice)
	}
	if store.trades[untouched.ID].Status != domain.TradeStatusOpen {
		t.Error("expected take-profit trade to stay open")
	}

	// 62 pips lost on 0.1 lot
	if a := store.accounts[userID]; !near(a.Balance, 10000-62) {
		t.Errorf("balance = %v, want %v", a.Balance, 10000-62.0)
	}
}
