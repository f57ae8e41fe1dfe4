package service

import (
	"math"
	"testing"

	"priceactiontalk/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPipSize(t *testing.T) {
	tests := map[string]string{
		"EURUSD": "0.0001",
		"USDJPY": "0.01",
		"usdjpy": "0.01",
		"GBPJPY": "0.01",
	}
	for instrument, want := range tests {
		if got := PipSize(instrument).String(); got != want {
			t.Errorf("PipSize(%s) = %s, want %s", instrument, got, want)
		}
	}
}

func TestRequiredMargin(t *testing.T) {
	tests := []struct {
		volume, price, want float64
	}{
		{0.1, 1.0894, 108.94},
		{1, 1.0892, 1089.2},
		{1, 149.85, 149850},
		{0.01, 0.6543, 6.54},
	}
	for _, tt := range tests {
		if got := RequiredMargin(tt.volume, tt.price); !almostEqual(got, tt.want) {
			t.Errorf("RequiredMargin(%v, %v) = %v, want %v", tt.volume, tt.price, got, tt.want)
		}
	}
}

func TestOpenAndExitPrice(t *testing.T) {
	q := domain.Quote{Bid: 1.0892, Ask: 1.08935}

	if got := OpenPrice(domain.SideBuy, q); got != q.Ask {
		t.Errorf("buy opens at %v, want ask %v", got, q.Ask)
	}
	if got := OpenPrice(domain.SideSell, q); got != q.Bid {
		t.Errorf("sell opens at %v, want bid %v", got, q.Bid)
	}
	if got := ExitPrice(domain.SideBuy, q); got != q.Bid {
		t.Errorf("buy exits at %v, want bid %v", got, q.Bid)
	}
	if got := ExitPrice(domain.SideSell, q); got != q.Ask {
		t.Errorf("sell exits at %v, want ask %v", got, q.Ask)
	}
}

func TestCalculatePnL(t *testing.T) {
	tests := []struct {
		name  string
		trade domain.DemoTrade
		exit  float64
		want  float64
	}{
		{
			name:  "buy winner",
			trade: domain.DemoTrade{Instrument: "EURUSD", Side: domain.SideBuy, Volume: 1, OpenPrice: 1.08935},
			exit:  1.091,
			want:  165,
		},
		{
			name:  "sell loser",
			trade: domain.DemoTrade{Instrument: "EURUSD", Side: domain.SideSell, Volume: 0.5, OpenPrice: 1.0892},
			exit:  1.0902,
			want:  -50,
		},
		{
			name:  "jpy pair with costs",
			trade: domain.DemoTrade{Instrument: "USDJPY", Side: domain.SideBuy, Volume: 0.2, OpenPrice: 149.85, Commission: 2, Swap: 0.5},
			exit:  150.10,
			want:  47.5,
		},
		{
			name:  "flat",
			trade: domain.DemoTrade{Instrument: "GBPUSD", Side: domain.SideBuy, Volume: 3, OpenPrice: 1.2734},
			exit:  1.2734,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculatePnL(&tt.trade, tt.exit); !almostEqual(got, tt.want) {
				t.Errorf("CalculatePnL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func newAccount(balance float64) *domain.DemoAccount {
	return &domain.DemoAccount{
		InitialBalance: balance,
		Balance:        balance,
		Equity:         balance,
		FreeMargin:     balance,
	}
}

func TestReserveMargin(t *testing.T) {
	acct := newAccount(10000)
	ReserveMargin(acct, 1000)

	if acct.MarginUsed != 1000 || acct.FreeMargin != 9000 {
		t.Fatalf("after reserve used=%v free=%v, want 1000/9000", acct.MarginUsed, acct.FreeMargin)
	}
	if acct.MarginLevel != 1000 {
		t.Errorf("MarginLevel = %v, want 1000", acct.MarginLevel)
	}
	if acct.Balance != 10000 || acct.Equity != 10000 {
		t.Errorf("reserve must not touch balance/equity: %+v", acct)
	}
}

func TestSettleClose(t *testing.T) {
	t.Run("profit releases margin and credits pnl", func(t *testing.T) {
		acct := newAccount(10000)
		ReserveMargin(acct, 1000)
		SettleClose(acct, 150, 1000)

		if acct.Balance != 10150 || acct.Equity != 10150 || acct.TotalPnL != 150 {
			t.Errorf("balance/equity/total = %v/%v/%v, want 10150/10150/150", acct.Balance, acct.Equity, acct.TotalPnL)
		}
		if acct.MarginUsed != 0 || acct.FreeMargin != 10150 || acct.MarginLevel != 0 {
			t.Errorf("used/free/level = %v/%v/%v, want 0/10150/0", acct.MarginUsed, acct.FreeMargin, acct.MarginLevel)
		}
	})

	t.Run("loss with another position still open", func(t *testing.T) {
		acct := newAccount(10000)
		ReserveMargin(acct, 500)
		ReserveMargin(acct, 1500)
		SettleClose(acct, -200, 500)

		if acct.Balance != 9800 || acct.Equity != 9800 {
			t.Errorf("balance/equity = %v/%v, want 9800", acct.Balance, acct.Equity)
		}
		if acct.MarginUsed != 1500 || acct.FreeMargin != 8300 {
			t.Errorf("used/free = %v/%v, want 1500/8300", acct.MarginUsed, acct.FreeMargin)
		}
	})

	t.Run("never goes below zero used margin", func(t *testing.T) {
		acct := newAccount(1000)
		SettleClose(acct, 0, 50)
		if acct.MarginUsed != 0 {
			t.Errorf("MarginUsed = %v, want 0", acct.MarginUsed)
		}
	})
}

func TestHasFreeMargin(t *testing.T) {
	acct := newAccount(100)
	if !HasFreeMargin(acct, 100) {
		t.Error("margin equal to free margin should be accepted")
	}
	if HasFreeMargin(acct, 100.01) {
		t.Error("margin above free margin should be rejected")
	}
}

func TestResetAccount(t *testing.T) {
	acct := newAccount(5000)
	ReserveMargin(acct, 400)
	SettleClose(acct, -300, 0)
	ResetAccount(acct)

	if acct.Balance != 5000 || acct.Equity != 5000 || acct.FreeMargin != 5000 {
		t.Errorf("after reset %+v", acct)
	}
	if acct.MarginUsed != 0 || acct.TotalPnL != 0 {
		t.Errorf("after reset used=%v total=%v", acct.MarginUsed, acct.TotalPnL)
	}
}
