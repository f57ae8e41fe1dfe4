package service

import (
	"testing"

	"priceactiontalk/internal/domain"
)

func TestCalculateRiskMetrics(t *testing.T) {
	exp := &domain.RiskExposure{
		OpenTrades:      2,
		DailyPnL:        -100,
		WeeklyPnL:       50,
		MonthlyPnL:      -500,
		CurrentExposure: 2000,
	}

	got := CalculateRiskMetrics(exp, 10000)

	checks := []struct {
		name      string
		got, want float64
	}{
		{"portfolio heat", got.PortfolioHeat, 20},
		{"current risk", got.CurrentRisk, 20},
		{"daily pnl", got.DailyPnL, -1},
		{"weekly pnl", got.WeeklyPnL, 0.5},
		{"monthly pnl", got.MonthlyPnL, -5},
		{"max drawdown", got.MaxDrawdown, -5},
		{"risk score", got.RiskScore, 11.3},
	}
	for _, c := range checks {
		if !almostEqual(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if got.OpenTradesCount != 2 {
		t.Errorf("OpenTradesCount = %d, want 2", got.OpenTradesCount)
	}
}

func TestCalculateRiskMetricsClamps(t *testing.T) {
	t.Run("score capped at 100", func(t *testing.T) {
		got := CalculateRiskMetrics(&domain.RiskExposure{CurrentExposure: 1e6}, 10000)
		if got.RiskScore != 100 {
			t.Errorf("RiskScore = %v, want 100", got.RiskScore)
		}
	})

	t.Run("profitable month has no drawdown", func(t *testing.T) {
		got := CalculateRiskMetrics(&domain.RiskExposure{MonthlyPnL: 900}, 10000)
		if got.MaxDrawdown != 0 {
			t.Errorf("MaxDrawdown = %v, want 0", got.MaxDrawdown)
		}
	})

	t.Run("missing balance falls back to default", func(t *testing.T) {
		got := CalculateRiskMetrics(&domain.RiskExposure{CurrentExposure: 1000}, 0)
		if got.AccountBalance != DefaultAccountBalance || got.PortfolioHeat != 10 {
			t.Errorf("got balance %v heat %v", got.AccountBalance, got.PortfolioHeat)
		}
	})
}
