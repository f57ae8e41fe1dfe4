package service

import (
	"github.com/shopspring/decimal"

	"priceactiontalk/internal/domain"
)

// DefaultAccountBalance is used when the user has no demo account
const DefaultAccountBalance = 10000.0

var (
	heatWeight     = decimal.NewFromFloat(0.4)
	dailyWeight    = decimal.NewFromFloat(0.3)
	openWeight     = decimal.NewFromFloat(0.3)
	perOpenTrade   = decimal.NewFromInt(5)
	maxRiskScore   = decimal.NewFromInt(100)
	minRiskScore   = decimal.Zero
	percentScaling = decimal.NewFromInt(100)
)

// CalculateRiskMetrics derives the risk snapshot from journal exposure and the account balance
func CalculateRiskMetrics(exp *domain.RiskExposure, balance float64) *domain.RiskMetrics {
	if balance <= 0 {
		balance = DefaultAccountBalance
	}
	bal := decimal.NewFromFloat(balance)

	pct := func(v float64) decimal.Decimal {
		return decimal.NewFromFloat(v).Div(bal).Mul(percentScaling)
	}

	heat := pct(exp.CurrentExposure)
	daily := pct(exp.DailyPnL)

	score := heat.Mul(heatWeight).
		Add(daily.Abs().Mul(dailyWeight)).
		Add(decimal.NewFromInt(int64(exp.OpenTrades)).Mul(perOpenTrade).Mul(openWeight))
	if score.GreaterThan(maxRiskScore) {
		score = maxRiskScore
	}
	if score.LessThan(minRiskScore) {
		score = minRiskScore
	}

	drawdown := pct(exp.MonthlyPnL)
	if drawdown.IsPositive() {
		drawdown = decimal.Zero
	}

	return &domain.RiskMetrics{
		AccountBalance:  balance,
		CurrentRisk:     heat.Round(2).InexactFloat64(),
		DailyPnL:        daily.Round(2).InexactFloat64(),
		WeeklyPnL:       pct(exp.WeeklyPnL).Round(2).InexactFloat64(),
		MonthlyPnL:      pct(exp.MonthlyPnL).Round(2).InexactFloat64(),
		OpenTradesCount: exp.OpenTrades,
		PortfolioHeat:   heat.Round(2).InexactFloat64(),
		MaxDrawdown:     drawdown.Round(2).InexactFloat64(),
		RiskScore:       score.Round(2).InexactFloat64(),
	}
}
