package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"priceactiontalk/internal/domain"
)

// Demo account contract terms
var (
	Leverage     = decimal.NewFromInt(100)
	ContractSize = decimal.NewFromInt(100000)
	PipValueUSD  = decimal.NewFromInt(10)

	hundred = decimal.NewFromInt(100)
)

// PipSize returns the smallest conventional price increment for an instrument
func PipSize(instrument string) decimal.Decimal {
	if strings.Contains(strings.ToUpper(instrument), "JPY") {
		return decimal.New(1, -2)
	}
	return decimal.New(1, -4)
}

// RequiredMargin is the margin reserved for volume lots opened at price
func RequiredMargin(volume, price float64) float64 {
	return decimal.NewFromFloat(volume).
		Mul(ContractSize).
		Mul(decimal.NewFromFloat(price)).
		Div(Leverage).
		Round(2).
		InexactFloat64()
}

// OpenPrice is the fill price for a new position: buys pay the ask, sells hit the bid
func OpenPrice(side string, q domain.Quote) float64 {
	if side == domain.SideBuy {
		return q.Ask
	}
	return q.Bid
}

// ExitPrice is the price a position is closed at: buys sell at the bid, sells buy at the ask
func ExitPrice(side string, q domain.Quote) float64 {
	if side == domain.SideBuy {
		return q.Bid
	}
	return q.Ask
}

// CalculatePnL returns realized P&L in USD for closing trade at exit, rounded to cents
func CalculatePnL(trade *domain.DemoTrade, exit float64) float64 {
	diff := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(trade.OpenPrice))
	if trade.Side == domain.SideSell {
		diff = diff.Neg()
	}

	pips := diff.Div(PipSize(trade.Instrument))
	return pips.
		Mul(PipValueUSD).
		Mul(decimal.NewFromFloat(trade.Volume)).
		Sub(decimal.NewFromFloat(trade.Commission)).
		Sub(decimal.NewFromFloat(trade.Swap)).
		Round(2).
		InexactFloat64()
}

// ReserveMargin moves margin from free to used on the account
func ReserveMargin(account *domain.DemoAccount, margin float64) {
	used := decimal.NewFromFloat(account.MarginUsed).Add(decimal.NewFromFloat(margin))
	applyMargin(account, decimal.NewFromFloat(account.Equity), used)
}

// SettleClose credits realized pnl and releases the trade's margin
func SettleClose(account *domain.DemoAccount, pnl, margin float64) {
	p := decimal.NewFromFloat(pnl)

	account.Balance = decimal.NewFromFloat(account.Balance).Add(p).Round(2).InexactFloat64()
	account.TotalPnL = decimal.NewFromFloat(account.TotalPnL).Add(p).Round(2).InexactFloat64()
	equity := decimal.NewFromFloat(account.Equity).Add(p)

	used := decimal.NewFromFloat(account.MarginUsed).Sub(decimal.NewFromFloat(margin))
	if used.IsNegative() {
		used = decimal.Zero
	}
	applyMargin(account, equity, used)
}

// ResetAccount restores the starting balance and clears all margin
func ResetAccount(account *domain.DemoAccount) {
	account.Balance = account.InitialBalance
	account.TotalPnL = 0
	applyMargin(account, decimal.NewFromFloat(account.InitialBalance), decimal.Zero)
}

// applyMargin sets equity and used margin and derives free margin and margin level
func applyMargin(account *domain.DemoAccount, equity, used decimal.Decimal) {
	account.Equity = equity.Round(2).InexactFloat64()
	account.MarginUsed = used.Round(2).InexactFloat64()
	account.FreeMargin = equity.Sub(used).Round(2).InexactFloat64()

	if used.IsPositive() {
		account.MarginLevel = equity.Div(used).Mul(hundred).Round(2).InexactFloat64()
	} else {
		account.MarginLevel = 0
	}
}

// HasFreeMargin reports whether the account can reserve margin
func HasFreeMargin(account *domain.DemoAccount, margin float64) bool {
	return decimal.NewFromFloat(margin).LessThanOrEqual(decimal.NewFromFloat(account.FreeMargin))
}
