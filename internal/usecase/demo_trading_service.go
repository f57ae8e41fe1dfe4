package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/infra"
	"priceactiontalk/internal/service"
)

// DefaultDemoBalance funds new demo accounts when no balance is given
const DefaultDemoBalance = 10000.0

// DemoTradingService handles demo account trading against mock quotes
type DemoTradingService struct {
	demoRepo domain.DemoRepository
	quoter   domain.PriceQuoter
	now      func() time.Time
}

// NewDemoTradingService creates a new DemoTradingService
func NewDemoTradingService(demoRepo domain.DemoRepository, quoter domain.PriceQuoter) *DemoTradingService {
	return &DemoTradingService{
		demoRepo: demoRepo,
		quoter:   quoter,
		now:      time.Now,
	}
}

// GetAccount returns the account summary
func (s *DemoTradingService) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.DemoAccountSummary, error) {
	summary, err := s.demoRepo.GetSummary(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrDemoAccountNotFound
	}
	return summary, err
}

// CreateAccount opens the user's demo account
func (s *DemoTradingService) CreateAccount(ctx context.Context, userID uuid.UUID, initialBalance float64) (*domain.DemoAccount, error) {
	if initialBalance <= 0 {
		initialBalance = DefaultDemoBalance
	}
	return s.demoRepo.CreateAccount(ctx, userID, initialBalance)
}

// ListTrades returns a page of demo trades
func (s *DemoTradingService) ListTrades(ctx context.Context, userID uuid.UUID, status string, page domain.Page) ([]*domain.DemoTrade, int, error) {
	return s.demoRepo.ListTrades(ctx, userID, status, page)
}

// checkRiskGuard rejects placement when the user's risk settings or blockers forbid trading
func checkRiskGuard(ctx context.Context, tx domain.DemoTx, userID uuid.UUID) (*domain.RiskSettings, error) {
	settings, err := tx.GetRiskSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !settings.TradingEnabled {
		return nil, domain.ErrTradingDisabled
	}

	blocked, err := tx.HasActiveBlocker(ctx, userID, domain.SeverityCritical)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, domain.ErrTradingDisabled
	}
	return settings, nil
}

// PlaceTrade opens a position at the current quote and reserves its margin
func (s *DemoTradingService) PlaceTrade(ctx context.Context, req domain.PlaceDemoTrade) (*domain.DemoTrade, float64, error) {
	quote, err := s.quoter.Quote(ctx, req.Instrument)
	if err != nil {
		return nil, 0, err
	}

	openPrice := service.OpenPrice(req.Side, quote)
	margin := service.RequiredMargin(req.Volume, openPrice)

	trade := &domain.DemoTrade{
		UserID:       req.UserID,
		Instrument:   quote.Instrument,
		Side:         req.Side,
		Volume:       req.Volume,
		OpenPrice:    openPrice,
		CurrentPrice: openPrice,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		Margin:       margin,
		Status:       domain.TradeStatusOpen,
	}

	err = s.demoRepo.RunInTx(ctx, func(tx domain.DemoTx) error {
		account, err := tx.LockAccount(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrDemoAccountNotFound
			}
			return err
		}

		settings, err := checkRiskGuard(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		open, err := tx.CountOpenTrades(ctx, req.UserID)
		if err != nil {
			return err
		}
		if open >= settings.MaxOpenTrades {
			return domain.ErrMaxOpenTrades
		}

		if !service.HasFreeMargin(account, margin) {
			return domain.ErrInsufficientMargin
		}

		if err := tx.InsertTrade(ctx, trade); err != nil {
			return err
		}

		service.ReserveMargin(account, margin)
		return tx.SaveAccount(ctx, account)
	})
	if err != nil {
		return nil, 0, err
	}

	infra.DemoTradeEvent("opened")
	zlog.Info().
		Str("user_id", req.UserID.String()).
		Str("instrument", trade.Instrument).
		Str("side", trade.Side).
		Float64("volume", trade.Volume).
		Float64("open_price", trade.OpenPrice).
		Float64("margin", margin).
		Msg("Demo trade opened")

	return trade, margin, nil
}

// CloseTrade closes an open position at the current quote
func (s *DemoTradingService) CloseTrade(ctx context.Context, userID, tradeID uuid.UUID) (*domain.DemoTrade, error) {
	var closed *domain.DemoTrade

	err := s.demoRepo.RunInTx(ctx, func(tx domain.DemoTx) error {
		account, err := tx.LockAccount(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrDemoAccountNotFound
			}
			return err
		}

		trade, err := tx.LockOpenTrade(ctx, tradeID, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrDemoTradeNotFound
			}
			return err
		}

		quote, err := s.quoter.Quote(ctx, trade.Instrument)
		if err != nil {
			return err
		}

		closed = trade
		return s.settle(ctx, tx, account, trade, service.ExitPrice(trade.Side, quote), domain.CloseReasonManual)
	})
	if err != nil {
		return nil, err
	}

	infra.DemoTradeEvent(domain.CloseReasonManual)
	return closed, nil
}

// settle closes a locked trade at exit and books the result on the locked account
func (s *DemoTradingService) settle(ctx context.Context, tx domain.DemoTx, account *domain.DemoAccount, trade *domain.DemoTrade, exit float64, reason string) error {
	pnl := service.CalculatePnL(trade, exit)
	now := s.now()

	trade.Status = domain.TradeStatusClosed
	trade.CurrentPrice = exit
	trade.ExitPrice = &exit
	trade.PnL = pnl
	trade.CloseReason = &reason
	trade.ClosedAt = &now

	if err := tx.CloseTrade(ctx, trade); err != nil {
		return err
	}

	service.SettleClose(account, pnl, trade.Margin)
	return tx.SaveAccount(ctx, account)
}

// ResetAccount flattens every open trade at zero P&L and restores the starting balance
func (s *DemoTradingService) ResetAccount(ctx context.Context, userID uuid.UUID) (*domain.DemoAccount, int, error) {
	var account *domain.DemoAccount
	var closed int

	err := s.demoRepo.RunInTx(ctx, func(tx domain.DemoTx) error {
		var err error
		account, err = tx.LockAccount(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrDemoAccountNotFound
			}
			return err
		}

		closed, err = tx.CloseAllOpenTrades(ctx, userID, domain.CloseReasonReset)
		if err != nil {
			return err
		}

		service.ResetAccount(account)
		return tx.SaveAccount(ctx, account)
	})
	if err != nil {
		return nil, 0, err
	}

	zlog.Info().Str("user_id", userID.String()).Int("closed_trades", closed).Msg("Demo account reset")
	return account, closed, nil
}

// CheckStops closes open trades whose stop loss or take profit is hit by the current quote
func (s *DemoTradingService) CheckStops(ctx context.Context) error {
	trades, err := s.demoRepo.ListOpenTradesWithStops(ctx)
	if err != nil {
		return fmt.Errorf("failed to get open demo trades: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	quotes := make(map[string]domain.Quote)
	closedCount := 0

	for _, trade := range trades {
		quote, ok := quotes[trade.Instrument]
		if !ok {
			quote, err = s.quoter.Quote(ctx, trade.Instrument)
			if err != nil {
				zlog.Warn().Err(err).Str("instrument", trade.Instrument).Msg("No quote for demo trade, skipping")
				continue
			}
			quotes[trade.Instrument] = quote
		}

		hit, reason := trade.CheckStops(quote)
		if !hit {
			continue
		}

		if err := s.closeOnStop(ctx, trade, quote, reason); err != nil {
			zlog.Error().Err(err).Str("trade_id", trade.ID.String()).Msg("Failed to close demo trade on stop")
			continue
		}
		closedCount++
	}

	if closedCount > 0 {
		zlog.Info().Int("closed", closedCount).Int("checked", len(trades)).Msg("Demo stop sweep complete")
	}
	return nil
}

func (s *DemoTradingService) closeOnStop(ctx context.Context, candidate *domain.DemoTrade, quote domain.Quote, reason string) error {
	closed := false
	err := s.demoRepo.RunInTx(ctx, func(tx domain.DemoTx) error {
		account, err := tx.LockAccount(ctx, candidate.UserID)
		if err != nil {
			return err
		}

		trade, err := tx.LockOpenTrade(ctx, candidate.ID, candidate.UserID)
		if err != nil {
			return err
		}

		// Re-check on the locked row in case the stops were changed or it was closed meanwhile
		if hit, _ := trade.CheckStops(quote); !hit {
			return nil
		}
		closed = true
		return s.settle(ctx, tx, account, trade, service.ExitPrice(trade.Side, quote), reason)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil || !closed {
		return err
	}

	infra.DemoTradeEvent(reason)
	zlog.Info().
		Str("trade_id", candidate.ID.String()).
		Str("instrument", candidate.Instrument).
		Str("reason", reason).
		Msg("Demo trade closed on stop")
	return nil
}
