package http

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"priceactiontalk/internal/delivery/http/dto"
	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/middleware"
)

// DemoTrader is the demo trading use case consumed by DemoHandler
type DemoTrader interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*domain.DemoAccountSummary, error)
	CreateAccount(ctx context.Context, userID uuid.UUID, initialBalance float64) (*domain.DemoAccount, error)
	ResetAccount(ctx context.Context, userID uuid.UUID) (*domain.DemoAccount, int, error)
	ListTrades(ctx context.Context, userID uuid.UUID, status string, page domain.Page) ([]*domain.DemoTrade, int, error)
	PlaceTrade(ctx context.Context, req domain.PlaceDemoTrade) (*domain.DemoTrade, float64, error)
	CloseTrade(ctx context.Context, userID, tradeID uuid.UUID) (*domain.DemoTrade, error)
}

// DemoHandler handles demo account trading
type DemoHandler struct {
	demo DemoTrader
}

// NewDemoHandler creates a new DemoHandler
func NewDemoHandler(demo DemoTrader) *DemoHandler {
	return &DemoHandler{
		demo: demo,
	}
}

// GetAccount returns the demo account with trade statistics
// GET /api/demo/account
func (h *DemoHandler) GetAccount(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	summary, err := h.demo.GetAccount(ctx, userID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, summary)
}

// CreateAccount opens the demo account
// POST /api/demo/account
func (h *DemoHandler) CreateAccount(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req dto.CreateDemoAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	account, err := h.demo.CreateAccount(ctx, userID, req.InitialBalance)
	if err != nil {
		return err
	}

	return CreatedResponse(c, account)
}

// ResetAccount closes every open trade and restores the starting balance
// POST /api/demo/account/reset
func (h *DemoHandler) ResetAccount(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	account, closed, err := h.demo.ResetAccount(ctx, userID)
	if err != nil {
		return err
	}

	return SuccessMessageResponse(c, "Demo account reset successfully", map[string]interface{}{
		"account":       account,
		"closed_trades": closed,
	})
}

// ListTrades returns a page of demo trades
// GET /api/demo/trades
func (h *DemoHandler) ListTrades(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	page := queryPage(c, 20, 100)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	trades, total, err := h.demo.ListTrades(ctx, userID, c.QueryParam("status"), page)
	if err != nil {
		return err
	}

	return PaginatedResponse(c, trades, page, total)
}

// PlaceTrade opens a demo position at market
// POST /api/demo/trades
func (h *DemoHandler) PlaceTrade(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req dto.PlaceDemoTradeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	trade, margin, err := h.demo.PlaceTrade(ctx, domain.PlaceDemoTrade{
		UserID:     userID,
		Instrument: req.Instrument,
		Side:       req.Side,
		Volume:     req.Volume,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	})
	if err != nil {
		return err
	}

	return CreatedResponse(c, map[string]interface{}{
		"trade":           trade,
		"required_margin": margin,
	})
}

// CloseTrade closes an open demo position at market
// POST /api/demo/trades/:id/close
func (h *DemoHandler) CloseTrade(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	tradeID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	trade, err := h.demo.CloseTrade(ctx, userID, tradeID)
	if err != nil {
		return err
	}

	return SuccessMessageResponse(c, "Trade closed successfully", trade)
}
