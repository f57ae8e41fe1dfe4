package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"priceactiontalk/internal/delivery/http/dto"
	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/middleware"
	"priceactiontalk/internal/utils"
)

// TradingHandler handles the trading journal
type TradingHandler struct {
	tradeRepo domain.TradeRepository
	now       func() time.Time
}

// NewTradingHandler creates a new TradingHandler
func NewTradingHandler(tradeRepo domain.TradeRepository) *TradingHandler {
	return &TradingHandler{
		tradeRepo: tradeRepo,
		now:       time.Now,
	}
}

var errTradeNotFound = echo.NewHTTPError(http.StatusNotFound, "Trade not found")

// CreateTrade logs a new journal entry
// POST /api/trading
func (h *TradingHandler) CreateTrade(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req dto.CreateTradeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	trade := &domain.Trade{
		UserID:       userID,
		Instrument:   req.Instrument,
		Side:         req.Side,
		EntryPrice:   req.EntryPrice,
		Quantity:     req.Quantity,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		EntryTime:    req.EntryTime,
		Status:       domain.TradeStatusOpen,
		StrategyTags: req.StrategyTags,
		Emotions:     req.Emotions,
		Notes:        req.Notes,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.tradeRepo.Create(ctx, trade); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    trade,
		Message: "Trade created successfully",
	})
}

// ListTrades returns a page of journal trades, newest entry first
// GET /api/trading
func (h *TradingHandler) ListTrades(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	page := queryPage(c, 20, 100)
	filter := domain.TradeFilter{
		Status:     c.QueryParam("status"),
		Instrument: c.QueryParam("instrument"),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	trades, total, err := h.tradeRepo.List(ctx, userID, filter, page)
	if err != nil {
		return err
	}

	return PaginatedResponse(c, trades, page, total)
}

// GetTrade returns one journal trade
// GET /api/trading/:id
func (h *TradingHandler) GetTrade(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	tradeID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	trade, err := h.tradeRepo.GetByID(ctx, tradeID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return errTradeNotFound
	}
	if err != nil {
		return err
	}

	return SuccessResponse(c, trade)
}

// UpdateTrade applies a partial update. Closing with an exit price realizes the P&L.
// PUT /api/trading/:id
func (h *TradingHandler) UpdateTrade(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	tradeID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateTradeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.IsEmpty() {
		return domain.ErrNoFieldsToUpdate
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	trade, err := h.tradeRepo.GetByID(ctx, tradeID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return errTradeNotFound
	}
	if err != nil {
		return err
	}

	req.ToDomain().Apply(trade)

	if trade.Status == domain.TradeStatusClosed && trade.ExitPrice != nil {
		pnl := trade.CalculatePnL(*trade.ExitPrice)
		trade.PnL = &pnl
		if trade.ExitTime == nil {
			now := h.now()
			trade.ExitTime = &now
		}
	}

	if err := h.tradeRepo.Update(ctx, trade); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errTradeNotFound
		}
		return err
	}

	return SuccessMessageResponse(c, "Trade updated successfully", trade)
}

// DeleteTrade removes a journal trade
// DELETE /api/trading/:id
func (h *TradingHandler) DeleteTrade(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	tradeID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.tradeRepo.Delete(ctx, tradeID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errTradeNotFound
		}
		return err
	}

	return SuccessMessageResponse(c, "Trade deleted successfully", nil)
}

// GetAnalytics summarises the journal over a timeframe
// GET /api/trading/analytics/summary?timeframe=7d|30d|90d|all
func (h *TradingHandler) GetAnalytics(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	timeframe := utils.NormalizeTimeframe(c.QueryParam("timeframe"), utils.Timeframe30d)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	analytics, err := h.tradeRepo.Analytics(ctx, userID, utils.TimeframeStart(timeframe, h.now()))
	if err != nil {
		return err
	}
	analytics.Timeframe = timeframe

	return SuccessResponse(c, analytics)
}
