package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"priceactiontalk/internal/usecase"
)

// MacroHandler handles the macro bias dashboard
type MacroHandler struct {
	macro *usecase.MacroService
}

// NewMacroHandler creates a new MacroHandler
func NewMacroHandler(macro *usecase.MacroService) *MacroHandler {
	return &MacroHandler{
		macro: macro,
	}
}

// GetBias returns the latest score per currency from the last hour
// GET /api/macro/bias
func (h *MacroHandler) GetBias(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	biases, err := h.macro.Current(ctx)
	if err != nil {
		return err
	}

	return SuccessResponse(c, biases)
}

// GetHistory returns scores over a timeframe
// GET /api/macro/bias/history?currency=USD&timeframe=24h|7d|30d
func (h *MacroHandler) GetHistory(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	biases, timeframe, err := h.macro.History(ctx, c.QueryParam("currency"), c.QueryParam("timeframe"))
	if err != nil {
		return err
	}

	return SuccessResponse(c, map[string]interface{}{
		"history":   biases,
		"timeframe": timeframe,
	})
}

// GenerateMock stores and relays a fresh mock score for every currency
// POST /api/macro/bias/mock
func (h *MacroHandler) GenerateMock(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	biases, err := h.macro.GenerateMock(ctx)
	if err != nil {
		return err
	}

	return SuccessMessageResponse(c, "Mock macro data generated successfully", biases)
}

// AnalyzePair compares the two currencies of a pair
// GET /api/macro/bias/analysis/:pair
func (h *MacroHandler) AnalyzePair(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	analysis, err := h.macro.Analyze(ctx, c.Param("pair"))
	if err != nil {
		return err
	}

	return SuccessResponse(c, analysis)
}
