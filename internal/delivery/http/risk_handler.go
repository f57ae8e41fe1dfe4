package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	zlog "github.com/rs/zerolog/log"

	"priceactiontalk/internal/delivery/http/dto"
	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/middleware"
	"priceactiontalk/internal/service"
)

// RiskHandler handles risk settings, metrics and trade blockers
type RiskHandler struct {
	riskRepo  domain.RiskRepository
	tradeRepo domain.TradeRepository
	demoRepo  domain.DemoRepository
}

// NewRiskHandler creates a new RiskHandler
func NewRiskHandler(riskRepo domain.RiskRepository, tradeRepo domain.TradeRepository, demoRepo domain.DemoRepository) *RiskHandler {
	return &RiskHandler{
		riskRepo:  riskRepo,
		tradeRepo: tradeRepo,
		demoRepo:  demoRepo,
	}
}

// GetSettings returns the stored settings or the defaults
// GET /api/risk/settings
func (h *RiskHandler) GetSettings(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	settings, err := h.riskRepo.GetSettings(ctx, userID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, settings)
}

// UpdateSettings replaces the user's risk settings
// PUT /api/risk/settings
func (h *RiskHandler) UpdateSettings(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req dto.RiskSettingsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	settings := req.ToDomain(userID)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.riskRepo.UpsertSettings(ctx, settings); err != nil {
		return err
	}

	return SuccessMessageResponse(c, "Risk settings updated successfully", settings)
}

// GetMetrics computes the risk snapshot over the journal
// GET /api/risk/metrics
func (h *RiskHandler) GetMetrics(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	exposure, err := h.tradeRepo.Exposure(ctx, userID)
	if err != nil {
		return err
	}

	balance := service.DefaultAccountBalance
	account, err := h.demoRepo.GetAccount(ctx, userID)
	switch {
	case err == nil && account.Balance > 0:
		balance = account.Balance
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return err
	}

	return SuccessResponse(c, service.CalculateRiskMetrics(exposure, balance))
}

// ListBlockers returns the user's trade blockers
// GET /api/risk/blockers
func (h *RiskHandler) ListBlockers(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	blockers, err := h.riskRepo.ListBlockers(ctx, userID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, blockers)
}

// ResolveBlocker deactivates an active blocker
// POST /api/risk/blockers/:id/resolve
func (h *RiskHandler) ResolveBlocker(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	blockerID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.riskRepo.ResolveBlocker(ctx, blockerID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Blocker not found or already resolved")
		}
		return err
	}

	return SuccessMessageResponse(c, "Blocker resolved successfully", nil)
}

// EmergencyStop closes every open trade and disables trading
// POST /api/risk/emergency-stop
func (h *RiskHandler) EmergencyStop(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	result, err := h.riskRepo.EmergencyStop(ctx, userID)
	if err != nil {
		return err
	}

	zlog.Warn().
		Str("user_id", userID.String()).
		Int("journal_closed", result.JournalTradesClosed).
		Int("demo_closed", result.DemoTradesClosed).
		Msg("Emergency stop activated")

	return SuccessMessageResponse(c, "Emergency stop activated. All trades closed and trading disabled.", result)
}
