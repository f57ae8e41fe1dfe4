package dto

import (
	"github.com/google/uuid"

	"priceactiontalk/internal/domain"
)

// RiskSettingsRequest replaces the user's risk settings. Every field is required.
type RiskSettingsRequest struct {
	MaxRiskPerTrade        *float64 `json:"max_risk_per_trade" validate:"required,min=0.1,max=10"`
	MaxDailyLoss           *float64 `json:"max_daily_loss" validate:"required,min=1,max=50"`
	MaxWeeklyLoss          *float64 `json:"max_weekly_loss" validate:"required,min=1,max=50"`
	MaxMonthlyLoss         *float64 `json:"max_monthly_loss" validate:"required,min=1,max=50"`
	MaxOpenTrades          *int     `json:"max_open_trades" validate:"required,min=1,max=20"`
	MaxCorrelationExposure *float64 `json:"max_correlation_exposure" validate:"required,min=5,max=50"`
	TradingEnabled         *bool    `json:"trading_enabled" validate:"required"`
	AutoCloseEnabled       *bool    `json:"auto_close_enabled" validate:"required"`
	EmergencyStopEnabled   *bool    `json:"emergency_stop_enabled" validate:"required"`
}

// ToDomain converts a validated request to settings for userID
func (r RiskSettingsRequest) ToDomain(userID uuid.UUID) *domain.RiskSettings {
	return &domain.RiskSettings{
		UserID:                 userID,
		MaxRiskPerTrade:        *r.MaxRiskPerTrade,
		MaxDailyLoss:           *r.MaxDailyLoss,
		MaxWeeklyLoss:          *r.MaxWeeklyLoss,
		MaxMonthlyLoss:         *r.MaxMonthlyLoss,
		MaxOpenTrades:          *r.MaxOpenTrades,
		MaxCorrelationExposure: *r.MaxCorrelationExposure,
		TradingEnabled:         *r.TradingEnabled,
		AutoCloseEnabled:       *r.AutoCloseEnabled,
		EmergencyStopEnabled:   *r.EmergencyStopEnabled,
	}
}
