package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceactiontalk/internal/domain"
)

// EmergencyStopReason is recorded on the blocker created by an emergency stop
const EmergencyStopReason = "Emergency stop activated by user"

// RiskRepositoryImpl implements the RiskRepository interface
type RiskRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewRiskRepository creates a new RiskRepository
func NewRiskRepository(db *pgxpool.Pool) domain.RiskRepository {
	return &RiskRepositoryImpl{db: db}
}

// GetSettings returns stored settings or the defaults
func (r *RiskRepositoryImpl) GetSettings(ctx context.Context, userID uuid.UUID) (*domain.RiskSettings, error) {
	return getRiskSettings(ctx, r.db, userID)
}

// getRiskSettings returns stored settings or the defaults
func getRiskSettings(ctx context.Context, q querier, userID uuid.UUID) (*domain.RiskSettings, error) {
	s := &domain.RiskSettings{UserID: userID}
	err := q.QueryRow(ctx, `
		SELECT max_risk_per_trade::float8, max_daily_loss::float8, max_weekly_loss::float8,
		       max_monthly_loss::float8, max_open_trades, max_correlation_exposure::float8,
		       trading_enabled, auto_close_enabled, emergency_stop_enabled, updated_at
		FROM risk_settings
		WHERE user_id = $1
	`, userID).Scan(
		&s.MaxRiskPerTrade,
		&s.MaxDailyLoss,
		&s.MaxWeeklyLoss,
		&s.MaxMonthlyLoss,
		&s.MaxOpenTrades,
		&s.MaxCorrelationExposure,
		&s.TradingEnabled,
		&s.AutoCloseEnabled,
		&s.EmergencyStopEnabled,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultRiskSettings(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk settings: %w", err)
	}
	return s, nil
}

// UpsertSettings stores the full settings row
func (r *RiskRepositoryImpl) UpsertSettings(ctx context.Context, s *domain.RiskSettings) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO risk_settings (
			user_id, max_risk_per_trade, max_daily_loss, max_weekly_loss, max_monthly_loss,
			max_open_trades, max_correlation_exposure, trading_enabled, auto_close_enabled,
			emergency_stop_enabled
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			max_risk_per_trade = EXCLUDED.max_risk_per_trade,
			max_daily_loss = EXCLUDED.max_daily_loss,
			max_weekly_loss = EXCLUDED.max_weekly_loss,
			max_monthly_loss = EXCLUDED.max_monthly_loss,
			max_open_trades = EXCLUDED.max_open_trades,
			max_correlation_exposure = EXCLUDED.max_correlation_exposure,
			trading_enabled = EXCLUDED.trading_enabled,
			auto_close_enabled = EXCLUDED.auto_close_enabled,
			emergency_stop_enabled = EXCLUDED.emergency_stop_enabled,
			updated_at = NOW()
		RETURNING updated_at
	`,
		s.UserID,
		s.MaxRiskPerTrade,
		s.MaxDailyLoss,
		s.MaxWeeklyLoss,
		s.MaxMonthlyLoss,
		s.MaxOpenTrades,
		s.MaxCorrelationExposure,
		s.TradingEnabled,
		s.AutoCloseEnabled,
		s.EmergencyStopEnabled,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert risk settings: %w", err)
	}
	return nil
}

// ListBlockers returns the user's blockers, newest first
func (r *RiskRepositoryImpl) ListBlockers(ctx context.Context, userID uuid.UUID) ([]*domain.TradeBlocker, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, reason, severity, is_active, triggered_at, resolved_at
		FROM trade_blockers
		WHERE user_id = $1
		ORDER BY triggered_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade blockers: %w", err)
	}
	defer rows.Close()

	blockers := []*domain.TradeBlocker{}
	for rows.Next() {
		b := &domain.TradeBlocker{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.Reason, &b.Severity, &b.IsActive, &b.TriggeredAt, &b.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade blocker: %w", err)
		}
		blockers = append(blockers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade blockers: %w", err)
	}
	return blockers, nil
}

// ResolveBlocker deactivates an active blocker owned by the user
func (r *RiskRepositoryImpl) ResolveBlocker(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE trade_blockers SET is_active = false, resolved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_active = true
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve trade blocker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// HasActiveBlocker reports whether the user has an active blocker of the given severity
func (r *RiskRepositoryImpl) HasActiveBlocker(ctx context.Context, userID uuid.UUID, severity string) (bool, error) {
	return hasActiveBlocker(ctx, r.db, userID, severity)
}

func hasActiveBlocker(ctx context.Context, q querier, userID uuid.UUID, severity string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trade_blockers WHERE user_id = $1 AND severity = $2 AND is_active = true
		)
	`, userID, severity).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check trade blockers: %w", err)
	}
	return exists, nil
}

// EmergencyStop closes open trades, disables trading and records a critical blocker atomically
func (r *RiskRepositoryImpl) EmergencyStop(ctx context.Context, userID uuid.UUID) (*domain.EmergencyStopResult, error) {
	result := &domain.EmergencyStopResult{}

	err := withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		// Demo placement locks the same row
		_, err := tx.Exec(ctx, `SELECT 1 FROM demo_accounts WHERE user_id = $1 FOR UPDATE`, userID)
		if err != nil {
			return fmt.Errorf("failed to lock demo account: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE trades SET
				status = 'closed', exit_price = entry_price, exit_time = NOW(), pnl = 0, updated_at = NOW()
			WHERE user_id = $1 AND status = 'open'
		`, userID)
		if err != nil {
			return fmt.Errorf("failed to close journal trades: %w", err)
		}
		result.JournalTradesClosed = int(tag.RowsAffected())

		result.DemoTradesClosed, err = closeOpenDemoTrades(ctx, tx, userID, domain.CloseReasonEmergency)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE demo_accounts SET
				margin_used = 0, free_margin = equity, margin_level = 0, updated_at = NOW()
			WHERE user_id = $1
		`, userID)
		if err != nil {
			return fmt.Errorf("failed to release demo margin: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO risk_settings (user_id, trading_enabled) VALUES ($1, false)
			ON CONFLICT (user_id) DO UPDATE SET trading_enabled = false, updated_at = NOW()
		`, userID)
		if err != nil {
			return fmt.Errorf("failed to disable trading: %w", err)
		}

		b := &domain.TradeBlocker{
			UserID:   userID,
			Reason:   EmergencyStopReason,
			Severity: domain.SeverityCritical,
			IsActive: true,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO trade_blockers (user_id, reason, severity, is_active)
			VALUES ($1, $2, $3, true)
			RETURNING id, triggered_at
		`, userID, b.Reason, b.Severity).Scan(&b.ID, &b.TriggeredAt)
		if err != nil {
			return fmt.Errorf("failed to create trade blocker: %w", err)
		}
		result.Blocker = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
