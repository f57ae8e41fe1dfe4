package repository

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceactiontalk/internal/domain"
)

// TradeRepositoryImpl implements the TradeRepository interface
type TradeRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewTradeRepository creates a new TradeRepository
func NewTradeRepository(db *pgxpool.Pool) domain.TradeRepository {
	return &TradeRepositoryImpl{db: db}
}

const tradeColumns = `
	id, user_id, instrument, side, entry_price, exit_price, quantity, stop_loss, take_profit,
	entry_time, exit_time, status, pnl, strategy_tags, emotions, notes, created_at, updated_at`

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	t := &domain.Trade{}
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Instrument,
		&t.Side,
		&t.EntryPrice,
		&t.ExitPrice,
		&t.Quantity,
		&t.StopLoss,
		&t.TakeProfit,
		&t.EntryTime,
		&t.ExitTime,
		&t.Status,
		&t.PnL,
		&t.StrategyTags,
		&t.Emotions,
		&t.Notes,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a journal trade
func (r *TradeRepositoryImpl) Create(ctx context.Context, trade *domain.Trade) error {
	if trade.StrategyTags == nil {
		trade.StrategyTags = []string{}
	}
	if trade.Emotions == nil {
		trade.Emotions = []string{}
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO trades (
			user_id, instrument, side, entry_price, quantity, stop_loss, take_profit,
			entry_time, status, strategy_tags, emotions, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`,
		trade.UserID,
		trade.Instrument,
		trade.Side,
		trade.EntryPrice,
		trade.Quantity,
		trade.StopLoss,
		trade.TakeProfit,
		trade.EntryTime,
		trade.Status,
		trade.StrategyTags,
		trade.Emotions,
		trade.Notes,
	).Scan(&trade.ID, &trade.CreatedAt, &trade.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

// List returns a page of the user's trades, newest entry first, and the total count
func (r *TradeRepositoryImpl) List(ctx context.Context, userID uuid.UUID, filter domain.TradeFilter, page domain.Page) ([]*domain.Trade, int, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Instrument != "" {
		args = append(args, filter.Instrument)
		where = append(where, fmt.Sprintf("instrument = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM trades WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trades: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM trades
		WHERE %s
		ORDER BY entry_time DESC
		LIMIT $%d OFFSET $%d
	`, tradeColumns, clause, len(args)+1, len(args)+2)

	rows, err := r.db.Query(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []*domain.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, total, nil
}

// GetByID retrieves one of the user's trades
func (r *TradeRepositoryImpl) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Trade, error) {
	t, err := scanTrade(r.db.QueryRow(ctx, `
		SELECT `+tradeColumns+` FROM trades WHERE id = $1 AND user_id = $2
	`, id, userID))
	if err != nil {
		return nil, wrapNotFound(err, "get trade")
	}
	return t, nil
}

// Update writes every mutable column of the trade
func (r *TradeRepositoryImpl) Update(ctx context.Context, trade *domain.Trade) error {
	err := r.db.QueryRow(ctx, `
		UPDATE trades SET
			instrument = $3, side = $4, entry_price = $5, exit_price = $6, quantity = $7,
			stop_loss = $8, take_profit = $9, entry_time = $10, exit_time = $11, status = $12,
			pnl = $13, strategy_tags = $14, emotions = $15, notes = $16, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`,
		trade.ID,
		trade.UserID,
		trade.Instrument,
		trade.Side,
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Quantity,
		trade.StopLoss,
		trade.TakeProfit,
		trade.EntryTime,
		trade.ExitTime,
		trade.Status,
		trade.PnL,
		trade.StrategyTags,
		trade.Emotions,
		trade.Notes,
	).Scan(&trade.UpdatedAt)
	if err != nil {
		return wrapNotFound(err, "update trade")
	}
	return nil
}

// Delete removes one of the user's trades
func (r *TradeRepositoryImpl) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM trades WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Analytics summarises trades entered since the given time
func (r *TradeRepositoryImpl) Analytics(ctx context.Context, userID uuid.UUID, since *time.Time) (*domain.TradeAnalytics, error) {
	a := &domain.TradeAnalytics{}
	var closed int

	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'closed'),
			COUNT(*) FILTER (WHERE status = 'closed' AND pnl > 0),
			COUNT(*) FILTER (WHERE status = 'closed' AND pnl < 0),
			COUNT(*) FILTER (WHERE status = 'open'),
			COALESCE(SUM(pnl) FILTER (WHERE status = 'closed'), 0)::float8,
			COALESCE(AVG(pnl) FILTER (WHERE status = 'closed'), 0)::float8,
			COALESCE(MAX(pnl) FILTER (WHERE status = 'closed'), 0)::float8,
			COALESCE(MIN(pnl) FILTER (WHERE status = 'closed'), 0)::float8
		FROM trades
		WHERE user_id = $1 AND ($2::timestamptz IS NULL OR entry_time >= $2)
	`, userID, since).Scan(
		&a.TotalTrades,
		&closed,
		&a.WinningTrades,
		&a.LosingTrades,
		&a.OpenTrades,
		&a.TotalPnL,
		&a.AvgPnL,
		&a.BestTrade,
		&a.WorstTrade,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade analytics: %w", err)
	}

	if closed > 0 {
		a.WinRate = roundTo(float64(a.WinningTrades)/float64(closed)*100, 2)
	}
	a.TotalPnL = roundTo(a.TotalPnL, 2)
	a.AvgPnL = roundTo(a.AvgPnL, 2)
	return a, nil
}

// Exposure aggregates open exposure and realized P&L windows for the risk calculator
func (r *TradeRepositoryImpl) Exposure(ctx context.Context, userID uuid.UUID) (*domain.RiskExposure, error) {
	exp := &domain.RiskExposure{}
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'open'),
			COALESCE(SUM(pnl) FILTER (WHERE status = 'closed' AND created_at >= CURRENT_DATE), 0)::float8,
			COALESCE(SUM(pnl) FILTER (WHERE status = 'closed' AND created_at >= CURRENT_DATE - INTERVAL '7 days'), 0)::float8,
			COALESCE(SUM(pnl) FILTER (WHERE status = 'closed' AND created_at >= CURRENT_DATE - INTERVAL '30 days'), 0)::float8,
			COALESCE(SUM(quantity * entry_price) FILTER (WHERE status = 'open'), 0)::float8
		FROM trades
		WHERE user_id = $1
	`, userID).Scan(
		&exp.TotalTrades,
		&exp.OpenTrades,
		&exp.DailyPnL,
		&exp.WeeklyPnL,
		&exp.MonthlyPnL,
		&exp.CurrentExposure,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get risk exposure: %w", err)
	}
	return exp, nil
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
