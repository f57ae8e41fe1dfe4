package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceactiontalk/internal/domain"
)

// DemoRepositoryImpl implements the DemoRepository interface
type DemoRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewDemoRepository creates a new DemoRepository
func NewDemoRepository(db *pgxpool.Pool) domain.DemoRepository {
	return &DemoRepositoryImpl{db: db}
}

const demoAccountColumns = `
	id, user_id, initial_balance, balance, equity, margin_used, free_margin,
	margin_level, total_pnl, created_at, updated_at`

const demoTradeColumns = `
	id, user_id, instrument, side, volume, open_price, current_price, exit_price,
	stop_loss, take_profit, margin, swap, commission, pnl, status, close_reason,
	closed_at, created_at, updated_at`

func scanDemoAccount(row pgx.Row) (*domain.DemoAccount, error) {
	a := &domain.DemoAccount{}
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.InitialBalance,
		&a.Balance,
		&a.Equity,
		&a.MarginUsed,
		&a.FreeMargin,
		&a.MarginLevel,
		&a.TotalPnL,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanDemoTrade(row pgx.Row) (*domain.DemoTrade, error) {
	t := &domain.DemoTrade{}
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Instrument,
		&t.Side,
		&t.Volume,
		&t.OpenPrice,
		&t.CurrentPrice,
		&t.ExitPrice,
		&t.StopLoss,
		&t.TakeProfit,
		&t.Margin,
		&t.Swap,
		&t.Commission,
		&t.PnL,
		&t.Status,
		&t.CloseReason,
		&t.ClosedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func collectDemoTrades(rows pgx.Rows) ([]*domain.DemoTrade, error) {
	defer rows.Close()

	trades := []*domain.DemoTrade{}
	for rows.Next() {
		t, err := scanDemoTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan demo trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating demo trades: %w", err)
	}
	return trades, nil
}

// GetAccount retrieves the user's demo account
func (r *DemoRepositoryImpl) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.DemoAccount, error) {
	a, err := scanDemoAccount(r.db.QueryRow(ctx, `
		SELECT `+demoAccountColumns+` FROM demo_accounts WHERE user_id = $1
	`, userID))
	if err != nil {
		return nil, wrapNotFound(err, "get demo account")
	}
	return a, nil
}

// GetSummary returns the account with trade count, win rate and today's realized P&L
func (r *DemoRepositoryImpl) GetSummary(ctx context.Context, userID uuid.UUID) (*domain.DemoAccountSummary, error) {
	account, err := r.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &domain.DemoAccountSummary{DemoAccount: account}
	var closed, wins int
	err = r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'open'),
			COUNT(*) FILTER (WHERE status = 'closed'),
			COUNT(*) FILTER (WHERE status = 'closed' AND pnl > 0),
			COALESCE(SUM(pnl) FILTER (WHERE status = 'closed' AND closed_at >= CURRENT_DATE), 0)::float8
		FROM demo_trades
		WHERE user_id = $1
	`, userID).Scan(&summary.TradeCount, &summary.OpenTrades, &closed, &wins, &summary.DailyPnL)
	if err != nil {
		return nil, fmt.Errorf("failed to get demo trade stats: %w", err)
	}

	if closed > 0 {
		summary.WinRate = roundTo(float64(wins)/float64(closed)*100, 2)
	}
	return summary, nil
}

// CreateAccount opens a demo account funded with initialBalance
func (r *DemoRepositoryImpl) CreateAccount(ctx context.Context, userID uuid.UUID, initialBalance float64) (*domain.DemoAccount, error) {
	a, err := scanDemoAccount(r.db.QueryRow(ctx, `
		INSERT INTO demo_accounts (user_id, initial_balance, balance, equity, free_margin)
		VALUES ($1, $2, $2, $2, $2)
		RETURNING `+demoAccountColumns, userID, initialBalance))
	if err != nil {
		if hasPgCode(err, pgUniqueViolation) {
			return nil, domain.ErrDemoAccountExists
		}
		return nil, fmt.Errorf("failed to create demo account: %w", err)
	}
	return a, nil
}

// ListTrades returns a page of the user's demo trades, newest first
func (r *DemoRepositoryImpl) ListTrades(ctx context.Context, userID uuid.UUID, status string, page domain.Page) ([]*domain.DemoTrade, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM demo_trades
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
	`, userID, status).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count demo trades: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+demoTradeColumns+` FROM demo_trades
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, userID, status, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query demo trades: %w", err)
	}

	trades, err := collectDemoTrades(rows)
	if err != nil {
		return nil, 0, err
	}
	return trades, total, nil
}

// ListOpenTradesWithStops returns every open trade carrying a stop loss or take profit
func (r *DemoRepositoryImpl) ListOpenTradesWithStops(ctx context.Context) ([]*domain.DemoTrade, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+demoTradeColumns+` FROM demo_trades
		WHERE status = 'open' AND (stop_loss IS NOT NULL OR take_profit IS NOT NULL)
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open demo trades: %w", err)
	}
	return collectDemoTrades(rows)
}

// RunInTx executes fn inside a serializable transaction
func (r *DemoRepositoryImpl) RunInTx(ctx context.Context, fn func(tx domain.DemoTx) error) error {
	return withSerializableTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&demoTx{tx: tx})
	})
}

// demoTx implements domain.DemoTx on a pgx transaction
type demoTx struct {
	tx pgx.Tx
}

func (t *demoTx) LockAccount(ctx context.Context, userID uuid.UUID) (*domain.DemoAccount, error) {
	a, err := scanDemoAccount(t.tx.QueryRow(ctx, `
		SELECT `+demoAccountColumns+` FROM demo_accounts WHERE user_id = $1 FOR UPDATE
	`, userID))
	if err != nil {
		return nil, wrapNotFound(err, "lock demo account")
	}
	return a, nil
}

func (t *demoTx) SaveAccount(ctx context.Context, a *domain.DemoAccount) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE demo_accounts SET
			balance = $2, equity = $3, margin_used = $4, free_margin = $5,
			margin_level = $6, total_pnl = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.Balance, a.Equity, a.MarginUsed, a.FreeMargin, a.MarginLevel, a.TotalPnL).Scan(&a.UpdatedAt)
	if err != nil {
		return wrapNotFound(err, "save demo account")
	}
	return nil
}

func (t *demoTx) CountOpenTrades(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM demo_trades WHERE user_id = $1 AND status = 'open'
	`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count open demo trades: %w", err)
	}
	return n, nil
}

func (t *demoTx) InsertTrade(ctx context.Context, trade *domain.DemoTrade) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO demo_trades (
			user_id, instrument, side, volume, open_price, current_price,
			stop_loss, take_profit, margin, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`,
		trade.UserID,
		trade.Instrument,
		trade.Side,
		trade.Volume,
		trade.OpenPrice,
		trade.CurrentPrice,
		trade.StopLoss,
		trade.TakeProfit,
		trade.Margin,
		trade.Status,
	).Scan(&trade.ID, &trade.CreatedAt, &trade.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert demo trade: %w", err)
	}
	return nil
}

func (t *demoTx) LockOpenTrade(ctx context.Context, id, userID uuid.UUID) (*domain.DemoTrade, error) {
	trade, err := scanDemoTrade(t.tx.QueryRow(ctx, `
		SELECT `+demoTradeColumns+` FROM demo_trades
		WHERE id = $1 AND user_id = $2 AND status = 'open'
		FOR UPDATE
	`, id, userID))
	if err != nil {
		return nil, wrapNotFound(err, "lock demo trade")
	}
	return trade, nil
}

func (t *demoTx) CloseTrade(ctx context.Context, trade *domain.DemoTrade) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE demo_trades SET
			status = $2, current_price = $3, exit_price = $4, pnl = $5,
			close_reason = $6, closed_at = $7, updated_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING updated_at
	`,
		trade.ID,
		trade.Status,
		trade.CurrentPrice,
		trade.ExitPrice,
		trade.PnL,
		trade.CloseReason,
		trade.ClosedAt,
	).Scan(&trade.UpdatedAt)
	if err != nil {
		return wrapNotFound(err, "close demo trade")
	}
	return nil
}

func (t *demoTx) CloseAllOpenTrades(ctx context.Context, userID uuid.UUID, reason string) (int, error) {
	return closeOpenDemoTrades(ctx, t.tx, userID, reason)
}

func (t *demoTx) GetRiskSettings(ctx context.Context, userID uuid.UUID) (*domain.RiskSettings, error) {
	return getRiskSettings(ctx, t.tx, userID)
}

func (t *demoTx) HasActiveBlocker(ctx context.Context, userID uuid.UUID, severity string) (bool, error) {
	return hasActiveBlocker(ctx, t.tx, userID, severity)
}

// closeOpenDemoTrades flattens every open demo trade at its open price with zero P&L
func closeOpenDemoTrades(ctx context.Context, q querier, userID uuid.UUID, reason string) (int, error) {
	tag, err := q.Exec(ctx, `
		UPDATE demo_trades SET
			status = 'closed', exit_price = open_price, current_price = open_price, pnl = 0,
			close_reason = $2, closed_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND status = 'open'
	`, userID, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to close open demo trades: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
