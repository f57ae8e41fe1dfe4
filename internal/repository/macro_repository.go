package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceactiontalk/internal/domain"
)

// MacroRepositoryImpl implements the MacroRepository interface
type MacroRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewMacroRepository creates a new MacroRepository
func NewMacroRepository(db *pgxpool.Pool) domain.MacroRepository {
	return &MacroRepositoryImpl{db: db}
}

const macroColumns = `
	id, currency, heat_score, cot_score, retail_sentiment_score,
	price_momentum_score, macro_surprise_score, factors, created_at`

func scanMacroBias(row pgx.Row) (*domain.MacroBias, error) {
	b := &domain.MacroBias{}
	err := row.Scan(
		&b.ID,
		&b.Currency,
		&b.HeatScore,
		&b.COTScore,
		&b.RetailSentimentScore,
		&b.PriceMomentumScore,
		&b.MacroSurpriseScore,
		&b.Factors,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *MacroRepositoryImpl) query(ctx context.Context, sql string, args ...any) ([]*domain.MacroBias, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query macro bias: %w", err)
	}
	defer rows.Close()

	biases := []*domain.MacroBias{}
	for rows.Next() {
		b, err := scanMacroBias(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan macro bias: %w", err)
		}
		biases = append(biases, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating macro bias: %w", err)
	}
	return biases, nil
}

// InsertBatch persists a set of observations in one transaction
func (r *MacroRepositoryImpl) InsertBatch(ctx context.Context, biases []*domain.MacroBias) error {
	return withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, b := range biases {
			batch.Queue(`
				INSERT INTO macro_bias (`+macroColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`,
				b.ID,
				b.Currency,
				b.HeatScore,
				b.COTScore,
				b.RetailSentimentScore,
				b.PriceMomentumScore,
				b.MacroSurpriseScore,
				b.Factors,
				b.CreatedAt,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert macro bias batch: %w", err)
		}
		return nil
	})
}

// Recent returns the newest observation per currency created after since
func (r *MacroRepositoryImpl) Recent(ctx context.Context, since time.Time) ([]*domain.MacroBias, error) {
	return r.query(ctx, `
		SELECT DISTINCT ON (currency) `+macroColumns+`
		FROM macro_bias
		WHERE created_at >= $1
		ORDER BY currency, created_at DESC
	`, since)
}

// History returns observations after since, newest first, optionally for one currency
func (r *MacroRepositoryImpl) History(ctx context.Context, currency string, since time.Time) ([]*domain.MacroBias, error) {
	return r.query(ctx, `
		SELECT `+macroColumns+`
		FROM macro_bias
		WHERE created_at >= $1 AND ($2 = '' OR currency = $2)
		ORDER BY created_at DESC
	`, since, currency)
}

// Latest returns the newest observation for currency created after since
func (r *MacroRepositoryImpl) Latest(ctx context.Context, currency string, since time.Time) (*domain.MacroBias, error) {
	b, err := scanMacroBias(r.db.QueryRow(ctx, `
		SELECT `+macroColumns+`
		FROM macro_bias
		WHERE currency = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`, currency, since))
	if err != nil {
		return nil, wrapNotFound(err, "get latest macro bias")
	}
	return b, nil
}
