package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	zlog "github.com/rs/zerolog/log"

	"priceactiontalk/internal/domain"
)

const (
	pgUniqueViolation        = "23505"
	pgSerializationFailure   = "40001"
	serializableRetryAttempt = 3
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// withTx runs fn in a transaction and commits when it returns nil
func withTx(ctx context.Context, db *pgxpool.Pool, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// withSerializableTx runs fn at SERIALIZABLE isolation, retrying serialization failures
func withSerializableTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= serializableRetryAttempt; attempt++ {
		err = withTx(ctx, db, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
		if !hasPgCode(err, pgSerializationFailure) {
			return err
		}
		zlog.Warn().Int("attempt", attempt).Msg("Serialization failure, retrying transaction")
	}
	return err
}

// hasPgCode reports whether err wraps a Postgres error with the given SQLSTATE
func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// wrapNotFound turns pgx.ErrNoRows into domain.ErrNotFound
func wrapNotFound(err error, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
