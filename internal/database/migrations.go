package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	zlog "github.com/rs/zerolog/log"
)

//go:embed migrations/001_init_schema.sql
var migrationSQL string

// RunMigrations applies the embedded schema. Every statement is idempotent so it is safe on each start.
func RunMigrations(ctx context.Context, db *pgxpool.Pool) error {
	zlog.Info().Msg("Running database migrations...")

	var existing bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'users'
		)
	`).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to check schema state: %w", err)
	}

	if _, err := db.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if existing {
		zlog.Info().Msg("Schema up to date")
	} else {
		zlog.Info().Msg("Database schema created")
	}
	return nil
}
