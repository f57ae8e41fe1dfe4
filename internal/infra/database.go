package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	zlog "github.com/rs/zerolog/log"
)

// NewDatabase creates a new database connection pool with optimized settings
func NewDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	zlog.Info().Msg("Connecting to PostgreSQL database...")

	// Parse configuration
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Pool sizing
	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	// Every statement goes through the query logger
	config.ConnConfig.Tracer = &QueryTracer{SlowThreshold: 500 * time.Millisecond}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	zlog.Info().Int32("max_conns", config.MaxConns).Msg("Database connected successfully")
	return pool, nil
}

type queryStartKey struct{}

type queryStart struct {
	sql   string
	start time.Time
}

// QueryTracer logs each executed statement with its duration and affected row count.
// Statements slower than SlowThreshold are logged at warn level.
type QueryTracer struct {
	SlowThreshold time.Duration
}

// TraceQueryStart implements pgx.QueryTracer
func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, start: time.Now()})
}

// TraceQueryEnd implements pgx.QueryTracer
func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qs, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(qs.start)

	event := zlog.Debug()
	if data.Err != nil {
		event = zlog.Error().Err(data.Err)
	} else if t.SlowThreshold > 0 && elapsed > t.SlowThreshold {
		event = zlog.Warn()
	}

	event.
		Str("sql", compactSQL(qs.sql)).
		Dur("duration", elapsed).
		Int64("rows", data.CommandTag.RowsAffected()).
		Msg("query executed")
}

// compactSQL collapses whitespace so multi-line statements log on one line
func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
