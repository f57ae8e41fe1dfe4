package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	zlog "github.com/rs/zerolog/log"
)

// FanoutChannel is the Postgres NOTIFY channel shared by all relay instances
const FanoutChannel = "ws_fanout"

// maxNotifyPayload is the Postgres limit on a NOTIFY payload
const maxNotifyPayload = 8000

// Envelope is a room broadcast in transit.
// Exclude holds the id of a client that must not receive it.
type Envelope struct {
	Room    string          `json:"room"`
	Exclude string          `json:"exclude,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Broker carries room broadcasts to every hub that serves the room
type Broker interface {
	Publish(ctx context.Context, env Envelope) error

	// Run delivers published envelopes to deliver until ctx is done
	Run(ctx context.Context, deliver func(Envelope)) error
}

// LocalBroker delivers within the process
type LocalBroker struct {
	queue chan Envelope
}

// NewLocalBroker creates a LocalBroker with a bounded queue
func NewLocalBroker(size int) *LocalBroker {
	return &LocalBroker{queue: make(chan Envelope, size)}
}

// Publish queues env for delivery
func (b *LocalBroker) Publish(ctx context.Context, env Envelope) error {
	select {
	case b.queue <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run implements Broker
func (b *LocalBroker) Run(ctx context.Context, deliver func(Envelope)) error {
	for {
		select {
		case env := <-b.queue:
			deliver(env)
		case <-ctx.Done():
			return nil
		}
	}
}

// PostgresBroker fans out through LISTEN/NOTIFY so every instance reaches its own clients
type PostgresBroker struct {
	pool       *pgxpool.Pool
	retryDelay time.Duration
}

// NewPostgresBroker creates a PostgresBroker on pool
func NewPostgresBroker(pool *pgxpool.Pool) *PostgresBroker {
	return &PostgresBroker{pool: pool, retryDelay: 2 * time.Second}
}

// Publish sends env to every listening instance, this one included
func (b *PostgresBroker) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	if len(payload) > maxNotifyPayload {
		return fmt.Errorf("envelope for room %s exceeds %d bytes", env.Room, maxNotifyPayload)
	}

	if _, err := b.pool.Exec(ctx, "SELECT pg_notify($1, $2)", FanoutChannel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify: %w", err)
	}
	return nil
}

// Run listens on a dedicated connection and reconnects after failures
func (b *PostgresBroker) Run(ctx context.Context, deliver func(Envelope)) error {
	for {
		err := b.listen(ctx, deliver)
		if ctx.Err() != nil {
			return nil
		}
		zlog.Error().Err(err).Dur("retry_in", b.retryDelay).Msg("Fanout listener stopped")

		select {
		case <-time.After(b.retryDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *PostgresBroker) listen(ctx context.Context, deliver func(Envelope)) error {
	pooled, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	// LISTEN state must not leak back into the pool
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+FanoutChannel); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	zlog.Info().Str("channel", FanoutChannel).Msg("Fanout listener started")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("failed waiting for notification: %w", err)
		}

		var env Envelope
		if err := json.Unmarshal([]byte(n.Payload), &env); err != nil {
			zlog.Warn().Err(err).Msg("Dropping malformed fanout envelope")
			continue
		}
		deliver(env)
	}
}
