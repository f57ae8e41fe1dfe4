package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceactiontalk/internal/domain"
)

// SubscriptionRepositoryImpl implements the SubscriptionRepository interface
type SubscriptionRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(db *pgxpool.Pool) domain.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{db: db}
}

const subscriptionColumns = `
	id, user_id, stripe_subscription_id, stripe_customer_id, plan_type, status,
	current_period_start, current_period_end, cancel_at_period_end, cancelled_at,
	created_at, updated_at`

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	s := &domain.Subscription{}
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.StripeSubscriptionID,
		&s.StripeCustomerID,
		&s.PlanType,
		&s.Status,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.CancelAtPeriodEnd,
		&s.CancelledAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreatePaymentSession records a pending checkout
func (r *SubscriptionRepositoryImpl) CreatePaymentSession(ctx context.Context, session *domain.PaymentSession) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO payment_sessions (user_id, session_id, plan_type, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, session.UserID, session.SessionID, session.PlanType, session.Amount, session.Status).Scan(
		&session.ID,
		&session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment session: %w", err)
	}
	return nil
}

// GetPaymentSession retrieves a checkout owned by the user
func (r *SubscriptionRepositoryImpl) GetPaymentSession(ctx context.Context, sessionID string, userID uuid.UUID) (*domain.PaymentSession, error) {
	s := &domain.PaymentSession{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, session_id, plan_type, amount, status, stripe_payment_intent_id, created_at
		FROM payment_sessions
		WHERE session_id = $1 AND user_id = $2
	`, sessionID, userID).Scan(
		&s.ID,
		&s.UserID,
		&s.SessionID,
		&s.PlanType,
		&s.Amount,
		&s.Status,
		&s.StripePaymentIntentID,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, wrapNotFound(err, "get payment session")
	}
	return s, nil
}

// LatestForUser returns the user's newest subscription in any status
func (r *SubscriptionRepositoryImpl) LatestForUser(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID))
	if err != nil {
		return nil, wrapNotFound(err, "get latest subscription")
	}
	return s, nil
}

// ActiveForUser returns the user's newest active or trialing subscription
func (r *SubscriptionRepositoryImpl) ActiveForUser(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = $1 AND status IN ('active', 'trialing')
		ORDER BY created_at DESC
		LIMIT 1
	`, userID))
	if err != nil {
		return nil, wrapNotFound(err, "get active subscription")
	}
	return s, nil
}

// Sync upserts the subscription and updates the owner's tier in one transaction
func (r *SubscriptionRepositoryImpl) Sync(ctx context.Context, sync domain.SubscriptionSync) error {
	return withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var userID uuid.UUID
		if sync.UserID != nil {
			userID = *sync.UserID
		} else {
			err := tx.QueryRow(ctx, `
				SELECT user_id FROM subscriptions WHERE stripe_subscription_id = $1
				UNION ALL
				SELECT id FROM users WHERE stripe_customer_id = $2
				LIMIT 1
			`, sync.StripeSubscriptionID, sync.CustomerID).Scan(&userID)
			if err != nil {
				return wrapNotFound(err, "resolve subscription owner")
			}
		}

		var plan string
		err := tx.QueryRow(ctx, `
			INSERT INTO subscriptions (
				user_id, stripe_subscription_id, stripe_customer_id, plan_type, status,
				current_period_start, current_period_end, cancel_at_period_end
			) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
			ON CONFLICT (stripe_subscription_id) DO UPDATE SET
				stripe_customer_id = COALESCE(EXCLUDED.stripe_customer_id, subscriptions.stripe_customer_id),
				plan_type = COALESCE(NULLIF(EXCLUDED.plan_type, ''), subscriptions.plan_type),
				status = EXCLUDED.status,
				current_period_start = COALESCE(EXCLUDED.current_period_start, subscriptions.current_period_start),
				current_period_end = COALESCE(EXCLUDED.current_period_end, subscriptions.current_period_end),
				cancel_at_period_end = EXCLUDED.cancel_at_period_end,
				updated_at = NOW()
			RETURNING plan_type
		`,
			userID,
			sync.StripeSubscriptionID,
			sync.CustomerID,
			sync.Plan,
			sync.Status,
			sync.PeriodStart,
			sync.PeriodEnd,
			sync.CancelAtPeriodEnd,
		).Scan(&plan)
		if err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		tier := domain.TierFree
		if (&domain.Subscription{Status: sync.Status}).IsEntitled() && plan != "" {
			tier = plan
		}

		_, err = tx.Exec(ctx, `
			UPDATE users SET
				subscription_tier = $2,
				subscription_status = $3,
				subscription_start_date = CASE WHEN $2 <> 'free' THEN COALESCE(subscription_start_date, NOW()) ELSE subscription_start_date END,
				stripe_customer_id = COALESCE(stripe_customer_id, NULLIF($4, '')),
				updated_at = NOW()
			WHERE id = $1
		`, userID, tier, sync.Status, sync.CustomerID)
		if err != nil {
			return fmt.Errorf("failed to update user subscription: %w", err)
		}

		if sync.SessionID != "" {
			_, err = tx.Exec(ctx, `
				UPDATE payment_sessions SET
					status = 'completed',
					stripe_payment_intent_id = COALESCE(NULLIF($2, ''), stripe_payment_intent_id),
					updated_at = NOW()
				WHERE session_id = $1
			`, sync.SessionID, sync.PaymentIntentID)
			if err != nil {
				return fmt.Errorf("failed to complete payment session: %w", err)
			}
		}
		return nil
	})
}

// MarkCancelled flags the subscription as cancelled at period end
func (r *SubscriptionRepositoryImpl) MarkCancelled(ctx context.Context, stripeSubscriptionID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE subscriptions SET
			status = 'cancelled', cancel_at_period_end = true, cancelled_at = NOW(), updated_at = NOW()
		WHERE stripe_subscription_id = $1
	`, stripeSubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetStatus updates the subscription and owner status
func (r *SubscriptionRepositoryImpl) SetStatus(ctx context.Context, stripeSubscriptionID, status string) error {
	return withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var userID uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE subscriptions SET status = $2, updated_at = NOW()
			WHERE stripe_subscription_id = $1
			RETURNING user_id
		`, stripeSubscriptionID, status).Scan(&userID)
		if err != nil {
			return wrapNotFound(err, "set subscription status")
		}

		_, err = tx.Exec(ctx, `
			UPDATE users SET subscription_status = $2, updated_at = NOW() WHERE id = $1
		`, userID, status)
		if err != nil {
			return fmt.Errorf("failed to update user subscription status: %w", err)
		}
		return nil
	})
}
