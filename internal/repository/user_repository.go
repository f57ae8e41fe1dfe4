package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceactiontalk/internal/domain"
)

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

const userColumns = `
	u.id, u.email, u.username, u.password_hash, u.subscription_tier, u.subscription_status,
	u.subscription_start_date, u.stripe_customer_id, u.xp, u.level, u.is_active, u.created_at, u.updated_at`

func scanUser(row pgx.Row, extra ...any) (*domain.User, error) {
	user := &domain.User{}
	dest := []any{
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.SubscriptionTier,
		&user.SubscriptionStatus,
		&user.SubscriptionStartDate,
		&user.StripeCustomerID,
		&user.XP,
		&user.Level,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return user, nil
}

// Create creates a new user together with an empty profile
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	return withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (email, username, password_hash)
			VALUES ($1, $2, $3)
			RETURNING id, subscription_tier, xp, level, is_active, created_at, updated_at
		`, user.Email, user.Username, user.PasswordHash).Scan(
			&user.ID,
			&user.SubscriptionTier,
			&user.XP,
			&user.Level,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			if hasPgCode(err, pgUniqueViolation) {
				return domain.ErrUserExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO user_profiles (user_id) VALUES ($1)`, user.ID); err != nil {
			return fmt.Errorf("failed to create user profile: %w", err)
		}
		return nil
	})
}

// ExistsByEmailOrUsername reports whether either identifier is already registered
func (r *UserRepositoryImpl) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR username = $2)
	`, email, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing user: %w", err)
	}
	return exists, nil
}

// GetByID retrieves a user by ID
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
	if err != nil {
		return nil, wrapNotFound(err, "get user by ID")
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1`, email))
	if err != nil {
		return nil, wrapNotFound(err, "get user by email")
	}
	return user, nil
}

// GetWithProfile retrieves the user joined with their profile
func (r *UserRepositoryImpl) GetWithProfile(ctx context.Context, id uuid.UUID) (*domain.UserWithProfile, error) {
	profile := &domain.Profile{UserID: id}
	var notifications *bool

	user, err := scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+`,
		       p.first_name, p.last_name, p.bio, p.avatar_url, p.timezone, p.theme, p.language, p.notifications_enabled
		FROM users u
		LEFT JOIN user_profiles p ON u.id = p.user_id
		WHERE u.id = $1
	`, id),
		&profile.FirstName,
		&profile.LastName,
		&profile.Bio,
		&profile.AvatarURL,
		&profile.Timezone,
		&profile.Theme,
		&profile.Language,
		&notifications,
	)
	if err != nil {
		return nil, wrapNotFound(err, "get user profile")
	}

	profile.NotificationsEnabled = notifications == nil || *notifications
	return &domain.UserWithProfile{User: user, Profile: profile}, nil
}

// UpdateProfile writes the set profile columns, creating the profile row if missing
func (r *UserRepositoryImpl) UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) error {
	cols, vals := update.Columns()
	if len(cols) == 0 {
		return domain.ErrNoFieldsToUpdate
	}

	// Column names come from the ProfileUpdate whitelist, never from input
	placeholders := make([]string, len(cols))
	assignments := make([]string, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		assignments[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}

	query := fmt.Sprintf(`
		INSERT INTO user_profiles (user_id, %s)
		VALUES ($1, %s)
		ON CONFLICT (user_id) DO UPDATE SET %s, updated_at = NOW()
	`, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(assignments, ", "))

	if _, err := r.db.Exec(ctx, query, append([]any{id}, vals...)...); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash
func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetStripeCustomerID links the user to a billing customer
func (r *UserRepositoryImpl) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2
	`, customerID, id)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer: %w", err)
	}
	return nil
}

// GetStats aggregates journal, learning and challenge activity
func (r *UserRepositoryImpl) GetStats(ctx context.Context, id uuid.UUID) (*domain.UserStats, error) {
	stats := &domain.UserStats{}

	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'closed' AND pnl > 0),
			COUNT(*) FILTER (WHERE status = 'closed' AND pnl < 0),
			COALESCE(SUM(pnl) FILTER (WHERE status = 'closed'), 0)::float8,
			COALESCE(AVG(pnl) FILTER (WHERE status = 'closed'), 0)::float8
		FROM trades
		WHERE user_id = $1
	`, id).Scan(
		&stats.Trading.TotalTrades,
		&stats.Trading.WinningTrades,
		&stats.Trading.LosingTrades,
		&stats.Trading.TotalPnL,
		&stats.Trading.AvgPnL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get trading stats: %w", err)
	}
	if stats.Trading.TotalTrades > 0 {
		stats.Trading.WinRate = roundTo(float64(stats.Trading.WinningTrades)/float64(stats.Trading.TotalTrades)*100, 2)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'completed')
		FROM user_progress
		WHERE user_id = $1
	`, id).Scan(&stats.Learning.TotalModules, &stats.Learning.CompletedModules)
	if err != nil {
		return nil, fmt.Errorf("failed to get learning stats: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'completed'), AVG(rank)::float8
		FROM challenge_participants
		WHERE user_id = $1
	`, id).Scan(
		&stats.Challenges.TotalChallenges,
		&stats.Challenges.CompletedChallenges,
		&stats.Challenges.AvgRank,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge stats: %w", err)
	}

	return stats, nil
}
