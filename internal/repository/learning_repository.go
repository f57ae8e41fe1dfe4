package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceactiontalk/internal/domain"
)

// LearningRepositoryImpl implements the LearningRepository interface
type LearningRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewLearningRepository creates a new LearningRepository
func NewLearningRepository(db *pgxpool.Pool) domain.LearningRepository {
	return &LearningRepositoryImpl{db: db}
}

// ListPaths returns the paths unlocked at level with the user's completion counts
func (r *LearningRepositoryImpl) ListPaths(ctx context.Context, userID uuid.UUID, level int) ([]*domain.LearningPath, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			lp.id, lp.title, lp.description, lp.level_requirement, lp.tier_requirement, lp.created_at,
			COUNT(lm.id),
			COUNT(up.id) FILTER (WHERE up.status = 'completed')
		FROM learning_paths lp
		LEFT JOIN learning_modules lm ON lp.id = lm.path_id
		LEFT JOIN user_progress up ON lm.id = up.module_id AND up.user_id = $1
		WHERE lp.level_requirement <= $2
		GROUP BY lp.id
		ORDER BY lp.level_requirement, lp.created_at
	`, userID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to query learning paths: %w", err)
	}
	defer rows.Close()

	paths := []*domain.LearningPath{}
	for rows.Next() {
		p := &domain.LearningPath{}
		err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Description,
			&p.LevelRequirement,
			&p.TierRequirement,
			&p.CreatedAt,
			&p.ModuleCount,
			&p.CompletedModules,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan learning path: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating learning paths: %w", err)
	}
	return paths, nil
}

// ListModules returns a path's modules in order with the user's progress joined in
func (r *LearningRepositoryImpl) ListModules(ctx context.Context, userID, pathID uuid.UUID) ([]*domain.LearningModule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			lm.id, lm.path_id, lm.title, lm.content, lm.order_index, lm.xp_reward,
			up.status, up.score::float8, up.attempts, up.completed_at
		FROM learning_modules lm
		LEFT JOIN user_progress up ON lm.id = up.module_id AND up.user_id = $1
		WHERE lm.path_id = $2
		ORDER BY lm.order_index
	`, userID, pathID)
	if err != nil {
		return nil, fmt.Errorf("failed to query learning modules: %w", err)
	}
	defer rows.Close()

	modules := []*domain.LearningModule{}
	for rows.Next() {
		m := &domain.LearningModule{}
		err := rows.Scan(
			&m.ID,
			&m.PathID,
			&m.Title,
			&m.Content,
			&m.OrderIndex,
			&m.XPReward,
			&m.UserStatus,
			&m.Score,
			&m.Attempts,
			&m.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan learning module: %w", err)
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating learning modules: %w", err)
	}
	return modules, nil
}

// ListProgress returns the user's progress rows with path and module titles
func (r *LearningRepositoryImpl) ListProgress(ctx context.Context, userID uuid.UUID) ([]*domain.ProgressEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT lp.title, lm.title, up.status, up.score::float8, up.completed_at, lm.xp_reward
		FROM user_progress up
		JOIN learning_modules lm ON up.module_id = lm.id
		JOIN learning_paths lp ON lm.path_id = lp.id
		WHERE up.user_id = $1
		ORDER BY lp.level_requirement, lm.order_index
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	entries := []*domain.ProgressEntry{}
	for rows.Next() {
		e := &domain.ProgressEntry{}
		if err := rows.Scan(&e.PathTitle, &e.ModuleTitle, &e.Status, &e.Score, &e.CompletedAt, &e.XPReward); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress: %w", err)
	}
	return entries, nil
}

// RecordProgress moves a module's progress forward and awards XP on first completion
func (r *LearningRepositoryImpl) RecordProgress(ctx context.Context, userID, moduleID uuid.UUID, status string, score *float64) (*domain.ProgressResult, error) {
	result := &domain.ProgressResult{}

	err := withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var xpReward int
		err := tx.QueryRow(ctx, `SELECT xp_reward FROM learning_modules WHERE id = $1`, moduleID).Scan(&xpReward)
		if err != nil {
			return wrapNotFound(err, "get learning module")
		}

		// The progress row may not exist yet, so the user row serializes concurrent updates
		_, err = tx.Exec(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID)
		if err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		current := domain.ProgressNotStarted
		err = tx.QueryRow(ctx, `
			SELECT status FROM user_progress WHERE user_id = $1 AND module_id = $2 FOR UPDATE
		`, userID, moduleID).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to get progress: %w", err)
		}

		if !domain.CanTransition(current, status) {
			return domain.ErrInvalidTransition
		}
		firstCompletion := status == domain.ProgressCompleted && current != domain.ProgressCompleted

		var completedAt *time.Time
		if status == domain.ProgressCompleted {
			now := time.Now()
			completedAt = &now
		}

		p := &domain.UserProgress{}
		err = tx.QueryRow(ctx, `
			INSERT INTO user_progress (user_id, module_id, status, score, attempts, completed_at)
			VALUES ($1, $2, $3, $4, 1, $5)
			ON CONFLICT (user_id, module_id) DO UPDATE SET
				status = EXCLUDED.status,
				score = COALESCE(EXCLUDED.score, user_progress.score),
				attempts = user_progress.attempts + 1,
				completed_at = COALESCE(user_progress.completed_at, EXCLUDED.completed_at),
				updated_at = NOW()
			RETURNING id, user_id, module_id, status, score::float8, attempts, completed_at, updated_at
		`, userID, moduleID, status, score, completedAt).Scan(
			&p.ID,
			&p.UserID,
			&p.ModuleID,
			&p.Status,
			&p.Score,
			&p.Attempts,
			&p.CompletedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to record progress: %w", err)
		}
		result.Progress = p

		if !firstCompletion {
			err := tx.QueryRow(ctx, `SELECT xp, level FROM users WHERE id = $1`, userID).Scan(&result.XP, &result.Level)
			if err != nil {
				return wrapNotFound(err, "get user xp")
			}
			return nil
		}

		var xp int
		err = tx.QueryRow(ctx, `
			UPDATE users SET xp = xp + $2, updated_at = NOW() WHERE id = $1 RETURNING xp
		`, userID, xpReward).Scan(&xp)
		if err != nil {
			return wrapNotFound(err, "award xp")
		}

		level := domain.LevelForXP(xp)
		if _, err := tx.Exec(ctx, `UPDATE users SET level = $2 WHERE id = $1`, userID, level); err != nil {
			return fmt.Errorf("failed to update level: %w", err)
		}

		result.XPAwarded = xpReward
		result.XP = xp
		result.Level = level
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
