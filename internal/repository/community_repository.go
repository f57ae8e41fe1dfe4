package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceactiontalk/internal/domain"
)

// CommunityRepositoryImpl implements the CommunityRepository interface
type CommunityRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewCommunityRepository creates a new CommunityRepository
func NewCommunityRepository(db *pgxpool.Pool) domain.CommunityRepository {
	return &CommunityRepositoryImpl{db: db}
}

// ListChallenges returns upcoming and active challenges with participant counts
func (r *CommunityRepositoryImpl) ListChallenges(ctx context.Context) ([]*domain.Challenge, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			c.id, c.title, c.description, c.status, c.start_date, c.end_date,
			c.max_participants, c.rules, c.prize, c.created_at,
			COUNT(cp.id)
		FROM challenges c
		LEFT JOIN challenge_participants cp ON c.id = cp.challenge_id
		WHERE c.status IN ('upcoming', 'active')
		GROUP BY c.id
		ORDER BY c.start_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}
	defer rows.Close()

	challenges := []*domain.Challenge{}
	for rows.Next() {
		c := &domain.Challenge{}
		var rules []byte
		err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Description,
			&c.Status,
			&c.StartDate,
			&c.EndDate,
			&c.MaxParticipants,
			&rules,
			&c.Prize,
			&c.CreatedAt,
			&c.ParticipantCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		c.Rules = rules
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}
	return challenges, nil
}

// JoinChallenge registers the user with the challenge row locked against concurrent joins
func (r *CommunityRepositoryImpl) JoinChallenge(ctx context.Context, challengeID, userID uuid.UUID) error {
	return withTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var maxParticipants *int
		err := tx.QueryRow(ctx, `
			SELECT max_participants FROM challenges
			WHERE id = $1 AND status = $2
			FOR UPDATE
		`, challengeID, domain.ChallengeActive).Scan(&maxParticipants)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrChallengeNotActive
		}
		if err != nil {
			return fmt.Errorf("failed to lock challenge: %w", err)
		}

		var joined bool
		var count int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*), COALESCE(BOOL_OR(user_id = $2), false)
			FROM challenge_participants
			WHERE challenge_id = $1
		`, challengeID, userID).Scan(&count, &joined)
		if err != nil {
			return fmt.Errorf("failed to count participants: %w", err)
		}
		if joined {
			return domain.ErrAlreadyJoined
		}
		if maxParticipants != nil && count >= *maxParticipants {
			return domain.ErrChallengeFull
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO challenge_participants (challenge_id, user_id) VALUES ($1, $2)
		`, challengeID, userID)
		if err != nil {
			if hasPgCode(err, pgUniqueViolation) {
				return domain.ErrAlreadyJoined
			}
			return fmt.Errorf("failed to join challenge: %w", err)
		}
		return nil
	})
}

// Leaderboard returns participants ranked, unranked last
func (r *CommunityRepositoryImpl) Leaderboard(ctx context.Context, challengeID uuid.UUID) ([]*domain.ChallengeParticipant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT cp.id, cp.challenge_id, cp.user_id, u.username, u.level,
		       cp.final_score::float8, cp.rank, cp.status, cp.joined_at
		FROM challenge_participants cp
		JOIN users u ON cp.user_id = u.id
		WHERE cp.challenge_id = $1
		ORDER BY cp.rank ASC NULLS LAST, cp.final_score DESC NULLS LAST
	`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	participants := []*domain.ChallengeParticipant{}
	for rows.Next() {
		p := &domain.ChallengeParticipant{}
		err := rows.Scan(
			&p.ID,
			&p.ChallengeID,
			&p.UserID,
			&p.Username,
			&p.Level,
			&p.FinalScore,
			&p.Rank,
			&p.Status,
			&p.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}
	return participants, nil
}

// ListMessages returns the newest limit messages in chronological order
func (r *CommunityRepositoryImpl) ListMessages(ctx context.Context, room string, limit int) ([]*domain.ChatMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT * FROM (
			SELECT cm.id, cm.user_id, u.username, u.level, cm.room, cm.content, cm.timestamp
			FROM chat_messages cm
			JOIN users u ON cm.user_id = u.id
			WHERE cm.room = $1
			ORDER BY cm.timestamp DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC
	`, room, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	messages := []*domain.ChatMessage{}
	for rows.Next() {
		m := &domain.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &m.Level, &m.Room, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}
	return messages, nil
}

// CreateMessage persists a chat message and returns it with the author's name and level
func (r *CommunityRepositoryImpl) CreateMessage(ctx context.Context, userID uuid.UUID, room, content string) (*domain.ChatMessage, error) {
	m := &domain.ChatMessage{}
	err := r.db.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO chat_messages (user_id, room, content)
			VALUES ($1, $2, $3)
			RETURNING id, user_id, room, content, timestamp
		)
		SELECT i.id, i.user_id, u.username, u.level, i.room, i.content, i.timestamp
		FROM inserted i
		JOIN users u ON i.user_id = u.id
	`, userID, room, content).Scan(&m.ID, &m.UserID, &m.Username, &m.Level, &m.Room, &m.Content, &m.Timestamp)
	if err != nil {
		return nil, wrapNotFound(err, "create chat message")
	}
	return m, nil
}
