package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"priceactiontalk/internal/database"
	"priceactiontalk/internal/domain"
)

// testPool connects to TEST_DATABASE_URL and applies the schema. Tests skip when it is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func createTestUser(t *testing.T, db *pgxpool.Pool) uuid.UUID {
	t.Helper()
	suffix := uuid.NewString()[:8]

	var id uuid.UUID
	err := db.QueryRow(context.Background(), `
		INSERT INTO users (email, username, password_hash) VALUES ($1, $2, 'x') RETURNING id
	`, "u"+suffix+"@test.local", "u"+suffix).Scan(&id)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		db.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func createTestChallenge(t *testing.T, db *pgxpool.Pool, status string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := db.QueryRow(context.Background(), `
		INSERT INTO challenges (title, status, start_date, end_date)
		VALUES ($1, $2, NOW(), NOW() + INTERVAL '7 days')
		RETURNING id
	`, "challenge "+uuid.NewString(), status).Scan(&id)
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	t.Cleanup(func() {
		db.Exec(context.Background(), `DELETE FROM challenges WHERE id = $1`, id)
	})
	return id
}

func TestLearningRepository_ConcurrentCompletionAwardsOnce(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	userID := createTestUser(t, db)

	var pathID, moduleID uuid.UUID
	err := db.QueryRow(ctx, `INSERT INTO learning_paths (title) VALUES ($1) RETURNING id`, "path "+uuid.NewString()).Scan(&pathID)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Exec(ctx, `DELETE FROM learning_paths WHERE id = $1`, pathID) })

	err = db.QueryRow(ctx, `
		INSERT INTO learning_modules (path_id, title, order_index, xp_reward) VALUES ($1, 'Intro', 1, 50) RETURNING id
	`, pathID).Scan(&moduleID)
	if err != nil {
		t.Fatal(err)
	}

	repo := NewLearningRepository(db)

	const workers = 8
	var wg sync.WaitGroup
	awarded := make([]int, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := repo.RecordProgress(ctx, userID, moduleID, domain.ProgressCompleted, nil)
			if err != nil {
				errs[i] = err
				return
			}
			awarded[i] = res.XPAwarded
		}(i)
	}
	wg.Wait()

	total := 0
	for i := range awarded {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		total += awarded[i]
	}
	if total != 50 {
		t.Errorf("xp awarded across workers = %d, want 50", total)
	}

	var xp int
	if err := db.QueryRow(ctx, `SELECT xp FROM users WHERE id = $1`, userID).Scan(&xp); err != nil {
		t.Fatal(err)
	}
	if xp != 50 {
		t.Errorf("user xp = %d, want 50", xp)
	}
}

func TestCommunityRepository_JoinChallenge(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	repo := NewCommunityRepository(db)
	userID := createTestUser(t, db)

	tests := []struct {
		status  string
		wantErr error
	}{
		{domain.ChallengeUpcoming, domain.ErrChallengeNotActive},
		{domain.ChallengeCompleted, domain.ErrChallengeNotActive},
		{domain.ChallengeActive, nil},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			challengeID := createTestChallenge(t, db, tt.status)

			err := repo.JoinChallenge(ctx, challengeID, userID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("JoinChallenge(%s) = %v, want %v", tt.status, err, tt.wantErr)
			}
		})
	}

	t.Run("missing challenge", func(t *testing.T) {
		if err := repo.JoinChallenge(ctx, uuid.New(), userID); !errors.Is(err, domain.ErrChallengeNotActive) {
			t.Errorf("expected ErrChallengeNotActive, got %v", err)
		}
	})
}
