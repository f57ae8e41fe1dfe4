package database

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed seed/catalog.yaml
var defaultCatalog []byte

// Catalog is the seed content for learning paths and challenges
type Catalog struct {
	LearningPaths []SeedPath      `yaml:"learning_paths"`
	Challenges    []SeedChallenge `yaml:"challenges"`
}

// SeedPath is a learning path with its ordered modules
type SeedPath struct {
	Title            string       `yaml:"title"`
	Description      string       `yaml:"description"`
	LevelRequirement int          `yaml:"level_requirement"`
	TierRequirement  string       `yaml:"tier_requirement"`
	Modules          []SeedModule `yaml:"modules"`
}

// SeedModule is one lesson
type SeedModule struct {
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
	XPReward int    `yaml:"xp_reward"`
}

// SeedChallenge is a challenge scheduled relative to the seeding time
type SeedChallenge struct {
	Title           string         `yaml:"title"`
	Description     string         `yaml:"description"`
	Status          string         `yaml:"status"`
	StartOffsetDays int            `yaml:"start_offset_days"`
	DurationDays    int            `yaml:"duration_days"`
	MaxParticipants *int           `yaml:"max_participants"`
	Prize           string         `yaml:"prize"`
	Rules           map[string]any `yaml:"rules"`
}

// LoadCatalog parses a YAML catalog. An empty path loads the embedded default.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
		}
		data = raw
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for i, p := range c.LearningPaths {
		if p.Title == "" {
			return nil, fmt.Errorf("learning path %d has no title", i)
		}
		if p.LevelRequirement < 1 {
			c.LearningPaths[i].LevelRequirement = 1
		}
		if p.TierRequirement == "" {
			c.LearningPaths[i].TierRequirement = "free"
		}
	}
	return &c, nil
}

// Seed inserts the catalog. Existing paths, modules and challenges are left untouched.
func Seed(ctx context.Context, db *pgxpool.Pool, c *Catalog, now time.Time) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var paths, modules, challenges int

	for _, p := range c.LearningPaths {
		pathID, created, err := upsertPath(ctx, tx, p)
		if err != nil {
			return err
		}
		if created {
			paths++
		}

		for i, m := range p.Modules {
			tag, err := tx.Exec(ctx, `
				INSERT INTO learning_modules (path_id, title, content, order_index, xp_reward)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (path_id, order_index) DO NOTHING
			`, pathID, m.Title, m.Content, i+1, m.XPReward)
			if err != nil {
				return fmt.Errorf("failed to seed module %q: %w", m.Title, err)
			}
			modules += int(tag.RowsAffected())
		}
	}

	for _, ch := range c.Challenges {
		rules, err := json.Marshal(ch.Rules)
		if err != nil {
			return fmt.Errorf("failed to encode rules for %q: %w", ch.Title, err)
		}
		start := now.AddDate(0, 0, ch.StartOffsetDays)
		end := start.AddDate(0, 0, ch.DurationDays)

		tag, err := tx.Exec(ctx, `
			INSERT INTO challenges (title, description, status, start_date, end_date, max_participants, rules, prize)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
			ON CONFLICT (title) DO NOTHING
		`, ch.Title, ch.Description, ch.Status, start, end, ch.MaxParticipants, rules, ch.Prize)
		if err != nil {
			return fmt.Errorf("failed to seed challenge %q: %w", ch.Title, err)
		}
		challenges += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	zlog.Info().
		Int("paths", paths).
		Int("modules", modules).
		Int("challenges", challenges).
		Msg("Seed data applied")
	return nil
}

func upsertPath(ctx context.Context, tx pgx.Tx, p SeedPath) (id string, created bool, err error) {
	err = tx.QueryRow(ctx, `
		INSERT INTO learning_paths (title, description, level_requirement, tier_requirement)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (title) DO NOTHING
		RETURNING id::text
	`, p.Title, p.Description, p.LevelRequirement, p.TierRequirement).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, fmt.Errorf("failed to seed path %q: %w", p.Title, err)
	}

	if err := tx.QueryRow(ctx, `SELECT id::text FROM learning_paths WHERE title = $1`, p.Title).Scan(&id); err != nil {
		return "", false, fmt.Errorf("failed to load path %q: %w", p.Title, err)
	}
	return id, false, nil
}
