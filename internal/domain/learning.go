package domain

import (
	"time"

	"github.com/google/uuid"
)

// LearningPath groups ordered modules
type LearningPath struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	LevelRequirement int       `json:"level_requirement"`
	TierRequirement  string    `json:"tier_requirement"`
	ModuleCount      int       `json:"module_count"`
	CompletedModules int       `json:"completed_modules"`
	CreatedAt        time.Time `json:"created_at"`
}

// LearningModule is a lesson inside a path, with the caller's progress joined in
type LearningModule struct {
	ID          uuid.UUID  `json:"id"`
	PathID      uuid.UUID  `json:"path_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	OrderIndex  int        `json:"order_index"`
	XPReward    int        `json:"xp_reward"`
	UserStatus  *string    `json:"user_status"`
	Score       *float64   `json:"score"`
	Attempts    *int       `json:"attempts"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Progress statuses
const (
	ProgressNotStarted = "not_started"
	ProgressInProgress = "in_progress"
	ProgressCompleted  = "completed"
)

func progressRank(status string) int {
	switch status {
	case ProgressInProgress:
		return 1
	case ProgressCompleted:
		return 2
	default:
		return 0
	}
}

// CanTransition reports whether progress may move from one status to another.
// Progress only moves forward; repeating the current status is allowed.
func CanTransition(from, to string) bool {
	return progressRank(to) >= progressRank(from)
}

// UserProgress is a user's state on one module
type UserProgress struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	ModuleID    uuid.UUID  `json:"module_id"`
	Status      string     `json:"status"`
	Score       *float64   `json:"score"`
	Attempts    int        `json:"attempts"`
	CompletedAt *time.Time `json:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProgressEntry is a progress row joined with its path and module titles
type ProgressEntry struct {
	PathTitle   string     `json:"path_title"`
	ModuleTitle string     `json:"module_title"`
	Status      string     `json:"status"`
	Score       *float64   `json:"score"`
	CompletedAt *time.Time `json:"completed_at"`
	XPReward    int        `json:"xp_reward"`
}

// ProgressResult is returned after recording progress
type ProgressResult struct {
	Progress  *UserProgress `json:"progress"`
	XPAwarded int           `json:"xp_awarded"`
	XP        int           `json:"xp"`
	Level     int           `json:"level"`
}
