package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"priceactiontalk/internal/delivery/http/dto"
	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/middleware"
)

// LearningHandler handles learning paths and module progress
type LearningHandler struct {
	learningRepo domain.LearningRepository
	userRepo     domain.UserRepository
}

// NewLearningHandler creates a new LearningHandler
func NewLearningHandler(learningRepo domain.LearningRepository, userRepo domain.UserRepository) *LearningHandler {
	return &LearningHandler{
		learningRepo: learningRepo,
		userRepo:     userRepo,
	}
}

// ListPaths returns the paths unlocked at the user's level
// GET /api/learning/paths
func (h *LearningHandler) ListPaths(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// The token's level can be stale after XP awards, so read the stored one
	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	paths, err := h.learningRepo.ListPaths(ctx, userID, user.Level)
	if err != nil {
		return err
	}

	return SuccessResponse(c, paths)
}

// ListModules returns a path's modules with the user's progress
// GET /api/learning/paths/:pathId/modules
func (h *LearningHandler) ListModules(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	pathID, err := paramUUID(c, "pathId")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	modules, err := h.learningRepo.ListModules(ctx, userID, pathID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, modules)
}

// ListProgress returns every progress row of the user
// GET /api/learning/progress
func (h *LearningHandler) ListProgress(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	progress, err := h.learningRepo.ListProgress(ctx, userID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, progress)
}

// RecordProgress moves a module's progress forward
// POST /api/learning/modules/:moduleId/progress
func (h *LearningHandler) RecordProgress(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	moduleID, err := paramUUID(c, "moduleId")
	if err != nil {
		return err
	}

	var req dto.ProgressRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	result, err := h.learningRepo.RecordProgress(ctx, userID, moduleID, req.Status, req.Score)
	if errors.Is(err, domain.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Module not found")
	}
	if err != nil {
		return err
	}

	return SuccessMessageResponse(c, "Progress updated successfully", result)
}
