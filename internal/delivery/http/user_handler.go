package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"priceactiontalk/internal/delivery/http/dto"
	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/middleware"
)

// UserHandler handles profile and account requests
type UserHandler struct {
	userRepo domain.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo domain.UserRepository) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
	}
}

// GetProfile returns the user joined with their profile
// GET /api/users/profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.userRepo.GetWithProfile(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if err != nil {
		return err
	}

	return SuccessResponse(c, user)
}

// UpdateProfile updates the whitelisted profile fields
// PUT /api/users/profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req dto.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.userRepo.UpdateProfile(ctx, userID, req.ToDomain()); err != nil {
		return err
	}

	user, err := h.userRepo.GetWithProfile(ctx, userID)
	if err != nil {
		return err
	}

	return SuccessMessageResponse(c, "Profile updated successfully", user)
}

// GetStats returns trading, learning and challenge statistics
// GET /api/users/stats
func (h *UserHandler) GetStats(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.userRepo.GetStats(ctx, userID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, stats)
}

// ChangePassword replaces the password after verifying the current one
// POST /api/users/change-password
func (h *UserHandler) ChangePassword(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req dto.ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.userRepo.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return domain.ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), PasswordCost)
	if err != nil {
		return err
	}

	if err := h.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	return SuccessMessageResponse(c, "Password changed successfully", nil)
}
