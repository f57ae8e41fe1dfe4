package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"priceactiontalk/internal/delivery/http/dto"
	"priceactiontalk/internal/domain"
	"priceactiontalk/internal/middleware"
)

// PasswordCost is the bcrypt work factor for stored passwords
const PasswordCost = 12

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userRepo     domain.UserRepository
	tokens       *middleware.TokenService
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo domain.UserRepository, tokens *middleware.TokenService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		userRepo:     userRepo,
		tokens:       tokens,
		secureCookie: secureCookie,
	}
}

// Register handles user registration
// POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	exists, err := h.userRepo.ExistsByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), PasswordCost)
	if err != nil {
		return err
	}

	user := &domain.User{
		Email:            req.Email,
		Username:         req.Username,
		PasswordHash:     string(hash),
		SubscriptionTier: domain.TierFree,
		Level:            1,
		IsActive:         true,
	}
	if err := h.userRepo.Create(ctx, user); err != nil {
		return err
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		return err
	}

	zlog.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("User registered")
	return CreatedResponse(c, dto.AuthResponse{User: user, Token: token})
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidCredentials
	}
	if err != nil {
		return err
	}

	if !user.IsActive {
		return domain.ErrAccountDeactivated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return domain.ErrInvalidCredentials
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.tokens.TTL().Seconds()),
	})

	return SuccessMessageResponse(c, "Login successful", dto.AuthResponse{User: user, Token: token})
}

// Me returns the current user with their profile
// GET /api/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
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

// Logout clears the auth cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return SuccessMessageResponse(c, "Logged out successfully", nil)
}
