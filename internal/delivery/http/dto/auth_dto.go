package dto

import "priceactiontalk/internal/domain"

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}
