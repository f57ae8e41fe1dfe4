package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"priceactiontalk/internal/domain"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID = "user_id"
	ContextClaims = "claims"
)

// TokenCookie is the name of the HTTP-only cookie carrying the JWT
const TokenCookie = "token"

var errMissingToken = errors.New("missing token")

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	UserID           uuid.UUID `json:"user_id"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	SubscriptionTier string    `json:"subscription_tier"`
	XP               int       `json:"xp"`
	Level            int       `json:"level"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// TTL returns the token lifetime
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate issues a token for user
func (s *TokenService) Generate(user *domain.User) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID:           user.ID,
		Email:            user.Email,
		Username:         user.Username,
		SubscriptionTier: user.SubscriptionTier,
		XP:               user.XP,
		Level:            user.Level,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies tokenString and returns its claims
func (s *TokenService) Parse(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// extractToken reads the bearer token from the Authorization header, falling back to the cookie
func extractToken(c echo.Context) (string, error) {
	if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", errMissingToken
		}
		return parts[1], nil
	}

	cookie, err := c.Cookie(TokenCookie)
	if err != nil || cookie.Value == "" {
		return "", errMissingToken
	}
	return cookie.Value, nil
}

// AuthMiddleware validates the JWT and sets the user on the echo context
func AuthMiddleware(tokens *TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := extractToken(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access token required")
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "Invalid or expired token")
			}

			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextClaims, claims)

			return next(c)
		}
	}
}

// GetUserID extracts user ID from echo context
func GetUserID(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get(ContextUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return userID, nil
}

// GetClaims extracts the token claims from echo context
func GetClaims(c echo.Context) (*JWTClaims, error) {
	claims, ok := c.Get(ContextClaims).(*JWTClaims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return claims, nil
}
