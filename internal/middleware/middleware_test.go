package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"priceactiontalk/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:               uuid.New(),
		Email:            "trader@example.com",
		Username:         "trader",
		SubscriptionTier: domain.TierBasic,
		XP:               150,
		Level:            2,
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	user := testUser()

	token, err := tokens.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := tokens.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Username != "trader" || claims.SubscriptionTier != domain.TierBasic || claims.Level != 2 {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestTokenService_RejectsForeignSecretAndExpiry(t *testing.T) {
	user := testUser()

	other, _ := NewTokenService("other", time.Hour).Generate(user)
	if _, err := NewTokenService("secret", time.Hour).Parse(other); err == nil {
		t.Error("expected error for token signed with another secret")
	}

	expired, _ := NewTokenService("secret", -time.Minute).Generate(user)
	_, err := NewTokenService("secret", time.Hour).Parse(expired)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	user := testUser()
	valid, _ := tokens.Generate(user)

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
	}{
		{
			name:       "missing token",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "malformed header",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Token abc")
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "invalid token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer not-a-jwt")
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "bearer token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+valid)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "cookie token",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: TokenCookie, Value: valid})
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := AuthMiddleware(tokens)(func(c echo.Context) error {
				id, err := GetUserID(c)
				if err != nil {
					return err
				}
				if id != user.ID {
					t.Errorf("user id = %s, want %s", id, user.ID)
				}
				return c.NoContent(http.StatusOK)
			})

			err := handler(c)
			status := rec.Code
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("1.1.1.1") || !l.Allow("1.1.1.1") {
		t.Fatal("expected the first two requests to pass")
	}
	if l.Allow("1.1.1.1") {
		t.Error("expected third request to be limited")
	}
	if !l.Allow("2.2.2.2") {
		t.Error("expected a different IP to have its own bucket")
	}

	now = now.Add(30 * time.Second)
	if !l.Allow("1.1.1.1") {
		t.Error("expected a token after refill")
	}

	now = now.Add(2 * time.Minute)
	l.Cleanup()
	if len(l.visitors) != 0 {
		t.Errorf("expected idle visitors to be evicted, have %d", len(l.visitors))
	}
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(1, time.Hour)
	e := echo.New()
	handler := l.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	call := func() error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		return handler(e.NewContext(req, httptest.NewRecorder()))
	}

	if err := call(); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	err := call()
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %v", err)
	}
}
