package configs

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Stripe    StripeConfig
	WebSocket WebSocketConfig
	Jobs      JobsConfig
	Debug     bool
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        string
	Env         string
	CORSOrigins []string
}

// IsProduction reports whether the server runs in production mode
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds JWT settings
type AuthConfig struct {
	JWTSecret string
	ExpiresIn time.Duration
}

// RateLimitConfig holds the per-client request budget for /api
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// StripeConfig holds Stripe credentials and price mapping
type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	BasicPriceID   string
	PremiumPriceID string
}

// WebSocketConfig holds relay settings
type WebSocketConfig struct {
	Port   string
	Fanout string // "local" or "postgres"
}

// JobsConfig holds cron specs for background jobs. An empty spec disables the job.
type JobsConfig struct {
	MockFeed       string
	DemoStopCheck  string
	MacroMockRegen string
}

// setDefaults registers the default value of every known key
func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3001")
	v.SetDefault("WS_PORT", "3002")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "priceactiontalk")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "default-secret-change-in-production")
	v.SetDefault("JWT_EXPIRES_IN", "7d")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("WS_FANOUT", "local")
	v.SetDefault("MOCK_FEED_SCHEDULE", "@every 5s")
	v.SetDefault("DEMO_STOP_CHECK_SCHEDULE", "*/1 * * * *")
	v.SetDefault("MACRO_MOCK_SCHEDULE", "")
	v.SetDefault("DEBUG", false)
}

// Load loads configuration from environment variables and an optional config file.
// configFile may be empty.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	expiresIn, err := ParseDuration(v.GetString("JWT_EXPIRES_IN"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRES_IN: %w", err)
	}

	window, err := ParseDuration(v.GetString("RATE_LIMIT_WINDOW"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}

	fanout := strings.ToLower(v.GetString("WS_FANOUT"))
	if fanout != "local" && fanout != "postgres" {
		return nil, fmt.Errorf("invalid WS_FANOUT %q: expected local or postgres", fanout)
	}

	env := v.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	return &Config{
		Server: ServerConfig{
			Port:        v.GetString("PORT"),
			Env:         env,
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			URL: databaseURL(v),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			ExpiresIn: expiresIn,
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   window,
		},
		Stripe: StripeConfig{
			SecretKey:      v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret:  v.GetString("STRIPE_WEBHOOK_SECRET"),
			BasicPriceID:   v.GetString("STRIPE_BASIC_PRICE_ID"),
			PremiumPriceID: v.GetString("STRIPE_PREMIUM_PRICE_ID"),
		},
		WebSocket: WebSocketConfig{
			Port:   v.GetString("WS_PORT"),
			Fanout: fanout,
		},
		Jobs: JobsConfig{
			MockFeed:       v.GetString("MOCK_FEED_SCHEDULE"),
			DemoStopCheck:  v.GetString("DEMO_STOP_CHECK_SCHEDULE"),
			MacroMockRegen: v.GetString("MACRO_MOCK_SCHEDULE"),
		},
		Debug: v.GetBool("DEBUG"),
	}, nil
}

// databaseURL prefers DATABASE_URL and falls back to the discrete DATABASE_* keys
func databaseURL(v *viper.Viper) string {
	if raw := v.GetString("DATABASE_URL"); raw != "" {
		return raw
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   v.GetString("DATABASE_HOST") + ":" + v.GetString("DATABASE_PORT"),
		Path:   "/" + v.GetString("DATABASE_NAME"),
	}
	if pw := v.GetString("DATABASE_PASSWORD"); pw != "" {
		u.User = url.UserPassword(v.GetString("DATABASE_USER"), pw)
	} else {
		u.User = url.User(v.GetString("DATABASE_USER"))
	}
	return u.String()
}

// ParseDuration extends time.ParseDuration with a day suffix ("7d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
