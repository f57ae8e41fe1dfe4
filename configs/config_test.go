package configs

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_EXPIRES_IN", "")
	t.Setenv("WS_FANOUT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "3001" {
		t.Errorf("Server.Port = %q, want 3001", cfg.Server.Port)
	}
	if cfg.WebSocket.Port != "3002" {
		t.Errorf("WebSocket.Port = %q, want 3002", cfg.WebSocket.Port)
	}
	if cfg.Auth.ExpiresIn != 7*24*time.Hour {
		t.Errorf("Auth.ExpiresIn = %v, want 168h", cfg.Auth.ExpiresIn)
	}
	if cfg.RateLimit.Requests != 100 || cfg.RateLimit.Window != 15*time.Minute {
		t.Errorf("RateLimit = %+v, want 100 per 15m", cfg.RateLimit)
	}
	if cfg.WebSocket.Fanout != "local" {
		t.Errorf("WebSocket.Fanout = %q, want local", cfg.WebSocket.Fanout)
	}
	if cfg.Database.URL != "postgres://postgres@localhost:5432/priceactiontalk" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app")
	t.Setenv("JWT_EXPIRES_IN", "12h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("WS_FANOUT", "postgres")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://u:p@db:5432/app" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if cfg.Auth.ExpiresIn != 12*time.Hour {
		t.Errorf("Auth.ExpiresIn = %v", cfg.Auth.ExpiresIn)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if !cfg.Server.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
}

func TestLoadRejectsUnknownFanout(t *testing.T) {
	t.Setenv("WS_FANOUT", "redis")
	if _, err := Load(""); err == nil {
		t.Fatal("Load() error = nil, want error for unknown fanout")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"7d", 168 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"15m", 15 * time.Minute, false},
		{"90s", 90 * time.Second, false},
		{"xd", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
