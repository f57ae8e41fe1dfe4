package utils

import (
	"testing"
	"time"
)

func TestNormalizeTimeframe(t *testing.T) {
	tests := []struct {
		in, def, want string
	}{
		{"7d", "30d", "7d"},
		{"all", "30d", "all"},
		{"", "30d", "30d"},
		{"1y", "24h", "24h"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeTimeframe(tt.in, tt.def); got != tt.want {
				t.Errorf("NormalizeTimeframe(%q, %q) = %q, want %q", tt.in, tt.def, got, tt.want)
			}
		})
	}
}

func TestTimeframeStart(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	if got := TimeframeStart(Timeframe7d, now); got == nil || !got.Equal(now.AddDate(0, 0, -7)) {
		t.Errorf("7d start = %v", got)
	}
	if got := TimeframeStart(Timeframe24h, now); got == nil || !got.Equal(now.Add(-24*time.Hour)) {
		t.Errorf("24h start = %v", got)
	}
	if got := TimeframeStart(TimeframeAll, now); got != nil {
		t.Errorf("all start = %v, want nil", got)
	}
}

