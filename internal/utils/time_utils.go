package utils

import (
	"time"
)

// Timeframe labels accepted by analytics and history endpoints
const (
	Timeframe24h = "24h"
	Timeframe7d  = "7d"
	Timeframe30d = "30d"
	Timeframe90d = "90d"
	TimeframeAll = "all"
)

var timeframeWindows = map[string]time.Duration{
	Timeframe24h: 24 * time.Hour,
	Timeframe7d:  7 * 24 * time.Hour,
	Timeframe30d: 30 * 24 * time.Hour,
	Timeframe90d: 90 * 24 * time.Hour,
}

// NormalizeTimeframe returns tf when it is a known label, otherwise def
func NormalizeTimeframe(tf, def string) string {
	if tf == TimeframeAll {
		return tf
	}
	if _, ok := timeframeWindows[tf]; ok {
		return tf
	}
	return def
}

// TimeframeStart returns the start of the window ending at now.
// It returns nil for "all" and for unknown labels.
func TimeframeStart(tf string, now time.Time) *time.Time {
	window, ok := timeframeWindows[tf]
	if !ok {
		return nil
	}
	start := now.Add(-window)
	return &start
}

