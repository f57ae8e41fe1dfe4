package infra

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "priceactiontalk",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "priceactiontalk",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "priceactiontalk",
		Name:      "ws_connections",
		Help:      "Open WebSocket connections on this instance.",
	})

	wsMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "priceactiontalk",
		Name:      "ws_messages_total",
		Help:      "WebSocket messages by direction and type.",
	}, []string{"direction", "type"})

	demoTrades = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "priceactiontalk",
		Name:      "demo_trades_total",
		Help:      "Demo trade lifecycle events.",
	}, []string{"event"})

	cronRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "priceactiontalk",
		Name:      "cron_runs_total",
		Help:      "Background job runs by job and outcome.",
	}, []string{"job", "outcome"})
)

// MetricsHandler exposes the default registry
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records a completed HTTP request
func ObserveHTTP(method, route string, status int, seconds float64) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// WSConnected / WSDisconnected track live sockets
func WSConnected()    { wsConnections.Inc() }
func WSDisconnected() { wsConnections.Dec() }

// WSMessage counts a relay message. direction is "in" or "out".
func WSMessage(direction, msgType string) {
	wsMessages.WithLabelValues(direction, msgType).Inc()
}

// DemoTradeEvent counts opened/closed/rejected demo trades
func DemoTradeEvent(event string) {
	demoTrades.WithLabelValues(event).Inc()
}

// CronRun records the outcome of a scheduled job
func CronRun(job string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	cronRuns.WithLabelValues(job, outcome).Inc()
}
