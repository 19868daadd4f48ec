package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mancala",
			Name:      "sessions_active",
			Help:      "Rooms currently held by the session store.",
		},
	)
	messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mancala",
			Name:      "messages_total",
			Help:      "Inbound relay messages by action.",
		},
		[]string{"action"},
	)
	rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mancala",
			Name:      "rejections_total",
			Help:      "Error responses sent to clients by code.",
		},
		[]string{"code"},
	)
	gamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mancala",
			Name:      "games_finished_total",
			Help:      "Finished games by winner.",
		},
		[]string{"winner"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mancala",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mancala",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(sessionsActive, messages, rejections, gamesFinished, httpRequests, httpDuration)
	})
}

func SetSessionsActive(count int) {
	RegisterMetrics()
	sessionsActive.Set(float64(count))
}

func RecordMessage(action string) {
	RegisterMetrics()
	messages.WithLabelValues(action).Inc()
}

func RecordRejection(code string) {
	RegisterMetrics()
	rejections.WithLabelValues(code).Inc()
}

func RecordGameFinished(winner string) {
	RegisterMetrics()
	gamesFinished.WithLabelValues(winner).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
