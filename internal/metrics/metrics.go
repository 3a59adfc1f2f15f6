package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "favorx",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "favorx",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "favorx",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "favorx",
			Subsystem: "requests",
			Name:      "transitions_total",
			Help:      "Request status transitions by action and outcome.",
		},
		[]string{"action", "result"},
	)

	coinsMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "favorx",
			Subsystem: "coins",
			Name:      "moved_total",
			Help:      "Coins credited or debited, by transaction type.",
		},
		[]string{"type"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "favorx",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Notification deliveries by channel and outcome.",
		},
		[]string{"channel", "result"},
	)

	liveListeners = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "favorx",
			Subsystem: "ws",
			Name:      "listeners",
			Help:      "Open WebSocket listeners by stream.",
		},
		[]string{"stream"},
	)

	reconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "favorx",
			Subsystem: "reconciler",
			Name:      "principals_total",
			Help:      "Orphaned principals processed by the reconciler, by outcome.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		transitions,
		coinsMoved,
		notifications,
		liveListeners,
		reconcileRuns,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request count and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordTransition counts a lifecycle transition attempt.
func RecordTransition(action string, ok bool) {
	transitions.WithLabelValues(action, result(ok)).Inc()
}

// RecordCoins counts coins moved by a ledger operation.
func RecordCoins(txType string, amount int64) {
	if amount < 0 {
		amount = -amount
	}
	coinsMoved.WithLabelValues(txType).Add(float64(amount))
}

func RecordNotification(channel string, ok bool) {
	notifications.WithLabelValues(channel, result(ok)).Inc()
}

// ListenerOpened increments the open listener gauge and returns the matching decrement.
func ListenerOpened(stream string) func() {
	g := liveListeners.WithLabelValues(stream)
	g.Inc()
	return g.Dec
}

func RecordReconcile(outcome string) {
	reconcileRuns.WithLabelValues(outcome).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
