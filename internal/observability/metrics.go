package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	realtimeCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cherrypick_realtime_commands_total",
			Help: "Realtime commands by event and outcome (emitted, dropped, queued).",
		},
		[]string{"event", "outcome"},
	)
	realtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cherrypick_realtime_events_total",
			Help: "Server-pushed realtime events received, by event and whether a handler was registered.",
		},
		[]string{"event", "handled"},
	)
	realtimeConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cherrypick_realtime_connected",
			Help: "1 while the realtime channel is connected.",
		},
	)
	realtimeReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cherrypick_realtime_reconnect_attempts_total",
			Help: "Reconnection attempts made by the realtime transport.",
		},
	)
	chatSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cherrypick_chat_sends_total",
			Help: "Chat sends by delivery path (realtime, rest, rest_failed).",
		},
		[]string{"path"},
	)
	historyFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cherrypick_chat_history_fetches_total",
			Help: "History fetches by outcome (ok, error, cache).",
		},
		[]string{"outcome"},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cherrypick_devserver_http_requests_total",
			Help: "HTTP requests processed by the dev server.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cherrypick_devserver_http_request_duration_seconds",
			Help:    "Dev server HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		realtimeCommandsTotal,
		realtimeEventsTotal,
		realtimeConnected,
		realtimeReconnectsTotal,
		chatSendsTotal,
		historyFetchesTotal,
		httpRequestsTotal,
		httpRequestDuration,
	)
}

func IncCommand(event, outcome string) {
	realtimeCommandsTotal.WithLabelValues(event, outcome).Inc()
}

func IncEvent(event string, handled bool) {
	realtimeEventsTotal.WithLabelValues(event, strconv.FormatBool(handled)).Inc()
}

func SetConnected(connected bool) {
	if connected {
		realtimeConnected.Set(1)
		return
	}
	realtimeConnected.Set(0)
}

func IncReconnectAttempt() {
	realtimeReconnectsTotal.Inc()
}

func IncSend(path string) {
	chatSendsTotal.WithLabelValues(path).Inc()
}

func IncHistoryFetch(outcome string) {
	historyFetchesTotal.WithLabelValues(outcome).Inc()
}

// HTTPMetricsMiddleware records request counts and latencies per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
