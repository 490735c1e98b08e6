package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_http_requests_total",
			Help: "Total number of HTTP requests processed by the feed service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	feedEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_total",
			Help: "Live conversation events by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	botRevealsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_bot_reveals_total",
			Help: "Total number of scripted bot messages revealed.",
		},
	)
	tokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_tokens_issued_total",
			Help: "Realtime capability tokens issued, by result.",
		},
		[]string{"result"},
	)
	pageQueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_page_query_duration_seconds",
			Help:    "Latency of backward pagination queries against the realtime backend.",
			Buckets: prometheus.DefBuckets,
		},
	)
	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter, by route.",
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		feedEventsTotal,
		botRevealsTotal,
		tokensIssuedTotal,
		pageQueryDuration,
		rateLimitedTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

// IncFeedEvent counts a live event; outcome is "applied", "ignored", "dropped" or "malformed".
func IncFeedEvent(eventType, outcome string) {
	feedEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func AddBotReveals(n int) {
	botRevealsTotal.Add(float64(n))
}

func IncTokenIssued(result string) {
	tokensIssuedTotal.WithLabelValues(result).Inc()
}

func ObservePageQuery(d time.Duration) {
	pageQueryDuration.Observe(d.Seconds())
}

func IncRateLimited(route string) {
	rateLimitedTotal.WithLabelValues(route).Inc()
}
