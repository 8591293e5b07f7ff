package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Feed metrics
	FeedRequestsTotal   *prometheus.CounterVec
	FeedShortPagesTotal prometheus.Counter
	FeedSourceDuration  *prometheus.HistogramVec
	FeedSourceRetries   *prometheus.CounterVec
	FeedRefetchesTotal  prometheus.Counter

	// Membership metrics
	MutationsTotal *prometheus.CounterVec

	// Audit metrics
	AuditWritesTotal        *prometheus.CounterVec
	AuditWriteFailuresTotal *prometheus.CounterVec

	// Rate limit metrics
	RateLimitDecisionsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collab_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collab_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		FeedRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collab_feed_requests_total",
				Help: "Total number of activity feed requests by outcome",
			},
			[]string{"outcome"},
		),
		FeedShortPagesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "collab_feed_short_pages_total",
				Help: "Feed pages returned with fewer events than requested while more remain",
			},
		),
		FeedSourceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collab_feed_source_duration_seconds",
				Help:    "Feed source query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"source"},
		),
		FeedSourceRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collab_feed_source_retries_total",
				Help: "Retried feed source queries",
			},
			[]string{"source"},
		),
		FeedRefetchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "collab_feed_refetches_total",
				Help: "Extra feed fetch rounds issued when a truncated source hid every candidate",
			},
		),

		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collab_membership_mutations_total",
				Help: "Membership mutations by operation and result code",
			},
			[]string{"operation", "code"},
		),

		AuditWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collab_audit_writes_total",
				Help: "Audit records appended",
			},
			[]string{"action"},
		),
		AuditWriteFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collab_audit_write_failures_total",
				Help: "Audit records that failed to append",
			},
			[]string{"action"},
		),

		RateLimitDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collab_rate_limit_decisions_total",
				Help: "Rate limit decisions",
			},
			[]string{"decision"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.FeedRequestsTotal,
		m.FeedShortPagesTotal,
		m.FeedSourceDuration,
		m.FeedSourceRetries,
		m.FeedRefetchesTotal,
		m.MutationsTotal,
		m.AuditWritesTotal,
		m.AuditWriteFailuresTotal,
		m.RateLimitDecisionsTotal,
	)

	return m
}

func (m *Metrics) ObserveFeed(outcome string) {
	if m == nil {
		return
	}
	m.FeedRequestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveShortPage() {
	if m == nil {
		return
	}
	m.FeedShortPagesTotal.Inc()
}

func (m *Metrics) ObserveRefetch() {
	if m == nil {
		return
	}
	m.FeedRefetchesTotal.Inc()
}

func (m *Metrics) ObserveSource(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.FeedSourceDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) ObserveSourceRetry(source string) {
	if m == nil {
		return
	}
	m.FeedSourceRetries.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveMutation(operation, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.MutationsTotal.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) ObserveAuditWrite(action string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.AuditWriteFailuresTotal.WithLabelValues(action).Inc()
		return
	}
	m.AuditWritesTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveRateLimit(allowed bool) {
	if m == nil {
		return
	}
	decision := "allowed"
	if !allowed {
		decision = "limited"
	}
	m.RateLimitDecisionsTotal.WithLabelValues(decision).Inc()
}

// HTTPMetricsMiddleware instruments echo requests. Paths are labelled by
// route template to keep cardinality bounded.
func HTTPMetricsMiddleware(m *Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
