package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exposed by the service
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	AuditsTotal    *prometheus.CounterVec
	AuditDuration  prometheus.Histogram
	VerdictsTotal  *prometheus.CounterVec
	MetricsTables  prometheus.Counter
	StabilityCalls prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(reg, reg)
}

// NewMetricsWith registers the collectors on reg and serves them from g
func NewMetricsWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankfair_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rankfair_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rankfair_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served.",
			},
		),
		AuditsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankfair_audits_total",
				Help: "Total number of ranking audits by outcome.",
			},
			[]string{"outcome"},
		),
		AuditDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rankfair_audit_duration_seconds",
				Help:    "Ranking audit latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		VerdictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankfair_verdicts_total",
				Help: "Fairness verdicts by test and result.",
			},
			[]string{"test", "fair"},
		),
		MetricsTables: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rankfair_metrics_tables_total",
				Help: "Total number of classification fairness tables built.",
			},
		),
		StabilityCalls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rankfair_stability_checks_total",
				Help: "Total number of score stability checks.",
			},
		),
		gatherer: g,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AuditsTotal,
		m.AuditDuration,
		m.VerdictsTotal,
		m.MetricsTables,
		m.StabilityCalls,
	)
	return m
}

// Handler serves the registered collectors in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) observeVerdict(test string, fair bool) {
	m.VerdictsTotal.WithLabelValues(test, strconv.FormatBool(fair)).Inc()
}

// middleware records request count, latency and the in-flight gauge. The
// route template is used as the path label so ids do not explode cardinality.
func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
