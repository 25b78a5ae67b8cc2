// Package metrics collects and exposes Prometheus metrics for the API and its runners.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tempguard"

// Login results.
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid"
	LoginNoProfile   = "no_profile"
	LoginStale       = "stale"
	LoginRateLimited = "rate_limited"
	LoginError       = "error"
)

// Collector records request, login, lookup and retention metrics.
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	logins          *prometheus.CounterVec
	lookups         *prometheus.CounterVec
	lookupLatency   prometheus.Histogram
	retentionRuns   *prometheus.CounterVec
	retentionPurged prometheus.Counter
	retentionLast   prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_lookups_total",
			Help:      "Product lookups by outcome.",
		}, []string{"outcome"}),
		lookupLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "product_lookup_latency_seconds",
			Help:      "Latency of product lookups that reached the backend.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		retentionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_runs_total",
			Help:      "Retention passes by result and error class.",
		}, []string{"result", "error_class"}),
		retentionPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_records_deleted_total",
			Help:      "Records removed by the retention runner.",
		}),
		retentionLast: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retention_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful retention pass.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.logins,
		c.lookups,
		c.lookupLatency,
		c.retentionRuns,
		c.retentionPurged,
		c.retentionLast,
	)
	return c
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveLogin records a login attempt result.
func (c *Collector) ObserveLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// ObserveLookup records a product lookup outcome.
func (c *Collector) ObserveLookup(outcome string, elapsed time.Duration) {
	c.lookups.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		c.lookupLatency.Observe(elapsed.Seconds())
	}
}

// ObserveRetention records one retention pass.
func (c *Collector) ObserveRetention(result, errorClass string, deleted int64, _ time.Duration) {
	c.retentionRuns.WithLabelValues(result, errorClass).Inc()
	if deleted > 0 {
		c.retentionPurged.Add(float64(deleted))
	}
	if errorClass == "" {
		c.retentionLast.SetToCurrentTime()
	}
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
