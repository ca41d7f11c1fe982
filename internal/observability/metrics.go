package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the prometheus collectors exported by the service.
type Metrics struct {
	registry            *prometheus.Registry
	requests            *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	errors              *prometheus.CounterVec
	cacheOps            *prometheus.CounterVec
	cacheDegraded       *prometheus.CounterVec
	identityResolutions *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by error code.",
		}, []string{"method", "path", "code"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Aggregate cache operations by outcome.",
		}, []string{"namespace", "op", "result"}),
		cacheDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_degraded_total",
			Help: "Cache operations that fell back to the store because the backend failed.",
		}, []string{"namespace", "op"}),
		identityResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_resolutions_total",
			Help: "Caller identity resolutions by strategy and outcome.",
		}, []string{"strategy", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.errors,
		m.cacheOps,
		m.cacheDegraded,
		m.identityResolutions,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordCache counts a cache get/put/evict outcome.
func (m *Metrics) RecordCache(namespace, op, result string) {
	if m == nil {
		return
	}
	m.cacheOps.WithLabelValues(namespace, op, result).Inc()
}

// RecordCacheDegraded counts a cache failure that was absorbed.
func (m *Metrics) RecordCacheDegraded(namespace, op string) {
	if m == nil {
		return
	}
	m.cacheDegraded.WithLabelValues(namespace, op).Inc()
}

// RecordIdentity counts an identity resolution.
func (m *Metrics) RecordIdentity(strategy, result string) {
	if m == nil {
		return
	}
	m.identityResolutions.WithLabelValues(strategy, result).Inc()
}
