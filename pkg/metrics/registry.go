package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry manages all Prometheus metrics of the client.
type Registry struct {
	config   Config
	registry *prometheus.Registry

	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	responseSize  *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	retriesTotal  *prometheus.CounterVec
	circuitState  *prometheus.GaugeVec
	cacheRequests *prometheus.CounterVec
}

var (
	globalMu       sync.RWMutex
	globalRegistry *Registry
)

// NewRegistry creates a new metrics registry with the given configuration.
func NewRegistry(config Config) *Registry {
	if config.Namespace == "" {
		config.Namespace = "hld"
	}
	if config.Subsystem == "" {
		config.Subsystem = "client"
	}
	if len(config.HistogramBuckets.CallDuration) == 0 {
		config.HistogramBuckets.CallDuration = DefaultHistogramBuckets().CallDuration
	}
	if len(config.HistogramBuckets.ResponseSize) == 0 {
		config.HistogramBuckets.ResponseSize = DefaultHistogramBuckets().ResponseSize
	}

	r := &Registry{
		config:   config,
		registry: prometheus.NewRegistry(),
	}
	r.registerClientMetrics()

	if config.EnableProcessMetrics {
		r.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if config.EnableRuntimeMetrics {
		r.registry.MustRegister(collectors.NewGoCollector())
	}

	return r
}

// Global returns the registry installed with SetGlobal, or nil.
func Global() *Registry {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalRegistry
}

// SetGlobal installs the registry used by the transport decorators.
// Passing nil disables their metrics.
func SetGlobal(r *Registry) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalRegistry = r
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Config returns the registry configuration.
func (r *Registry) Config() Config {
	return r.config
}

func (r *Registry) registerClientMetrics() {
	ns, sub := r.config.Namespace, r.config.Subsystem
	labels := prometheus.Labels(r.config.DefaultLabels)

	r.callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "calls_total",
			Help:        "Total number of daemon API calls",
			ConstLabels: labels,
		},
		[]string{"operation", "method", "status_code"},
	)

	r.callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "call_duration_seconds",
			Help:        "Daemon API call duration in seconds",
			Buckets:     r.config.HistogramBuckets.CallDuration,
			ConstLabels: labels,
		},
		[]string{"operation", "method"},
	)

	r.responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "response_size_bytes",
			Help:        "Daemon API response body size in bytes",
			Buckets:     r.config.HistogramBuckets.ResponseSize,
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	r.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "errors_total",
			Help:        "Total number of calls that obtained no response",
			ConstLabels: labels,
		},
		[]string{"operation", "error_type"},
	)

	r.retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "retries_total",
			Help:        "Total number of retry attempts",
			ConstLabels: labels,
		},
		[]string{"name"},
	)

	r.circuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "circuit_breaker_state",
			Help:        "Circuit breaker state, 1 for the current state and 0 otherwise",
			ConstLabels: labels,
		},
		[]string{"name", "state"},
	)

	r.cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "cache_requests_total",
			Help:        "Response cache lookups by result",
			ConstLabels: labels,
		},
		[]string{"result"},
	)

	r.registry.MustRegister(
		r.callsTotal,
		r.callDuration,
		r.responseSize,
		r.errorsTotal,
		r.retriesTotal,
		r.circuitState,
		r.cacheRequests,
	)
}
