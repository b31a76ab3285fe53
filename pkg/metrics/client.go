package metrics

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"
)

// ClientMetrics records metrics for daemon API calls.
type ClientMetrics struct {
	registry *Registry
}

// Client returns the client metrics interface for the registry.
func (r *Registry) Client() *ClientMetrics {
	return &ClientMetrics{registry: r}
}

// CircuitBreakerState represents the state of a circuit breaker.
type CircuitBreakerState string

const (
	CircuitBreakerClosed   CircuitBreakerState = "closed"
	CircuitBreakerHalfOpen CircuitBreakerState = "half-open"
	CircuitBreakerOpen     CircuitBreakerState = "open"
)

// RecordCall records a call that obtained a response.
func (m *ClientMetrics) RecordCall(operation, method string, statusCode int, duration time.Duration, size int) {
	m.registry.callsTotal.WithLabelValues(operation, method, strconv.Itoa(statusCode)).Inc()
	m.registry.callDuration.WithLabelValues(operation, method).Observe(duration.Seconds())
	m.registry.responseSize.WithLabelValues(operation).Observe(float64(size))
}

// RecordError records a call that obtained no response.
func (m *ClientMetrics) RecordError(operation, errorType string) {
	m.registry.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordRetry records a retry attempt.
func (m *ClientMetrics) RecordRetry(name string) {
	m.registry.retriesTotal.WithLabelValues(name).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state for name.
func (m *ClientMetrics) SetCircuitBreakerState(name string, state CircuitBreakerState) {
	for _, s := range []CircuitBreakerState{CircuitBreakerClosed, CircuitBreakerHalfOpen, CircuitBreakerOpen} {
		val := 0.0
		if s == state {
			val = 1.0
		}
		m.registry.circuitState.WithLabelValues(name, string(s)).Set(val)
	}
}

// RecordCacheHit records a response served from cache.
func (m *ClientMetrics) RecordCacheHit() {
	m.registry.cacheRequests.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a cache lookup that fell through to the daemon.
func (m *ClientMetrics) RecordCacheMiss() {
	m.registry.cacheRequests.WithLabelValues("miss").Inc()
}

// ClassifyHTTPError classifies an HTTP status code into an error type.
func ClassifyHTTPError(statusCode int) string {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500 && statusCode < 600:
		return "server_error"
	case statusCode == 0:
		return "connection_error"
	default:
		return "unknown"
	}
}

// ClassifyError classifies a transport error into a type for metrics.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns_error"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return "timeout"
	case strings.Contains(msg, "connection refused"):
		return "connection_refused"
	case strings.Contains(msg, "no such host"):
		return "dns_error"
	case strings.Contains(msg, "tls"), strings.Contains(msg, "certificate"):
		return "tls_error"
	case strings.Contains(msg, "circuit breaker"):
		return "circuit_open"
	default:
		return "unknown"
	}
}
