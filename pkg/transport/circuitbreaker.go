package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bargom/hldclient/pkg/metrics"
	"github.com/bargom/hldclient/pkg/runtime"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int32

const (
	// StateClosed allows requests to pass through.
	StateClosed CircuitState = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows requests through to test recovery.
	StateHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func (s CircuitState) metricsState() metrics.CircuitBreakerState {
	switch s {
	case StateOpen:
		return metrics.CircuitBreakerOpen
	case StateHalfOpen:
		return metrics.CircuitBreakerHalfOpen
	default:
		return metrics.CircuitBreakerClosed
	}
}

// ErrCircuitOpen is returned without dispatch while the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	// Default: 5
	FailureThreshold int

	// Timeout is how long the circuit stays open before going half-open.
	// Default: 60s
	Timeout time.Duration

	// HalfOpenRequests is the number of successes needed in half-open state to close.
	// Default: 3
	HalfOpenRequests int

	// IsFailure decides whether an exchange counts as a failure. If nil, transport
	// errors and 5xx responses do.
	IsFailure func(resp *http.Response, err error) bool

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns the default circuit breaker configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
		HalfOpenRequests: 3,
	}
}

// CircuitBreaker stops dispatching to a daemon that keeps failing.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	logger *slog.Logger

	state             atomic.Int32
	failures          atomic.Int32
	halfOpenSuccesses atomic.Int32
	lastFailure       atomic.Int64
	lastStateChange   atomic.Int64

	mu sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker with the given name and configuration.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.HalfOpenRequests <= 0 {
		config.HalfOpenRequests = 3
	}

	cb := &CircuitBreaker{
		name:   name,
		config: config,
		logger: slog.Default().With("component", "circuit_breaker", "name", name),
	}
	cb.state.Store(int32(StateClosed))
	cb.lastStateChange.Store(time.Now().UnixNano())
	return cb
}

// WithCircuitBreaker returns a Decorator routing calls through cb.
func WithCircuitBreaker(cb *CircuitBreaker) Decorator {
	return func(next runtime.Doer) runtime.Doer {
		return runtime.DoerFunc(func(req *http.Request) (*http.Response, error) {
			return cb.Do(next, req)
		})
	}
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitState {
	return CircuitState(cb.state.Load())
}

// Allow returns nil if a request may proceed and ErrCircuitOpen otherwise.
func (cb *CircuitBreaker) Allow() error {
	switch cb.State() {
	case StateOpen:
		lastFailure := time.Unix(0, cb.lastFailure.Load())
		if time.Since(lastFailure) >= cb.config.Timeout {
			cb.transitionTo(StateHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	default:
		return nil
	}
}

// Do sends req through next unless the circuit is open, and records the outcome.
func (cb *CircuitBreaker) Do(next runtime.Doer, req *http.Request) (*http.Response, error) {
	if err := cb.Allow(); err != nil {
		return nil, err
	}

	resp, err := next.Do(req)
	if cb.isFailure(resp, err) {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}
	return resp, err
}

func (cb *CircuitBreaker) isFailure(resp *http.Response, err error) bool {
	if cb.config.IsFailure != nil {
		return cb.config.IsFailure(resp, err)
	}
	if err != nil {
		return !errors.Is(err, ErrCircuitOpen)
	}
	return resp.StatusCode >= 500
}

// RecordSuccess records a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	switch cb.State() {
	case StateClosed:
		cb.failures.Store(0)
	case StateHalfOpen:
		if int(cb.halfOpenSuccesses.Add(1)) >= cb.config.HalfOpenRequests {
			cb.transitionTo(StateClosed)
		}
	}
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.lastFailure.Store(time.Now().UnixNano())

	switch cb.State() {
	case StateClosed:
		if int(cb.failures.Add(1)) >= cb.config.FailureThreshold {
			cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		cb.transitionTo(StateOpen)
	}
}

func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := CircuitState(cb.state.Load())
	if oldState == newState {
		return
	}

	cb.state.Store(int32(newState))
	cb.lastStateChange.Store(time.Now().UnixNano())

	switch newState {
	case StateClosed:
		cb.failures.Store(0)
		cb.halfOpenSuccesses.Store(0)
	case StateHalfOpen:
		cb.halfOpenSuccesses.Store(0)
	}

	cb.logger.Info("circuit breaker state changed",
		"from", oldState.String(),
		"to", newState.String(),
	)

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, newState)
	}
	if reg := metrics.Global(); reg != nil {
		reg.Client().SetCircuitBreakerState(cb.name, newState.metricsState())
	}
}

// Stats returns the current statistics of the circuit breaker.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	return CircuitBreakerStats{
		Name:              cb.name,
		State:             cb.State(),
		Failures:          int(cb.failures.Load()),
		HalfOpenSuccesses: int(cb.halfOpenSuccesses.Load()),
		LastFailure:       time.Unix(0, cb.lastFailure.Load()),
		LastStateChange:   time.Unix(0, cb.lastStateChange.Load()),
	}
}

// Reset returns the circuit breaker to its initial closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state.Store(int32(StateClosed))
	cb.failures.Store(0)
	cb.halfOpenSuccesses.Store(0)
	cb.lastFailure.Store(0)
	cb.lastStateChange.Store(time.Now().UnixNano())

	cb.logger.Info("circuit breaker reset")

	if reg := metrics.Global(); reg != nil {
		reg.Client().SetCircuitBreakerState(cb.name, metrics.CircuitBreakerClosed)
	}
}

// CircuitBreakerStats contains the current statistics of a circuit breaker.
type CircuitBreakerStats struct {
	Name              string
	State             CircuitState
	Failures          int
	HalfOpenSuccesses int
	LastFailure       time.Time
	LastStateChange   time.Time
}
