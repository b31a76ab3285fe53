package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bargom/hldclient/pkg/metrics"
	"github.com/bargom/hldclient/pkg/runtime"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// Name labels log lines and metrics. Default: "hld"
	Name string

	// MaxAttempts is the maximum number of attempts (including the first one).
	// Default: 3
	MaxAttempts int

	// BaseDelay is the initial delay between retries.
	// Default: 100ms
	BaseDelay time.Duration

	// MaxDelay is the maximum delay between retries, including Retry-After waits.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the factor by which the delay increases.
	// Default: 2.0
	Multiplier float64

	// Jitter is the fraction of the delay randomised in both directions (0.25 = ±25%).
	// Default: 0.25
	Jitter float64

	// AllMethods also retries non-idempotent methods such as POST.
	AllMethods bool

	// RetryIf decides whether an attempt is retried. If nil, IsRetryable and
	// IsRetryableStatusCode are used.
	RetryIf func(resp *http.Response, err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Name:        "hld",
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.25,
	}
}

// Retryer is a Doer that resends failed attempts with exponential backoff.
type Retryer struct {
	config RetryConfig
	logger *slog.Logger
	next   runtime.Doer
}

// NewRetryer wraps next with retry logic.
func NewRetryer(next runtime.Doer, config RetryConfig) *Retryer {
	if config.Name == "" {
		config.Name = "hld"
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Jitter < 0 || config.Jitter > 1 {
		config.Jitter = 0.25
	}

	return &Retryer{
		config: config,
		logger: slog.Default().With("component", "retryer", "name", config.Name),
		next:   next,
	}
}

// WithRetry returns a Decorator installing a Retryer.
func WithRetry(config RetryConfig) Decorator {
	return func(next runtime.Doer) runtime.Doer {
		return NewRetryer(next, config)
	}
}

// Do sends req, retrying retryable failures. The last response or error is
// returned unchanged once attempts are exhausted.
func (r *Retryer) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	maxAttempts := r.config.MaxAttempts
	if !r.config.AllMethods && !idempotent(req.Method) {
		maxAttempts = 1
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		maxAttempts = 1
	}

	delay := r.config.BaseDelay
	for attempt := 1; ; attempt++ {
		attemptReq, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := r.next.Do(attemptReq)

		if ctx.Err() != nil || attempt >= maxAttempts || !r.shouldRetry(resp, err) {
			return resp, err
		}

		wait := r.addJitter(delay)
		if after, ok := retryAfter(resp); ok {
			wait = after
		}
		if wait > r.config.MaxDelay {
			wait = r.config.MaxDelay
		}

		cause := err
		if cause == nil {
			cause = fmt.Errorf("status %d", resp.StatusCode)
		}
		drain(resp)

		r.logger.Warn("retrying request",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"method", req.Method,
			"error", cause.Error(),
			"delay", wait,
		)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, cause, wait)
		}
		if reg := metrics.Global(); reg != nil {
			reg.Client().RecordRetry(r.config.Name)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * r.config.Multiplier)
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}
}

func (r *Retryer) shouldRetry(resp *http.Response, err error) bool {
	if r.config.RetryIf != nil {
		return r.config.RetryIf(resp, err)
	}
	if err != nil {
		return IsRetryable(err)
	}
	return IsRetryableStatusCode(resp.StatusCode)
}

// addJitter adds randomness to the delay.
func (r *Retryer) addJitter(delay time.Duration) time.Duration {
	if r.config.Jitter <= 0 {
		return delay
	}

	jitterRange := float64(delay) * r.config.Jitter
	jitter := (rand.Float64()*2 - 1) * jitterRange
	result := time.Duration(float64(delay) + jitter)

	if result < 0 {
		return delay
	}
	return result
}

// rewind returns the request to send for the given attempt with a fresh body.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete, http.MethodTrace:
		return true
	default:
		return false
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

// IsRetryable checks if a transport error is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"temporary failure",
		"i/o timeout",
		"network is unreachable",
		"eof",
	} {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// IsRetryableStatusCode checks if an HTTP status code should be retried.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
