package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bargom/hldclient/pkg/metrics"
	"github.com/bargom/hldclient/pkg/runtime"
)

// ErrTimeout marks an attempt that exceeded its Timeout decorator deadline.
var ErrTimeout = errors.New("request timed out")

// TimeoutConfig configures the Timeout decorator.
type TimeoutConfig struct {
	// Name labels log lines and metrics. Default: "hld"
	Name string

	// Timeout bounds each attempt, including reading the response body.
	// Default: 30s
	Timeout time.Duration

	// OnTimeout is called when an attempt times out.
	OnTimeout func(req *http.Request, timeout time.Duration)
}

// DefaultTimeoutConfig returns the default timeout configuration.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{Name: "hld", Timeout: 30 * time.Second}
}

// Timeout is a Doer that bounds every attempt with a deadline. A tighter
// deadline already present on the request context is kept.
type Timeout struct {
	config TimeoutConfig
	logger *slog.Logger
	next   runtime.Doer
}

// NewTimeout wraps next with a per-attempt deadline.
func NewTimeout(next runtime.Doer, config TimeoutConfig) *Timeout {
	if config.Name == "" {
		config.Name = "hld"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Timeout{
		config: config,
		logger: slog.Default().With("component", "timeout", "name", config.Name),
		next:   next,
	}
}

// WithTimeout returns a Decorator bounding each attempt by d.
func WithTimeout(d time.Duration) Decorator {
	return func(next runtime.Doer) runtime.Doer {
		return NewTimeout(next, TimeoutConfig{Timeout: d})
	}
}

// Do sends req with the deadline applied. The deadline stays armed until the
// response body is closed.
func (t *Timeout) Do(req *http.Request) (*http.Response, error) {
	ctx, cancel := t.withTimeout(req.Context())
	start := time.Now()

	resp, err := t.next.Do(req.WithContext(ctx))
	if err != nil {
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded) && req.Context().Err() == nil
		cancel()
		if timedOut {
			t.logger.Warn("request timed out",
				"method", req.Method,
				"url", req.URL.Redacted(),
				"timeout", t.config.Timeout,
				"elapsed", time.Since(start),
			)
			if t.config.OnTimeout != nil {
				t.config.OnTimeout(req, t.config.Timeout)
			}
			if reg := metrics.Global(); reg != nil {
				reg.Client().RecordError(t.config.Name, "timeout")
			}
			return nil, fmt.Errorf("%w after %s: %w", ErrTimeout, t.config.Timeout, err)
		}
		return nil, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// withTimeout keeps the parent deadline when it is tighter than the configured one.
func (t *Timeout) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < t.config.Timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.config.Timeout)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
