// Package transport provides opt-in resilience decorators for runtime.Doer.
//
// The runtime dispatches every call exactly once. Callers that want retries,
// circuit breaking or per-attempt deadlines wrap the transport explicitly. With
// retry outermost, every attempt passes the breaker and gets its own deadline:
//
//	doer := transport.Chain(http.DefaultClient,
//		transport.WithRetry(transport.DefaultRetryConfig()),
//		transport.WithCircuitBreaker(transport.NewCircuitBreaker("hld", transport.DefaultCircuitBreakerConfig())),
//		transport.WithTimeout(10*time.Second),
//	)
package transport

import (
	"io"
	"net/http"

	"github.com/bargom/hldclient/pkg/runtime"
)

// Decorator wraps a Doer with additional behaviour.
type Decorator func(next runtime.Doer) runtime.Doer

// Chain wraps base with decorators. The first decorator is the outermost.
func Chain(base runtime.Doer, decorators ...Decorator) runtime.Doer {
	doer := base
	for i := len(decorators) - 1; i >= 0; i-- {
		doer = decorators[i](doer)
	}
	return doer
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
