// Package middleware provides runtime.Middleware implementations for hld
// clients: request IDs, static headers, logging, metrics and response caching.
package middleware

import (
	"context"
	"net/http"

	"github.com/bargom/hldclient/pkg/logging"
	"github.com/bargom/hldclient/pkg/runtime"
)

// Header adds fixed headers to every request. Headers already present on the
// descriptor are overwritten.
type Header struct {
	headers map[string]string
}

// NewHeader creates a new header middleware.
func NewHeader(headers map[string]string) *Header {
	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	return &Header{headers: copied}
}

// HandleRequest adds headers to the request.
func (m *Header) HandleRequest(_ context.Context, req *runtime.Descriptor) (*runtime.RawResponse, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for key, value := range m.headers {
		req.Header.Set(key, value)
	}
	return nil, nil
}

// HandleResponse is a no-op for header middleware.
func (m *Header) HandleResponse(context.Context, *runtime.Descriptor, *runtime.RawResponse) (*runtime.RawResponse, error) {
	return nil, nil
}

// RequestID stamps X-Request-ID and X-Trace-ID on every request. IDs carried
// by the context (see logging.TraceContext) are reused; a request ID is
// generated otherwise. Headers set by an override are kept.
type RequestID struct {
	generator func() string
}

// NewRequestID creates a new request ID middleware. A nil generator uses UUIDs.
func NewRequestID(generator func() string) *RequestID {
	if generator == nil {
		generator = logging.GenerateRequestID
	}
	return &RequestID{generator: generator}
}

// HandleRequest adds the trace headers.
func (m *RequestID) HandleRequest(ctx context.Context, req *runtime.Descriptor) (*runtime.RawResponse, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	tc := logging.FromContext(ctx)
	if id := req.Header.Get(logging.HeaderRequestID); id != "" {
		tc.RequestID = id
	}
	if tc.RequestID == "" {
		tc.RequestID = m.generator()
	}
	if id := req.Header.Get(logging.HeaderTraceID); id != "" {
		tc.TraceID = id
	}
	if tc.TraceID == "" {
		tc.TraceID = tc.RequestID
	}

	tc.Inject(req.Header)
	return nil, nil
}

// HandleResponse is a no-op for request ID middleware.
func (m *RequestID) HandleResponse(context.Context, *runtime.Descriptor, *runtime.RawResponse) (*runtime.RawResponse, error) {
	return nil, nil
}
