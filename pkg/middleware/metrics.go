package middleware

import (
	"context"

	"github.com/bargom/hldclient/pkg/metrics"
	"github.com/bargom/hldclient/pkg/runtime"
)

// Metrics records call counts, durations, sizes and errors.
type Metrics struct {
	registry *metrics.Registry
}

// NewMetrics creates a new metrics middleware. A nil registry resolves
// metrics.Global on every call and records nothing while it is unset.
func NewMetrics(registry *metrics.Registry) *Metrics {
	return &Metrics{registry: registry}
}

func (m *Metrics) client() *metrics.ClientMetrics {
	reg := m.registry
	if reg == nil {
		reg = metrics.Global()
	}
	if reg == nil {
		return nil
	}
	return reg.Client()
}

// HandleRequest is a no-op for metrics middleware.
func (m *Metrics) HandleRequest(context.Context, *runtime.Descriptor) (*runtime.RawResponse, error) {
	return nil, nil
}

// HandleResponse records the response metrics.
func (m *Metrics) HandleResponse(_ context.Context, req *runtime.Descriptor, resp *runtime.RawResponse) (*runtime.RawResponse, error) {
	cm := m.client()
	if cm == nil {
		return nil, nil
	}
	cm.RecordCall(req.Operation, req.Method, resp.StatusCode, resp.Duration, len(resp.Body))
	if !resp.IsSuccess() {
		cm.RecordError(req.Operation, metrics.ClassifyHTTPError(resp.StatusCode))
	}
	return nil, nil
}

// HandleError records the transport failure and leaves it unhandled.
func (m *Metrics) HandleError(_ context.Context, req *runtime.Descriptor, err *runtime.TransportError) *runtime.RawResponse {
	if cm := m.client(); cm != nil {
		cm.RecordError(req.Operation, metrics.ClassifyError(err.Err))
	}
	return nil
}
