package runtime

import "context"

// Middleware runs around every dispatch, in registration order.
//
// HandleRequest may modify the call-local descriptor. Returning a non-nil response
// skips the remaining request hooks and the transport; response hooks still run.
// HandleResponse may return a replacement response; nil keeps the current one.
type Middleware interface {
	HandleRequest(ctx context.Context, req *Descriptor) (*RawResponse, error)
	HandleResponse(ctx context.Context, req *Descriptor, resp *RawResponse) (*RawResponse, error)
}

// ErrorHandler is implemented by middleware that can recover from transport failures.
// The first handler returning a non-nil response replaces the *TransportError.
type ErrorHandler interface {
	HandleError(ctx context.Context, req *Descriptor, err *TransportError) *RawResponse
}

// PreFunc is a request-only middleware.
type PreFunc func(ctx context.Context, req *Descriptor) (*RawResponse, error)

// HandleRequest calls f.
func (f PreFunc) HandleRequest(ctx context.Context, req *Descriptor) (*RawResponse, error) {
	return f(ctx, req)
}

// HandleResponse is a no-op.
func (f PreFunc) HandleResponse(context.Context, *Descriptor, *RawResponse) (*RawResponse, error) {
	return nil, nil
}

// PostFunc is a response-only middleware.
type PostFunc func(ctx context.Context, req *Descriptor, resp *RawResponse) (*RawResponse, error)

// HandleRequest is a no-op.
func (f PostFunc) HandleRequest(context.Context, *Descriptor) (*RawResponse, error) {
	return nil, nil
}

// HandleResponse calls f.
func (f PostFunc) HandleResponse(ctx context.Context, req *Descriptor, resp *RawResponse) (*RawResponse, error) {
	return f(ctx, req, resp)
}

// ErrorFunc is an error-only middleware.
type ErrorFunc func(ctx context.Context, req *Descriptor, err *TransportError) *RawResponse

// HandleRequest is a no-op.
func (f ErrorFunc) HandleRequest(context.Context, *Descriptor) (*RawResponse, error) {
	return nil, nil
}

// HandleResponse is a no-op.
func (f ErrorFunc) HandleResponse(context.Context, *Descriptor, *RawResponse) (*RawResponse, error) {
	return nil, nil
}

// HandleError calls f.
func (f ErrorFunc) HandleError(ctx context.Context, req *Descriptor, err *TransportError) *RawResponse {
	return f(ctx, req, err)
}
