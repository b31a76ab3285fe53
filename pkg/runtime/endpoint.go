package runtime

import "context"

// Parameters fills the per-operation parts of a request. Apply returns a
// *RequiredError (see RequestOptions.Require) when a required value is missing;
// no request is sent in that case.
type Parameters interface {
	Apply(opts *RequestOptions) error
}

// NoParams is the Parameters of operations that take none.
type NoParams struct{}

// Apply is a no-op.
func (NoParams) Apply(*RequestOptions) error { return nil }

// Endpoint describes one operation. Every generated endpoint method is a call to
// Raw or Value on an Endpoint value.
type Endpoint[P Parameters, T any] struct {
	Operation string
	Method    string
	Path      string
	Decode    func([]byte) (T, error)
}

// Raw performs the call and returns the undecoded envelope.
func (e Endpoint[P, T]) Raw(ctx context.Context, c *Client, params P, overrides ...Override) (*APIResponse[T], error) {
	opts := RequestOptions{
		Operation: e.Operation,
		Method:    e.Method,
		Path:      e.Path,
	}
	if err := params.Apply(&opts); err != nil {
		return nil, err
	}

	raw, err := c.Execute(ctx, opts, overrides...)
	if err != nil {
		return nil, err
	}
	return JSONResponse(raw, e.Decode), nil
}

// Value performs the call and decodes the result. Errors from either step are
// returned unchanged.
func (e Endpoint[P, T]) Value(ctx context.Context, c *Client, params P, overrides ...Override) (T, error) {
	resp, err := e.Raw(ctx, c, params, overrides...)
	if err != nil {
		var zero T
		return zero, err
	}
	return resp.Value()
}
