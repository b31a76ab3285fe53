package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client builds, dispatches and classifies requests for every endpoint.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	config Configuration
	logger *slog.Logger
}

// NewClient creates a new client with the given configuration.
func NewClient(config Configuration) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config = config.clone()
	if config.Transport == nil {
		config.Transport = defaultTransport()
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config: config,
		logger: logger.With("component", "hld_client"),
	}, nil
}

// Configuration returns a copy of the client configuration.
func (c *Client) Configuration() Configuration {
	return c.config.clone()
}

// WithMiddleware returns a clone of the client with mw appended.
func (c *Client) WithMiddleware(mw ...Middleware) *Client {
	config := c.config.clone()
	config.Middleware = append(config.Middleware, mw...)
	return &Client{config: config, logger: c.logger}
}

// WithPreMiddleware returns a clone of the client with request hooks appended.
func (c *Client) WithPreMiddleware(fns ...PreFunc) *Client {
	mw := make([]Middleware, len(fns))
	for i, fn := range fns {
		mw[i] = fn
	}
	return c.WithMiddleware(mw...)
}

// WithPostMiddleware returns a clone of the client with response hooks appended.
func (c *Client) WithPostMiddleware(fns ...PostFunc) *Client {
	mw := make([]Middleware, len(fns))
	for i, fn := range fns {
		mw[i] = fn
	}
	return c.WithMiddleware(mw...)
}

// Execute performs one call: build the descriptor, apply overrides in order, run
// middleware, dispatch exactly once and classify the response.
func (c *Client) Execute(ctx context.Context, opts RequestOptions, overrides ...Override) (*RawResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Operation: opts.Operation, Method: opts.Method, URL: opts.Path, Err: err}
	}

	desc, err := c.BuildDescriptor(ctx, opts)
	if err != nil {
		return nil, err
	}

	for _, o := range overrides {
		if o == nil {
			continue
		}
		if desc, err = o.apply(ctx, desc, opts); err != nil {
			return nil, fmt.Errorf("apply override: %w", err)
		}
	}

	var resp *RawResponse
	for _, mw := range c.config.Middleware {
		r, err := mw.HandleRequest(ctx, desc)
		if err != nil {
			return nil, err
		}
		if r != nil {
			r.ShortCircuited = true
			resp = r
			break
		}
	}

	// A short-circuited response must not outlive a cancelled call.
	if resp != nil {
		if err := ctx.Err(); err != nil {
			return nil, &TransportError{Operation: desc.Operation, Method: desc.Method, URL: desc.URL, Err: err}
		}
	}

	if resp == nil {
		var transportErr *TransportError
		resp, transportErr = c.dispatch(ctx, desc)
		if transportErr != nil {
			if resp = c.handleError(ctx, desc, transportErr); resp == nil {
				c.logger.Debug("transport failure",
					"operation", desc.Operation,
					"method", desc.Method,
					"error", transportErr.Err,
				)
				return nil, transportErr
			}
		}
	}

	for _, mw := range c.config.Middleware {
		r, err := mw.HandleResponse(ctx, desc, resp)
		if err != nil {
			return nil, err
		}
		if r != nil {
			resp = r
		}
	}

	c.logger.Debug("call completed",
		"operation", desc.Operation,
		"method", desc.Method,
		"status_code", resp.StatusCode,
		"duration", resp.Duration,
	)

	if !resp.IsSuccess() {
		return nil, newAPIError(desc, resp)
	}
	return resp, nil
}

// BuildDescriptor resolves opts against the configuration. Later sources win:
// Accept and User-Agent, configured default headers, credentials, then operation
// headers.
func (c *Client) BuildDescriptor(ctx context.Context, opts RequestOptions) (*Descriptor, error) {
	reqURL, err := buildURL(c.config.BasePath, opts)
	if err != nil {
		return nil, err
	}

	body, isJSON, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Accept", "application/json")
	header.Set("User-Agent", c.config.UserAgent)
	for key, value := range c.config.Headers {
		header.Set(key, value)
	}

	if err := c.applyAuth(ctx, header); err != nil {
		return nil, err
	}

	for key, values := range opts.Header {
		header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	if isJSON && header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	return &Descriptor{
		Operation: opts.Operation,
		Method:    method,
		URL:       reqURL,
		Header:    header,
		Body:      body,
	}, nil
}

// applyAuth injects every configured credential.
func (c *Client) applyAuth(ctx context.Context, header http.Header) error {
	if c.config.Username != "" {
		req := &http.Request{Header: header}
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	if c.config.APIKey != nil {
		name := c.config.APIKeyHeader
		if name == "" {
			name = "X-API-Key"
		}
		key, err := c.config.APIKey(name)
		if err != nil {
			return fmt.Errorf("resolve api key: %w", err)
		}
		if key != "" {
			header.Set(name, key)
		}
	}

	if c.config.AccessToken != nil {
		token, err := c.config.AccessToken(ctx, "bearer", nil)
		if err != nil {
			return fmt.Errorf("resolve access token: %w", err)
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	return nil
}

// dispatch sends the request once and buffers the body.
func (c *Client) dispatch(ctx context.Context, desc *Descriptor) (*RawResponse, *TransportError) {
	fail := func(err error) *TransportError {
		return &TransportError{Operation: desc.Operation, Method: desc.Method, URL: desc.URL, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, fail(err)
	}

	req, err := desc.NewHTTPRequest(ctx)
	if err != nil {
		return nil, fail(err)
	}

	start := time.Now()
	httpResp, err := c.config.Transport.Do(req)
	if err != nil {
		return nil, fail(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fail(fmt.Errorf("failed to read response: %w", err))
	}

	return &RawResponse{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

// handleError offers the transport failure to ErrorHandler middleware.
func (c *Client) handleError(ctx context.Context, desc *Descriptor, err *TransportError) *RawResponse {
	for _, mw := range c.config.Middleware {
		handler, ok := mw.(ErrorHandler)
		if !ok {
			continue
		}
		if resp := handler.HandleError(ctx, desc, err); resp != nil {
			return resp
		}
	}
	return nil
}
