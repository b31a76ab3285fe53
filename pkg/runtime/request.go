package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RequestOptions describes one operation call before it is resolved against the
// client configuration.
type RequestOptions struct {
	// Operation is the operation ID, used in errors, logs and metrics.
	Operation string

	Method string

	// Path may contain {name} placeholders filled from PathParams.
	Path       string
	PathParams map[string]string

	Query  Query
	Header http.Header

	// Body is sent as-is when it is []byte or string, JSON encoded otherwise.
	Body any
}

// Require returns a *RequiredError for field when present is false.
func (o *RequestOptions) Require(field string, present bool) error {
	if present {
		return nil
	}
	return &RequiredError{Operation: o.Operation, Field: field}
}

// SetPathParam sets a path placeholder value.
func (o *RequestOptions) SetPathParam(name, value string) {
	if o.PathParams == nil {
		o.PathParams = make(map[string]string)
	}
	o.PathParams[name] = value
}

// SetQuery sets a query parameter. Nil values are skipped at render time.
func (o *RequestOptions) SetQuery(name string, value any) {
	if o.Query == nil {
		o.Query = make(Query)
	}
	o.Query[name] = value
}

// SetHeader sets a request header.
func (o *RequestOptions) SetHeader(name, value string) {
	if o.Header == nil {
		o.Header = make(http.Header)
	}
	o.Header.Set(name, value)
}

// Descriptor is the fully resolved request for one call. Overrides and middleware
// receive a call-local copy and may modify it freely.
type Descriptor struct {
	Operation string
	Method    string
	URL       string
	Header    http.Header
	Body      []byte
}

// Clone returns a deep copy of the descriptor.
func (d *Descriptor) Clone() *Descriptor {
	return &Descriptor{
		Operation: d.Operation,
		Method:    d.Method,
		URL:       d.URL,
		Header:    d.Header.Clone(),
		Body:      bytes.Clone(d.Body),
	}
}

// NewHTTPRequest converts the descriptor into an *http.Request bound to ctx.
// The body is rewindable so transport decorators can resend it.
func (d *Descriptor) NewHTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if d.Body != nil {
		body = bytes.NewReader(d.Body)
	}
	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header = d.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	return req, nil
}

// Key returns a stable identity for the request, suitable as a cache key.
func (d *Descriptor) Key() string {
	return d.Method + " " + d.URL
}

// Override adjusts a single call without touching the shared configuration.
// It is implemented by RequestInit and OverrideFunc only.
type Override interface {
	apply(ctx context.Context, desc *Descriptor, opts RequestOptions) (*Descriptor, error)
}

// RequestInit is a static partial request merged over the built descriptor.
// Set fields replace the built values; header and query keys replace built keys
// one by one.
type RequestInit struct {
	Method string
	Header http.Header
	Query  Query
	Body   []byte
}

func (o RequestInit) apply(_ context.Context, desc *Descriptor, _ RequestOptions) (*Descriptor, error) {
	if o.Method != "" {
		desc.Method = o.Method
	}
	if len(o.Query) > 0 {
		u, err := url.Parse(desc.URL)
		if err != nil {
			return nil, fmt.Errorf("parse request url: %w", err)
		}
		// Merge into the current URL so earlier overrides survive.
		current := u.Query()
		replace, err := url.ParseQuery(o.Query.Encode())
		if err != nil {
			return nil, fmt.Errorf("encode override query: %w", err)
		}
		for key, values := range replace {
			current[key] = values
		}
		u.RawQuery = current.Encode()
		desc.URL = u.String()
	}
	for key, values := range o.Header {
		desc.Header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	if o.Body != nil {
		desc.Body = bytes.Clone(o.Body)
	}
	return desc, nil
}

// OverrideFunc transforms a copy of the current descriptor; its return value is
// sent. Returning a nil descriptor discards the copy and keeps the input.
type OverrideFunc func(ctx context.Context, desc *Descriptor, opts RequestOptions) (*Descriptor, error)

func (f OverrideFunc) apply(ctx context.Context, desc *Descriptor, opts RequestOptions) (*Descriptor, error) {
	out, err := f(ctx, desc.Clone(), opts)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return desc, nil
	}
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	return out, nil
}

// WithHeader is a convenience override that sets a single header.
func WithHeader(key, value string) Override {
	return RequestInit{Header: http.Header{http.CanonicalHeaderKey(key): {value}}}
}

// buildURL joins the base path, the substituted operation path and the query string.
func buildURL(basePath string, opts RequestOptions) (string, error) {
	path := opts.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			return "", fmt.Errorf("unterminated path parameter in %q", opts.Path)
		}
		name := path[start+1 : start+end]
		value, ok := opts.PathParams[name]
		if !ok {
			return "", &RequiredError{Operation: opts.Operation, Field: name}
		}
		path = path[:start] + url.PathEscape(value) + path[start+end+1:]
	}

	fullURL := strings.TrimSuffix(basePath, "/") + path
	if qs := opts.Query.Encode(); qs != "" {
		fullURL += "?" + qs
	}
	return fullURL, nil
}

// encodeBody renders RequestOptions.Body into bytes.
func encodeBody(body any) ([]byte, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return b, false, nil
	case string:
		return []byte(b), false, nil
	case json.RawMessage:
		return b, true, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, false, fmt.Errorf("failed to marshal body: %w", err)
		}
		return data, true, nil
	}
}
