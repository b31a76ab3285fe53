package runtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// RawResponse is a fully buffered transport response.
type RawResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	Duration   time.Duration

	// ShortCircuited is set when middleware produced the response without dispatch.
	ShortCircuited bool
}

// IsSuccess returns true if the response has a 2xx status code.
func (r *RawResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeBody unmarshals the body into v without schema checks.
func (r *RawResponse) DecodeBody(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// APIResponse wraps a successful response and decodes its body on demand.
// Value is memoised, so repeated and concurrent calls return the same result.
type APIResponse[T any] struct {
	raw    *RawResponse
	decode func([]byte) (T, error)

	once  sync.Once
	value T
	err   error
}

// JSONResponse binds a decode function to a raw response.
func JSONResponse[T any](raw *RawResponse, decode func([]byte) (T, error)) *APIResponse[T] {
	return &APIResponse[T]{raw: raw, decode: decode}
}

// VoidResponse wraps a response whose body is ignored.
func VoidResponse(raw *RawResponse) *APIResponse[struct{}] {
	return JSONResponse(raw, DecodeVoid)
}

// TextResponse wraps a response whose body is returned as a string.
func TextResponse(raw *RawResponse) *APIResponse[string] {
	return JSONResponse(raw, func(b []byte) (string, error) { return string(b), nil })
}

// BlobResponse wraps a response whose body is returned as bytes.
func BlobResponse(raw *RawResponse) *APIResponse[[]byte] {
	return JSONResponse(raw, func(b []byte) ([]byte, error) { return b, nil })
}

// DecodeVoid discards the body.
func DecodeVoid([]byte) (struct{}, error) {
	return struct{}{}, nil
}

// Raw returns the underlying response; available whether or not Value was called.
func (r *APIResponse[T]) Raw() *RawResponse {
	return r.raw
}

// Value decodes the body. Failures are always *DecodeError.
func (r *APIResponse[T]) Value() (T, error) {
	r.once.Do(func() {
		r.value, r.err = r.decode(r.raw.Body)
		if r.err != nil {
			if _, ok := IsDecodeError(r.err); !ok {
				r.err = &DecodeError{Type: fmt.Sprintf("%T", r.value), Body: r.raw.Body, Err: r.err}
			}
		}
	})
	return r.value, r.err
}
