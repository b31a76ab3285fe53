package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TransportError is returned when no response was obtained: DNS failure, refused
// connection, timeout or cancellation.
type TransportError struct {
	Operation string
	Method    string
	URL       string
	Err       error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport error: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Canceled reports whether the call was cancelled through its context.
func (e *TransportError) Canceled() bool {
	return errors.Is(e.Err, context.Canceled)
}

// Timeout reports whether the call hit a deadline or a network timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ErrorBody is the structured error payload the daemon returns on failures.
type ErrorBody struct {
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// APIError is returned when a response was obtained with a status outside [200,300).
type APIError struct {
	Operation  string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte

	// Parsed is the best-effort structured body; nil when the body did not parse.
	Parsed *ErrorBody

	// Value is the body decoded as arbitrary JSON; nil when the body is not JSON.
	Value any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Operation != "" {
		msg = e.Operation + ": " + msg
	}
	if detail := e.Message(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// Message returns the most specific human readable message available.
func (e *APIError) Message() string {
	if e.Parsed != nil {
		switch {
		case e.Parsed.Message != "":
			return e.Parsed.Message
		case e.Parsed.Error != "":
			return e.Parsed.Error
		}
	}
	if e.Value == nil {
		return strings.TrimSpace(string(e.Body))
	}
	return ""
}

// IsNotFound returns true for 404 responses.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized returns true for 401 responses.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsConflict returns true for 409 responses.
func (e *APIError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}

// IsServerError returns true for 5xx responses.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// newAPIError classifies a non-success response. Body parsing is best effort and never
// replaces the status-derived error.
func newAPIError(desc *Descriptor, resp *RawResponse) *APIError {
	apiErr := &APIError{
		Operation:  desc.Operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       resp.Body,
	}

	if len(resp.Body) == 0 {
		return apiErr
	}

	var value any
	if err := json.Unmarshal(resp.Body, &value); err != nil {
		return apiErr
	}
	apiErr.Value = value

	if _, ok := value.(map[string]any); ok {
		var parsed ErrorBody
		if err := json.Unmarshal(resp.Body, &parsed); err == nil {
			apiErr.Parsed = &parsed
		}
	}
	return apiErr
}

// DecodeError is returned when a successful response does not match the expected schema.
type DecodeError struct {
	Type    string
	Body    []byte
	Missing []string
	Err     error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("decode %s: missing required fields: %s", e.Type, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("decode %s: %v", e.Type, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RequiredError is returned before any network call when a required parameter is missing.
type RequiredError struct {
	Operation string
	Field     string
}

// Error implements the error interface.
func (e *RequiredError) Error() string {
	return fmt.Sprintf("required parameter %q was not set when calling %s", e.Field, e.Operation)
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}

// IsTransportError returns the *TransportError in err's chain, if any.
func IsTransportError(err error) (*TransportError, bool) {
	var target *TransportError
	ok := errors.As(err, &target)
	return target, ok
}

// IsAPIError returns the *APIError in err's chain, if any.
func IsAPIError(err error) (*APIError, bool) {
	var target *APIError
	ok := errors.As(err, &target)
	return target, ok
}

// IsDecodeError returns the *DecodeError in err's chain, if any.
func IsDecodeError(err error) (*DecodeError, bool) {
	var target *DecodeError
	ok := errors.As(err, &target)
	return target, ok
}

// IsRequiredError returns the *RequiredError in err's chain, if any.
func IsRequiredError(err error) (*RequiredError, bool) {
	var target *RequiredError
	ok := errors.As(err, &target)
	return target, ok
}
