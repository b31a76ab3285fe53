package middleware

import (
	"context"
	"log/slog"

	"github.com/bargom/hldclient/pkg/logging"
	"github.com/bargom/hldclient/pkg/runtime"
)

// Verbosity controls how much request and response detail is logged.
type Verbosity int

const (
	// VerbosityMinimal logs only operation, status and duration.
	VerbosityMinimal Verbosity = iota
	// VerbosityStandard also logs the method, URL and body size.
	VerbosityStandard
	// VerbosityVerbose also logs request and response headers.
	VerbosityVerbose
)

// Logging logs every call. Credentials are redacted from URLs and headers.
type Logging struct {
	logger    *slog.Logger
	redactor  *logging.Redactor
	verbosity Verbosity
}

// NewLogging creates a new logging middleware.
func NewLogging(logger *slog.Logger) *Logging {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logging{
		logger:    logger.With("component", "hld_middleware"),
		redactor:  logging.NewRedactor(),
		verbosity: VerbosityStandard,
	}
}

// WithVerbosity returns a copy logging at verbosity v.
func (m *Logging) WithVerbosity(v Verbosity) *Logging {
	return &Logging{
		logger:    m.logger,
		redactor:  m.redactor,
		verbosity: v,
	}
}

// HandleRequest logs the outgoing request.
func (m *Logging) HandleRequest(ctx context.Context, req *runtime.Descriptor) (*runtime.RawResponse, error) {
	attrs := []any{"operation", req.Operation}
	if m.verbosity >= VerbosityStandard {
		attrs = append(attrs,
			"method", req.Method,
			"url", m.redactor.RedactString(req.URL),
		)
	}
	if m.verbosity >= VerbosityVerbose {
		attrs = append(attrs, "headers", m.redactor.RedactHeader(req.Header))
	}
	m.logger.DebugContext(ctx, "outgoing request", attrs...)
	return nil, nil
}

// HandleResponse logs the response. Server errors are logged at warn level.
func (m *Logging) HandleResponse(ctx context.Context, req *runtime.Descriptor, resp *runtime.RawResponse) (*runtime.RawResponse, error) {
	attrs := []any{
		"operation", req.Operation,
		"status_code", resp.StatusCode,
		"duration", resp.Duration,
	}
	if m.verbosity >= VerbosityStandard {
		attrs = append(attrs,
			"method", req.Method,
			"body_size", len(resp.Body),
			"short_circuited", resp.ShortCircuited,
		)
	}
	if m.verbosity >= VerbosityVerbose {
		attrs = append(attrs, "headers", m.redactor.RedactHeader(resp.Header))
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 500 {
		level = slog.LevelWarn
	}
	m.logger.Log(ctx, level, "incoming response", attrs...)
	return nil, nil
}

// HandleError logs transport failures and leaves them unhandled.
func (m *Logging) HandleError(ctx context.Context, req *runtime.Descriptor, err *runtime.TransportError) *runtime.RawResponse {
	m.logger.WarnContext(ctx, "transport error",
		"operation", req.Operation,
		"method", req.Method,
		"url", m.redactor.RedactString(req.URL),
		"canceled", err.Canceled(),
		"timeout", err.Timeout(),
		"error", err.Err,
	)
	return nil
}
