package logging

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
)

const RedactedValue = "[REDACTED]"

// Default sensitive field names (case-insensitive). Header names are listed in
// their lower-case form.
var defaultSensitiveFields = map[string]bool{
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"x-api-key":     true,
	"authorization": true,
	"credential":    true,
	"credentials":   true,
	"access_token":  true,
	"refresh_token": true,
	"bearer":        true,
	"cookie":        true,
	"set-cookie":    true,
	"private_key":   true,
}

// Default patterns for credentials embedded in strings.
var defaultSensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password[\"']?\s*[:=]\s*[\"']?[^\s\"',}]+`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_\.]+`),
	regexp.MustCompile(`(?i)basic\s+[a-zA-Z0-9+/]{8,}=*`),
	regexp.MustCompile(`(?i)api[_-]?key[\"']?\s*[:=]\s*[\"']?[a-zA-Z0-9\-_]+`),
	regexp.MustCompile(`eyJ[a-zA-Z0-9\-_]+\.eyJ[a-zA-Z0-9\-_]+\.[a-zA-Z0-9\-_]+`),
	regexp.MustCompile(`(?i)secret[\"']?\s*[:=]\s*[\"']?[^\s\"',}]+`),
	// userinfo in URLs
	regexp.MustCompile(`(https?://)[^/\s:@]+:[^/\s@]+@`),
}

// Redactor removes credentials from log attributes.
type Redactor struct {
	sensitiveFields   map[string]bool
	sensitivePatterns []*regexp.Regexp
	allowlistFields   map[string]bool
	mu                sync.RWMutex
}

// NewRedactor creates a new Redactor with default settings.
func NewRedactor() *Redactor {
	r := &Redactor{
		sensitiveFields:   make(map[string]bool, len(defaultSensitiveFields)),
		sensitivePatterns: append([]*regexp.Regexp(nil), defaultSensitivePatterns...),
		allowlistFields:   make(map[string]bool),
	}
	for k, v := range defaultSensitiveFields {
		r.sensitiveFields[k] = v
	}
	return r
}

// AddSensitiveField adds a field name to the sensitive list.
func (r *Redactor) AddSensitiveField(field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensitiveFields[strings.ToLower(field)] = true
}

// AddSensitivePattern adds a regex pattern to detect sensitive data.
func (r *Redactor) AddSensitivePattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensitivePatterns = append(r.sensitivePatterns, re)
	return nil
}

// AddAllowlistField adds a field to the allowlist (won't be redacted even if matching).
func (r *Redactor) AddAllowlistField(field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allowlistFields[strings.ToLower(field)] = true
}

// IsSensitiveField checks if a field name is sensitive.
func (r *Redactor) IsSensitiveField(field string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lower := strings.ToLower(field)
	if r.allowlistFields[lower] {
		return false
	}
	return r.sensitiveFields[lower]
}

// RedactString redacts sensitive patterns from a string.
func (r *Redactor) RedactString(s string) string {
	r.mu.RLock()
	patterns := r.sensitivePatterns
	r.mu.RUnlock()

	result := s
	for _, pattern := range patterns {
		if pattern.NumSubexp() > 0 {
			result = pattern.ReplaceAllString(result, "${1}"+RedactedValue+"@")
			continue
		}
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// RedactHeader returns a copy of h with sensitive header values replaced.
func (r *Redactor) RedactHeader(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	result := make(http.Header, len(h))
	for k, values := range h {
		if r.IsSensitiveField(k) {
			result[k] = []string{RedactedValue}
			continue
		}
		redacted := make([]string, len(values))
		for i, v := range values {
			redacted[i] = r.RedactString(v)
		}
		result[k] = redacted
	}
	return result
}

// RedactMap redacts sensitive fields from a map recursively.
func (r *Redactor) RedactMap(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	result := make(map[string]any, len(data))
	for k, v := range data {
		if r.IsSensitiveField(k) {
			result[k] = RedactedValue
			continue
		}
		result[k] = r.redactValue(v)
	}
	return result
}

func (r *Redactor) redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return r.RedactMap(val)
	case string:
		return r.RedactString(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = r.redactValue(item)
		}
		return result
	default:
		return v
	}
}

var defaultRedactor = NewRedactor()

// RedactHeader redacts h using the default redactor.
func RedactHeader(h http.Header) http.Header {
	return defaultRedactor.RedactHeader(h)
}

// RedactStringValue redacts s using the default redactor.
func RedactStringValue(s string) string {
	return defaultRedactor.RedactString(s)
}

// RedactingHandler wraps a slog.Handler to redact sensitive data from log records.
type RedactingHandler struct {
	slog.Handler
	redactor *Redactor
}

// NewRedactingHandler creates a new RedactingHandler.
func NewRedactingHandler(handler slog.Handler, redactor *Redactor) *RedactingHandler {
	if redactor == nil {
		redactor = defaultRedactor
	}
	return &RedactingHandler{
		Handler:  handler,
		redactor: redactor,
	}
}

// Handle processes log records and redacts sensitive data.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	newRecord := slog.NewRecord(r.Time, r.Level, h.redactor.RedactString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		newRecord.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.Handler.Handle(ctx, newRecord)
}

func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	if h.redactor.IsSensitiveField(a.Key) {
		return slog.String(a.Key, RedactedValue)
	}

	a.Value = a.Value.Resolve()
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redactor.RedactString(a.Value.String()))
	case slog.KindGroup:
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = h.redactAttr(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case http.Header:
			return slog.Any(a.Key, h.redactor.RedactHeader(v))
		case error:
			return slog.String(a.Key, h.redactor.RedactString(v.Error()))
		}
		return a
	default:
		return a
	}
}

// WithAttrs returns a new RedactingHandler with the given attributes.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redactedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redactedAttrs[i] = h.redactAttr(a)
	}
	return &RedactingHandler{
		Handler:  h.Handler.WithAttrs(redactedAttrs),
		redactor: h.redactor,
	}
}

// WithGroup returns a new RedactingHandler with the given group.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{
		Handler:  h.Handler.WithGroup(name),
		redactor: h.redactor,
	}
}
