// Package runtime provides the client runtime that every hld endpoint is built on:
// request construction, dispatch through a pluggable transport, response
// classification, and lazily decoded response envelopes.
package runtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultBasePath is the REST root of a locally running daemon.
const DefaultBasePath = "http://localhost:7777/api/v1"

// DefaultUserAgent is sent when Configuration.UserAgent is empty.
const DefaultUserAgent = "hldclient-go/1.0"

// Doer executes a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a plain function to the Doer interface.
type DoerFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req).
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Configuration holds the settings shared by every call made through a Client.
// It is copied into the Client on construction and never mutated afterwards.
type Configuration struct {
	// BasePath is prepended to every operation path.
	BasePath string

	// Headers are default headers sent with every request.
	Headers map[string]string

	// Middleware runs around every dispatch in registration order.
	Middleware []Middleware

	// Transport performs the HTTP exchange. Defaults to an *http.Client without timeout.
	Transport Doer

	// UserAgent is the User-Agent header value.
	UserAgent string

	// Username and Password enable HTTP basic auth when Username is set.
	Username string
	Password string

	// APIKey returns the key for the named header. APIKeyHeader defaults to "X-API-Key".
	APIKey       func(name string) (string, error)
	APIKeyHeader string

	// AccessToken returns a bearer token for the named security scheme.
	AccessToken func(ctx context.Context, name string, scopes []string) (string, error)

	// Logger receives debug logs for each dispatch.
	Logger *slog.Logger
}

// DefaultConfiguration returns a configuration pointing at a local daemon.
func DefaultConfiguration() Configuration {
	return Configuration{
		BasePath:  DefaultBasePath,
		Headers:   make(map[string]string),
		UserAgent: DefaultUserAgent,
	}
}

// ConfigurationFromEnv creates a configuration from environment variables using the
// given prefix (e.g. HLD_BASE_URL, HLD_USER_AGENT, HLD_API_KEY, HLD_TOKEN).
func ConfigurationFromEnv(prefix string) Configuration {
	cfg := DefaultConfiguration()
	p := envPrefix(prefix)

	if baseURL := os.Getenv(p + "BASE_URL"); baseURL != "" {
		cfg.BasePath = baseURL
	}
	if userAgent := os.Getenv(p + "USER_AGENT"); userAgent != "" {
		cfg.UserAgent = userAgent
	}
	if apiKey := os.Getenv(p + "API_KEY"); apiKey != "" {
		cfg.APIKey = StaticAPIKey(apiKey)
	}
	if token := os.Getenv(p + "TOKEN"); token != "" {
		cfg.AccessToken = StaticAccessToken(token)
	}

	return cfg
}

// StaticAPIKey returns an APIKey function that always yields key.
func StaticAPIKey(key string) func(string) (string, error) {
	return func(string) (string, error) { return key, nil }
}

// StaticAccessToken returns an AccessToken function that always yields token.
func StaticAccessToken(token string) func(context.Context, string, []string) (string, error) {
	return func(context.Context, string, []string) (string, error) { return token, nil }
}

// Validate validates the configuration.
func (c *Configuration) Validate() error {
	if c.BasePath == "" {
		return &ConfigError{Field: "BasePath", Message: "is required"}
	}
	u, err := url.Parse(c.BasePath)
	if err != nil {
		return &ConfigError{Field: "BasePath", Message: "is not a valid URL: " + err.Error()}
	}
	if u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "BasePath", Message: "must be an absolute URL"}
	}
	return nil
}

// clone returns a deep enough copy that the original can never be observed changing.
func (c Configuration) clone() Configuration {
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}
	c.Headers = headers
	c.Middleware = append([]Middleware(nil), c.Middleware...)
	return c
}

// ConfigBuilder provides a fluent interface for building configurations.
type ConfigBuilder struct {
	config Configuration
}

// NewConfigBuilder creates a builder seeded with DefaultConfiguration.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: DefaultConfiguration()}
}

// BasePath sets the base path.
func (b *ConfigBuilder) BasePath(basePath string) *ConfigBuilder {
	b.config.BasePath = basePath
	return b
}

// Header adds a default header.
func (b *ConfigBuilder) Header(key, value string) *ConfigBuilder {
	if b.config.Headers == nil {
		b.config.Headers = make(map[string]string)
	}
	b.config.Headers[key] = value
	return b
}

// Headers sets multiple default headers.
func (b *ConfigBuilder) Headers(headers map[string]string) *ConfigBuilder {
	for k, v := range headers {
		b.Header(k, v)
	}
	return b
}

// Use appends middleware.
func (b *ConfigBuilder) Use(mw ...Middleware) *ConfigBuilder {
	b.config.Middleware = append(b.config.Middleware, mw...)
	return b
}

// Transport sets the transport used to dispatch requests.
func (b *ConfigBuilder) Transport(doer Doer) *ConfigBuilder {
	b.config.Transport = doer
	return b
}

// HTTPClient sets an *http.Client as transport.
func (b *ConfigBuilder) HTTPClient(client *http.Client) *ConfigBuilder {
	b.config.Transport = client
	return b
}

// UserAgent sets the User-Agent header value.
func (b *ConfigBuilder) UserAgent(userAgent string) *ConfigBuilder {
	b.config.UserAgent = userAgent
	return b
}

// BasicAuth sets basic authentication.
func (b *ConfigBuilder) BasicAuth(username, password string) *ConfigBuilder {
	b.config.Username = username
	b.config.Password = password
	return b
}

// APIKeyAuth sets API key authentication.
func (b *ConfigBuilder) APIKeyAuth(apiKey, header string) *ConfigBuilder {
	b.config.APIKey = StaticAPIKey(apiKey)
	b.config.APIKeyHeader = header
	return b
}

// BearerAuth sets a static bearer token.
func (b *ConfigBuilder) BearerAuth(token string) *ConfigBuilder {
	b.config.AccessToken = StaticAccessToken(token)
	return b
}

// AccessToken sets a dynamic bearer token source.
func (b *ConfigBuilder) AccessToken(fn func(ctx context.Context, name string, scopes []string) (string, error)) *ConfigBuilder {
	b.config.AccessToken = fn
	return b
}

// Logger sets the logger.
func (b *ConfigBuilder) Logger(logger *slog.Logger) *ConfigBuilder {
	b.config.Logger = logger
	return b
}

// Build returns the built configuration.
func (b *ConfigBuilder) Build() Configuration {
	return b.config.clone()
}

// defaultTransport mirrors http.DefaultTransport pooling without imposing a timeout;
// deadlines come from the caller's context.
func defaultTransport() Doer {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func envPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	p := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(prefix))
	if !strings.HasSuffix(p, "_") {
		p += "_"
	}
	return p
}
