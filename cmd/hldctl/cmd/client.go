package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bargom/hldclient/pkg/auth"
	"github.com/bargom/hldclient/pkg/cache"
	"github.com/bargom/hldclient/pkg/hld"
	"github.com/bargom/hldclient/pkg/logging"
	"github.com/bargom/hldclient/pkg/metrics"
	"github.com/bargom/hldclient/pkg/middleware"
	"github.com/bargom/hldclient/pkg/runtime"
	"github.com/bargom/hldclient/pkg/transport"
)

// apiSession is everything a command needs to talk to the daemon.
type apiSession struct {
	api     *hld.APIClient
	metrics *metrics.Registry
	store   cache.Store
	logger  *logging.Logger
}

// newAPISession builds a client from the environment and the global flags.
// Flags win over HLD_* variables.
func newAPISession(cmd *cobra.Command) (*apiSession, error) {
	logCfg := logging.ConfigFromEnv()
	if verbose {
		logCfg.Level = "debug"
	}
	logger := logging.NewWithWriter(logCfg, cmd.ErrOrStderr())

	cfg := runtime.ConfigurationFromEnv("HLD")
	if baseURL != "" {
		cfg.BasePath = baseURL
	}
	cfg.UserAgent = "hldctl/" + Version
	cfg.Logger = logger.Logger

	if src := tokenSource(); src != nil {
		cfg.AccessToken = auth.AccessToken(src)
	}

	reg := metrics.NewRegistry(metrics.DefaultConfig().WithVersion(Version))
	metrics.SetGlobal(reg)

	breaker := transport.NewCircuitBreaker("hld", transport.CircuitBreakerConfig{
		OnStateChange: func(from, to transport.CircuitState) {
			logger.Warn("daemon circuit changed state", "from", from.String(), "to", to.String())
		},
	})
	retry := transport.DefaultRetryConfig()
	retry.MaxAttempts = retries + 1
	retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Debug("retrying request", "attempt", attempt, "delay", delay, "error", err)
	}
	cfg.Transport = transport.Chain(
		&http.Client{},
		transport.WithRetry(retry),
		transport.WithCircuitBreaker(breaker),
		transport.WithTimeout(timeout),
	)

	cfg.Middleware = append(cfg.Middleware,
		middleware.NewRequestID(nil),
		middleware.NewLogging(logger.Logger).WithVerbosity(verbosity()),
		middleware.NewMetrics(reg),
	)

	s := &apiSession{metrics: reg, logger: logger}
	if cacheURL != "" {
		store, err := cache.New(cache.Config{
			Type:       "redis",
			URL:        cacheURL,
			DefaultTTL: cacheTTL,
			Prefix:     "hldctl",
			PoolSize:   2,
			MaxRetries: 1,
		})
		if err != nil {
			return nil, fmt.Errorf("open response cache: %w", err)
		}
		s.store = store
		cfg.Middleware = append(cfg.Middleware, middleware.NewCache(store, responseCacheConfig()))
	}

	api, err := hld.NewAPIClient(cfg)
	if err != nil {
		s.Close(cmd)
		return nil, err
	}
	s.api = api

	printVerbose(cmd, "Using daemon at %s\n", cfg.BasePath)
	return s, nil
}

// responseCacheConfig caches listings only. Health must always reach the daemon.
func responseCacheConfig() middleware.CacheConfig {
	return middleware.CacheConfig{
		TTL:        cacheTTL,
		Operations: []string{"listSessions", "getSession", "listApprovals"},
	}
}

// Close releases the cache and prints metrics when --metrics is set.
func (s *apiSession) Close(cmd *cobra.Command) {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close cache", "error", err)
		}
	}
	if showMetrics && s.metrics != nil {
		if err := s.metrics.WriteText(cmd.ErrOrStderr()); err != nil {
			s.logger.Warn("failed to write metrics", "error", err)
		}
	}
	metrics.SetGlobal(nil)
}

// tokenSource picks the token from --token-file, --token or HLD_TOKEN, in that
// order. A token file is re-read on every call. A JWT given inline is checked
// for expiry before use.
func tokenSource() auth.TokenSource {
	if tokenFile != "" {
		return auth.FileToken(tokenFile)
	}

	raw := token
	if raw == "" {
		raw = os.Getenv("HLD_TOKEN")
	}
	if raw == "" {
		return nil
	}
	if auth.IsJWT(raw) {
		return auth.NewJWTSource(auth.JWTConfig{Source: auth.StaticToken(raw)})
	}
	return auth.StaticToken(raw)
}

func verbosity() middleware.Verbosity {
	if verbose {
		return middleware.VerbosityVerbose
	}
	return middleware.VerbosityStandard
}

// describeError turns client errors into one-line CLI messages.
func describeError(err error) error {
	var apiErr *runtime.APIError
	var reqErr *runtime.RequiredError
	switch {
	case errors.As(err, &apiErr):
		msg := apiErr.Message()
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return fmt.Errorf("daemon returned %d: %s", apiErr.StatusCode, strings.TrimSpace(msg))
	case errors.As(err, &reqErr):
		return fmt.Errorf("missing required parameter %q", reqErr.Field)
	case errors.Is(err, transport.ErrCircuitOpen):
		return fmt.Errorf("daemon unavailable: %w", err)
	default:
		if _, ok := runtime.IsTransportError(err); ok {
			return fmt.Errorf("cannot reach daemon: %w", err)
		}
		return err
	}
}
