package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bargom/hldclient/internal/daemontest"
	"github.com/bargom/hldclient/pkg/cache"
	"github.com/bargom/hldclient/pkg/hld"
	"github.com/bargom/hldclient/pkg/logging"
	"github.com/bargom/hldclient/pkg/metrics"
	"github.com/bargom/hldclient/pkg/models"
	"github.com/bargom/hldclient/pkg/runtime"
)

func newClient(t *testing.T, baseURL string, mw ...runtime.Middleware) *hld.APIClient {
	t.Helper()
	c, err := hld.NewAPIClient(runtime.NewConfigBuilder().
		BasePath(baseURL).
		BearerAuth("tok").
		Use(mw...).
		Build())
	require.NoError(t, err)
	return c
}

// closedURL returns a base URL nothing listens on.
func closedURL(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "http://" + addr + daemontest.APIPrefix
}

func TestHeader(t *testing.T) {
	d, baseURL := daemontest.Start(t)
	headers := map[string]string{"X-Client": "hldctl"}
	c := newClient(t, baseURL, NewHeader(headers))
	headers["X-Client"] = "mutated"

	_, err := c.System.GetHealth(context.Background())
	require.NoError(t, err)

	last, ok := d.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "hldctl", last.Header.Get("X-Client"))
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()

	t.Run("generates ids", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewRequestID(func() string { return "req-1" }))

		_, err := c.System.GetHealth(ctx)
		require.NoError(t, err)

		last, _ := d.LastRequest()
		assert.Equal(t, "req-1", last.Header.Get(logging.HeaderRequestID))
		assert.Equal(t, "req-1", last.Header.Get(logging.HeaderTraceID))
	})

	t.Run("reuses context trace", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewRequestID(nil))

		traced := logging.TraceContext{RequestID: "r-ctx", TraceID: "t-ctx"}.ToContext(ctx)
		_, err := c.System.GetHealth(traced)
		require.NoError(t, err)

		last, _ := d.LastRequest()
		assert.Equal(t, "r-ctx", last.Header.Get(logging.HeaderRequestID))
		assert.Equal(t, "t-ctx", last.Header.Get(logging.HeaderTraceID))
	})

	t.Run("override header wins", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewRequestID(nil))

		_, err := c.System.GetHealth(ctx, runtime.WithHeader(logging.HeaderRequestID, "explicit"))
		require.NoError(t, err)

		last, _ := d.LastRequest()
		assert.Equal(t, "explicit", last.Header.Get(logging.HeaderRequestID))
		assert.Equal(t, "explicit", last.Header.Get(logging.HeaderTraceID))
	})

	t.Run("generated ids are uuids", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewRequestID(nil))

		_, err := c.System.GetHealth(ctx)
		require.NoError(t, err)
		_, err = c.System.GetHealth(ctx)
		require.NoError(t, err)

		reqs := d.Requests()
		require.Len(t, reqs, 2)
		assert.Len(t, reqs[0].Header.Get(logging.HeaderRequestID), 36)
		assert.NotEqual(t, reqs[0].Header.Get(logging.HeaderRequestID), reqs[1].Header.Get(logging.HeaderRequestID))
	})
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		lines = append(lines, entry)
	}
	return lines
}

func TestLogging(t *testing.T) {
	ctx := context.Background()

	t.Run("logs request and response", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWithWriter(logging.Config{Level: "debug", Format: "json"}, &buf)
		_, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewLogging(logger.Logger).WithVerbosity(VerbosityVerbose))

		_, err := c.System.GetHealth(ctx)
		require.NoError(t, err)

		lines := logLines(t, &buf)
		var request, response map[string]any
		for _, l := range lines {
			switch l["msg"] {
			case "outgoing request":
				request = l
			case "incoming response":
				response = l
			}
		}
		require.NotNil(t, request)
		require.NotNil(t, response)

		assert.Equal(t, "getHealth", request["operation"])
		assert.Equal(t, "GET", request["method"])
		headers := request["headers"].(map[string]any)
		assert.Equal(t, []any{logging.RedactedValue}, headers["Authorization"])

		assert.Equal(t, float64(200), response["status_code"])
		assert.Equal(t, false, response["short_circuited"])
	})

	t.Run("server errors log at warn", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWithWriter(logging.Config{Level: "warn", Format: "json"}, &buf)
		d, baseURL := daemontest.Start(t)
		d.Fail(http.MethodGet, "/health", daemontest.Fault{Status: http.StatusBadGateway})
		c := newClient(t, baseURL, NewLogging(logger.Logger).WithVerbosity(VerbosityMinimal))

		_, err := c.System.GetHealth(ctx)
		require.Error(t, err)

		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "incoming response", lines[0]["msg"])
		assert.Equal(t, float64(502), lines[0]["status_code"])
		assert.NotContains(t, lines[0], "method")
	})

	t.Run("transport errors", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWithWriter(logging.Config{Level: "warn", Format: "json"}, &buf)
		c := newClient(t, closedURL(t), NewLogging(logger.Logger))

		_, err := c.System.GetHealth(ctx)
		_, ok := runtime.IsTransportError(err)
		require.True(t, ok, "logging must not swallow transport errors")

		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "transport error", lines[0]["msg"])
		assert.Equal(t, false, lines[0]["canceled"])
	})
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("records calls and http errors", func(t *testing.T) {
		reg := metrics.NewRegistry(metrics.DefaultConfig())
		d, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewMetrics(reg))

		_, err := c.System.GetHealth(ctx)
		require.NoError(t, err)
		_, err = c.Sessions.GetSession(ctx, hld.GetSessionRequest{ID: "missing"})
		require.Error(t, err)
		_ = d

		assert.Equal(t, 1.0, counterValue(t, reg, "hld_client_calls_total",
			map[string]string{"operation": "getHealth", "method": "GET", "status_code": "200"}))
		assert.Equal(t, 1.0, counterValue(t, reg, "hld_client_calls_total",
			map[string]string{"operation": "getSession", "status_code": "404"}))
		assert.Equal(t, 1.0, counterValue(t, reg, "hld_client_errors_total",
			map[string]string{"operation": "getSession", "error_type": "client_error"}))
	})

	t.Run("records transport errors", func(t *testing.T) {
		reg := metrics.NewRegistry(metrics.DefaultConfig())
		c := newClient(t, closedURL(t), NewMetrics(reg))

		_, err := c.System.GetHealth(ctx)
		require.Error(t, err)

		assert.Equal(t, 1.0, counterValue(t, reg, "hld_client_errors_total",
			map[string]string{"operation": "getHealth", "error_type": "connection_refused"}))
	})

	t.Run("nil registry without global records nothing", func(t *testing.T) {
		_, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewMetrics(nil))

		_, err := c.System.GetHealth(ctx)
		assert.NoError(t, err)
	})
}

func TestCache(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *cache.MemoryCache {
		store := cache.NewMemoryCache(cache.Config{DefaultTTL: time.Minute})
		t.Cleanup(func() { store.Close() })
		return store
	}

	t.Run("serves repeated gets from cache", func(t *testing.T) {
		reg := metrics.NewRegistry(metrics.DefaultConfig())
		metrics.SetGlobal(reg)
		t.Cleanup(func() { metrics.SetGlobal(nil) })

		d, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewCache(newStore(t), CacheConfig{}))

		first, err := c.System.GetHealthRaw(ctx)
		require.NoError(t, err)
		second, err := c.System.GetHealthRaw(ctx)
		require.NoError(t, err)

		assert.Len(t, d.Requests(), 1)
		assert.Empty(t, first.Raw().Header.Get(CacheHeader))
		assert.Equal(t, "HIT", second.Raw().Header.Get(CacheHeader))
		assert.True(t, second.Raw().ShortCircuited)

		v, err := second.Value()
		require.NoError(t, err)
		assert.Equal(t, models.HealthStatusOK, v.Status)

		assert.Equal(t, 1.0, counterValue(t, reg, "hld_client_cache_requests_total", map[string]string{"result": "hit"}))
		assert.Equal(t, 1.0, counterValue(t, reg, "hld_client_cache_requests_total", map[string]string{"result": "miss"}))
	})

	t.Run("keys start with the descriptor key", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		store := newStore(t)
		c := newClient(t, baseURL, NewCache(store, CacheConfig{}))

		_, err := c.System.GetHealth(ctx)
		require.NoError(t, err)
		require.NoError(t, store.DeletePrefix(ctx, "GET "+baseURL+"/health "))
		_, err = c.System.GetHealth(ctx)
		require.NoError(t, err)

		assert.Len(t, d.Requests(), 2)
	})

	t.Run("cache hit on a cancelled context is an error", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewCache(newStore(t), CacheConfig{}))

		_, err := c.System.GetHealth(ctx)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = c.System.GetHealth(cancelled)

		transportErr, ok := runtime.IsTransportError(err)
		require.True(t, ok)
		assert.True(t, transportErr.Canceled())
		assert.Len(t, d.Requests(), 1)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewCache(newStore(t), CacheConfig{}))

		for i := 0; i < 2; i++ {
			_, err := c.Sessions.GetSession(ctx, hld.GetSessionRequest{ID: "missing"})
			require.Error(t, err)
		}
		assert.Len(t, d.Requests(), 2)
	})

	t.Run("credentials partition entries", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		store := newStore(t)
		c := newClient(t, baseURL, NewCache(store, CacheConfig{}))

		_, err := c.System.GetHealth(ctx)
		require.NoError(t, err)
		_, err = c.System.GetHealth(ctx, runtime.WithHeader("Authorization", "Bearer other"))
		require.NoError(t, err)

		assert.Len(t, d.Requests(), 2)
	})

	t.Run("operations filter", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewCache(newStore(t), CacheConfig{Operations: []string{"listSessions"}}))

		for i := 0; i < 2; i++ {
			_, err := c.System.GetHealth(ctx)
			require.NoError(t, err)
		}
		assert.Len(t, d.Requests(), 2)
	})

	t.Run("mutations invalidate", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL, NewCache(newStore(t), CacheConfig{}))

		list, err := c.Sessions.ListSessions(ctx, hld.ListSessionsRequest{})
		require.NoError(t, err)
		assert.Empty(t, list.Data)

		_, err = c.Sessions.CreateSession(ctx, hld.CreateSessionRequest{Body: &models.CreateSessionRequest{Query: "q"}})
		require.NoError(t, err)

		list, err = c.Sessions.ListSessions(ctx, hld.ListSessionsRequest{})
		require.NoError(t, err)
		assert.Len(t, list.Data, 1)
		assert.Len(t, d.Requests(), 3)
	})
}
