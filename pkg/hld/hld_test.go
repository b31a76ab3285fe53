package hld_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bargom/hldclient/internal/daemontest"
	"github.com/bargom/hldclient/pkg/hld"
	"github.com/bargom/hldclient/pkg/models"
	"github.com/bargom/hldclient/pkg/runtime"
)

func newClient(t *testing.T, baseURL string) *hld.APIClient {
	t.Helper()
	c, err := hld.NewAPIClient(runtime.NewConfigBuilder().BasePath(baseURL).Build())
	require.NoError(t, err)
	return c
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestSystemAPI_GetHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		_, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL)

		h, err := c.System.GetHealth(ctx)
		require.NoError(t, err)
		assert.Equal(t, &models.HealthResponse{Status: models.HealthStatusOK}, h)
	})

	t.Run("raw then value", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		d.SetHealth(models.HealthResponse{Status: models.HealthStatusOK, Version: strPtr("1.2.3")})
		c := newClient(t, baseURL)

		resp, err := c.System.GetHealthRaw(ctx)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Raw().StatusCode)

		first, err := resp.Value()
		require.NoError(t, err)
		second, err := resp.Value()
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, "1.2.3", *first.Version)
	})

	t.Run("unavailable", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		d.Fail(http.MethodGet, "/health", daemontest.Fault{Status: http.StatusServiceUnavailable, Body: `{"status":"degraded"}`})
		c := newClient(t, baseURL)

		resp, err := c.System.GetHealthRaw(ctx)
		assert.Nil(t, resp)
		apiErr, ok := runtime.IsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		assert.JSONEq(t, `{"status":"degraded"}`, string(apiErr.Body))

		h, err := c.System.GetHealth(ctx)
		assert.Nil(t, h)
		_, ok = runtime.IsAPIError(err)
		assert.True(t, ok)
	})

	t.Run("connection refused", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := l.Addr().String()
		require.NoError(t, l.Close())
		c := newClient(t, "http://"+addr+"/api/v1")

		resp, err := c.System.GetHealthRaw(ctx)
		assert.Nil(t, resp)
		_, ok := runtime.IsTransportError(err)
		assert.True(t, ok)

		h, err := c.System.GetHealth(ctx)
		assert.Nil(t, h)
		_, ok = runtime.IsTransportError(err)
		assert.True(t, ok)
	})

	t.Run("schema mismatch", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		d.Fail(http.MethodGet, "/health", daemontest.Fault{Status: http.StatusOK, Body: `{}`})
		c := newClient(t, baseURL)

		_, err := c.System.GetHealth(ctx)
		_, ok := runtime.IsDecodeError(err)
		assert.True(t, ok)
	})

	t.Run("function override header", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		c := newClient(t, baseURL)

		_, err := c.System.GetHealth(ctx, runtime.OverrideFunc(
			func(_ context.Context, desc *runtime.Descriptor, _ runtime.RequestOptions) (*runtime.Descriptor, error) {
				desc.Header.Set("X-Trace", "1")
				desc.Header.Set("User-Agent", "override/1.0")
				return desc, nil
			}))
		require.NoError(t, err)

		req, ok := d.LastRequest()
		require.True(t, ok)
		assert.Equal(t, "1", req.Header.Get("X-Trace"))
		assert.Equal(t, "override/1.0", req.Header.Get("User-Agent"))
	})

	t.Run("cancelled", func(t *testing.T) {
		d, baseURL := daemontest.Start(t)
		d.Fail(http.MethodGet, "/health", daemontest.Fault{Delay: time.Second})
		c := newClient(t, baseURL)

		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err := c.System.GetHealth(cctx)
		transportErr, ok := runtime.IsTransportError(err)
		require.True(t, ok)
		assert.True(t, transportErr.Timeout())
	})
}

func TestSessionsAPI(t *testing.T) {
	ctx := context.Background()
	d, baseURL := daemontest.Start(t)
	c := newClient(t, baseURL)

	created, err := c.Sessions.CreateSession(ctx, hld.CreateSessionRequest{
		Body: &models.CreateSessionRequest{Query: "write tests", Title: strPtr("tests")},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.Data.SessionID)

	last, _ := d.LastRequest()
	assert.Equal(t, "application/json", last.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"query":"write tests","title":"tests"}`, string(last.Body))

	t.Run("get", func(t *testing.T) {
		got, err := c.Sessions.GetSession(ctx, hld.GetSessionRequest{ID: created.Data.SessionID})
		require.NoError(t, err)
		assert.Equal(t, "write tests", got.Data.Query)
		assert.Equal(t, models.SessionStatusStarting, got.Data.Status)
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := c.Sessions.GetSession(ctx, hld.GetSessionRequest{ID: "missing"})
		apiErr, ok := runtime.IsAPIError(err)
		require.True(t, ok)
		assert.True(t, apiErr.IsNotFound())
		assert.Equal(t, "session not found", apiErr.Message())
	})

	t.Run("required parameters", func(t *testing.T) {
		before := len(d.Requests())

		_, err := c.Sessions.GetSession(ctx, hld.GetSessionRequest{})
		reqErr, ok := runtime.IsRequiredError(err)
		require.True(t, ok)
		assert.Equal(t, "id", reqErr.Field)

		_, err = c.Sessions.CreateSession(ctx, hld.CreateSessionRequest{})
		reqErr, ok = runtime.IsRequiredError(err)
		require.True(t, ok)
		assert.Equal(t, "createSessionRequest", reqErr.Field)

		_, err = c.Sessions.CreateSessionRaw(ctx, hld.CreateSessionRequest{Body: &models.CreateSessionRequest{}})
		reqErr, ok = runtime.IsRequiredError(err)
		require.True(t, ok)
		assert.Equal(t, "query", reqErr.Field)

		err = c.Sessions.ArchiveSession(ctx, hld.ArchiveSessionRequest{})
		_, ok = runtime.IsRequiredError(err)
		assert.True(t, ok)

		assert.Len(t, d.Requests(), before)
	})

	t.Run("archive and list", func(t *testing.T) {
		other, err := c.Sessions.CreateSession(ctx, hld.CreateSessionRequest{
			Body: &models.CreateSessionRequest{Query: "keep me"},
		})
		require.NoError(t, err)

		require.NoError(t, c.Sessions.ArchiveSession(ctx, hld.ArchiveSessionRequest{ID: created.Data.SessionID}))

		visible, err := c.Sessions.ListSessions(ctx, hld.ListSessionsRequest{})
		require.NoError(t, err)
		require.Len(t, visible.Data, 1)
		assert.Equal(t, other.Data.SessionID, visible.Data[0].ID)

		all, err := c.Sessions.ListSessions(ctx, hld.ListSessionsRequest{IncludeArchived: boolPtr(true)})
		require.NoError(t, err)
		assert.Len(t, all.Data, 2)

		last, _ := d.LastRequest()
		assert.Equal(t, "includeArchived=true", last.RawQuery)
	})

	t.Run("archive unknown", func(t *testing.T) {
		err := c.Sessions.ArchiveSession(ctx, hld.ArchiveSessionRequest{ID: "missing"})
		apiErr, ok := runtime.IsAPIError(err)
		require.True(t, ok)
		assert.True(t, apiErr.IsNotFound())
	})
}

func TestApprovalsAPI(t *testing.T) {
	ctx := context.Background()
	d, baseURL := daemontest.Start(t)
	c := newClient(t, baseURL)

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	d.AddApproval(models.Approval{ID: "a1", RunID: "r1", SessionID: "s1", Status: models.ApprovalStatusPending, CreatedAt: now, ToolName: "Bash", ToolInput: json.RawMessage(`{"command":"ls"}`)})
	d.AddApproval(models.Approval{ID: "a2", RunID: "r2", SessionID: "s2", Status: models.ApprovalStatusPending, CreatedAt: now.Add(time.Second), ToolName: "Edit"})

	t.Run("list filtered", func(t *testing.T) {
		resp, err := c.Approvals.ListApprovals(ctx, hld.ListApprovalsRequest{SessionID: strPtr("s1")})
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "a1", resp.Data[0].ID)
		assert.JSONEq(t, `{"command":"ls"}`, string(resp.Data[0].ToolInput))
	})

	t.Run("list all", func(t *testing.T) {
		resp, err := c.Approvals.ListApprovals(ctx, hld.ListApprovalsRequest{})
		require.NoError(t, err)
		assert.Len(t, resp.Data, 2)
	})

	t.Run("decide", func(t *testing.T) {
		resp, err := c.Approvals.DecideApproval(ctx, hld.DecideApprovalRequest{
			ID:   "a2",
			Body: &models.DecideApprovalRequest{Decision: models.DecisionDeny, Comment: strPtr("too risky")},
		})
		require.NoError(t, err)
		assert.True(t, resp.Data.Success)

		a, ok := d.Approval("a2")
		require.True(t, ok)
		assert.Equal(t, models.ApprovalStatusDenied, a.Status)
		assert.Equal(t, "too risky", *a.Comment)
	})

	t.Run("decide twice conflicts", func(t *testing.T) {
		_, err := c.Approvals.DecideApproval(ctx, hld.DecideApprovalRequest{
			ID:   "a2",
			Body: &models.DecideApprovalRequest{Decision: models.DecisionApprove},
		})
		apiErr, ok := runtime.IsAPIError(err)
		require.True(t, ok)
		assert.True(t, apiErr.IsConflict())
	})

	t.Run("decide requires body", func(t *testing.T) {
		_, err := c.Approvals.DecideApprovalRaw(ctx, hld.DecideApprovalRequest{ID: "a1"})
		reqErr, ok := runtime.IsRequiredError(err)
		require.True(t, ok)
		assert.Equal(t, "decideApprovalRequest", reqErr.Field)
		assert.Equal(t, "decideApproval", reqErr.Operation)
	})
}

func TestAPIClient_WithMiddleware(t *testing.T) {
	d, baseURL := daemontest.Start(t)
	base := newClient(t, baseURL)

	tagged := base.WithMiddleware(runtime.PreFunc(func(_ context.Context, req *runtime.Descriptor) (*runtime.RawResponse, error) {
		req.Header.Set("X-Tag", "on")
		return nil, nil
	}))

	_, err := tagged.System.GetHealth(context.Background())
	require.NoError(t, err)
	last, _ := d.LastRequest()
	assert.Equal(t, "on", last.Header.Get("X-Tag"))

	_, err = base.System.GetHealth(context.Background())
	require.NoError(t, err)
	last, _ = d.LastRequest()
	assert.Empty(t, last.Header.Get("X-Tag"))
}
