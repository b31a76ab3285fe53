package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitest "github.com/bargom/hldclient/cmd/hldctl/testing"
	"github.com/bargom/hldclient/pkg/auth"
	"github.com/bargom/hldclient/pkg/models"
)

func TestSessionsList(t *testing.T) {
	t.Run("plain output", func(t *testing.T) {
		d, url := startDaemon(t)
		d.AddSession(testSession("sess-1", "fix the flaky test"))
		d.AddSession(testSession("sess-2", "write the changelog"))

		stdout, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "list", "--url", url)

		require.NoError(t, err)
		assert.Contains(t, stdout, "sess-1")
		assert.Contains(t, stdout, "fix the flaky test")
		assert.Contains(t, stdout, "sess-2")
	})

	t.Run("empty list", func(t *testing.T) {
		_, url := startDaemon(t)

		stdout, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "list", "--url", url)

		require.NoError(t, err)
		assert.Equal(t, "No sessions\n", stdout)
	})

	t.Run("table output", func(t *testing.T) {
		d, url := startDaemon(t)
		d.AddSession(testSession("sess-1", "fix the flaky test"))

		stdout, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "s", "list", "--url", url, "-o", "table")

		require.NoError(t, err)
		assert.Contains(t, stdout, "LAST ACTIVITY")
		assert.Contains(t, stdout, "running")
	})

	t.Run("json output", func(t *testing.T) {
		d, url := startDaemon(t)
		d.AddSession(testSession("sess-1", "fix the flaky test"))

		stdout, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "list", "--url", url, "-o", "json")
		require.NoError(t, err)

		var sessions []models.Session
		require.NoError(t, json.Unmarshal([]byte(stdout), &sessions))
		require.Len(t, sessions, 1)
		assert.Equal(t, "sess-1", sessions[0].ID)
	})

	t.Run("filters are sent only when set", func(t *testing.T) {
		d, url := startDaemon(t)

		_, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "list", "--url", url)
		require.NoError(t, err)
		req, _ := d.LastRequest()
		assert.Empty(t, req.RawQuery)

		_, _, err = clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "list", "--url", url, "--leaf-only", "--include-archived")
		require.NoError(t, err)
		req, _ = d.LastRequest()
		assert.Contains(t, req.RawQuery, "leafOnly=true")
		assert.Contains(t, req.RawQuery, "includeArchived=true")
	})
}

func TestSessionsGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		d, url := startDaemon(t)
		sess := testSession("sess-1", "fix the flaky test")
		cost := 0.0421
		sess.CostUSD = &cost
		d.AddSession(sess)

		stdout, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "get", "sess-1", "--url", url)

		require.NoError(t, err)
		assert.Contains(t, stdout, "run-sess-1")
		assert.Contains(t, stdout, "$0.0421")
		assert.Contains(t, stdout, "Archived:")
	})

	t.Run("not found", func(t *testing.T) {
		_, url := startDaemon(t)

		_, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "get", "missing", "--url", url)

		require.Error(t, err)
		assert.Equal(t, "daemon returned 404: session not found", err.Error())
	})

	t.Run("requires an id", func(t *testing.T) {
		_, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "get")
		assert.Error(t, err)
	})
}

func TestSessionsCreate(t *testing.T) {
	d, url := startDaemon(t)

	stdout, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "create",
		"--url", url,
		"--model", "opus",
		"--max-turns", "7",
		"--allowed-tools", "Read,Grep",
		"add", "a", "README")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Created session ")

	req, ok := d.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	body, err := models.CreateSessionRequestFromJSON(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "add a README", body.Query)
	require.NotNil(t, body.Model)
	assert.Equal(t, "opus", *body.Model)
	require.NotNil(t, body.MaxTurns)
	assert.Equal(t, 7, *body.MaxTurns)
	assert.Equal(t, []string{"Read", "Grep"}, body.AllowedTools)
	assert.Nil(t, body.Title)
	assert.Nil(t, body.AutoAcceptEdits)
}

func TestSessionsCreate_JSON(t *testing.T) {
	d, url := startDaemon(t)

	stdout, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "create", "--url", url, "-o", "json", "hello")
	require.NoError(t, err)

	var result models.CreateSessionResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	sess, ok := d.Session(result.SessionID)
	require.True(t, ok)
	assert.Equal(t, result.RunID, sess.RunID)
	assert.Equal(t, "hello", sess.Query)
}

func TestSessionsArchive(t *testing.T) {
	d, url := startDaemon(t)
	d.AddSession(testSession("sess-1", "one"))
	d.AddSession(testSession("sess-2", "two"))

	stdout, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "archive", "sess-1", "sess-2", "--url", url)

	require.NoError(t, err)
	assert.Contains(t, stdout, "Archived sess-1")
	assert.Contains(t, stdout, "Archived sess-2")
	for _, id := range []string{"sess-1", "sess-2"} {
		sess, _ := d.Session(id)
		require.NotNil(t, sess.Archived)
		assert.True(t, *sess.Archived)
	}

	_, _, err = clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "archive", "nope", "--url", url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive nope: daemon returned 404")
}

func TestTokenFlags(t *testing.T) {
	t.Run("static token", func(t *testing.T) {
		d, url := startDaemon(t)

		_, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "list", "--url", url, "--token", "opaque-token")

		require.NoError(t, err)
		req, _ := d.LastRequest()
		assert.Equal(t, "Bearer opaque-token", req.Header.Get("Authorization"))
	})

	t.Run("token from environment", func(t *testing.T) {
		d, url := startDaemon(t)
		t.Setenv("HLD_TOKEN", "env-token")

		_, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "list", "--url", url)

		require.NoError(t, err)
		req, _ := d.LastRequest()
		assert.Equal(t, "Bearer env-token", req.Header.Get("Authorization"))
	})

	t.Run("token file", func(t *testing.T) {
		d, url := startDaemon(t)
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("file-token\n"), 0o600))

		_, _, err := clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "list", "--url", url, "--token-file", path)

		require.NoError(t, err)
		req, _ := d.LastRequest()
		assert.Equal(t, "Bearer file-token", req.Header.Get("Authorization"))
	})

	t.Run("expired JWT is not sent", func(t *testing.T) {
		d, url := startDaemon(t)
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "tester",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, _, err = clitest.ExecuteCommandWithErr(NewRootCmd(), "sessions", "list", "--url", url, "--token", expired)

		require.ErrorIs(t, err, auth.ErrExpiredToken)
		assert.Empty(t, d.Requests())
	})
}
