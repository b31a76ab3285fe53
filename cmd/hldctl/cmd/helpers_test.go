package cmd

import (
	"testing"
	"time"

	"github.com/bargom/hldclient/internal/daemontest"
	"github.com/bargom/hldclient/pkg/models"
)

// startDaemon serves a fake daemon and clears HLD_* variables so the
// developer's environment cannot leak into a test.
func startDaemon(t *testing.T) (*daemontest.Daemon, string) {
	t.Helper()
	for _, key := range []string{"HLD_BASE_URL", "HLD_TOKEN", "HLD_API_KEY", "HLD_USER_AGENT", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT"} {
		t.Setenv(key, "")
	}
	return daemontest.Start(t)
}

var fixtureTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func testSession(id, query string) models.Session {
	return models.Session{
		ID:             id,
		RunID:          "run-" + id,
		Status:         models.SessionStatusRunning,
		Query:          query,
		CreatedAt:      fixtureTime,
		LastActivityAt: fixtureTime,
	}
}

func testApproval(id, sessionID, tool string, offset time.Duration) models.Approval {
	return models.Approval{
		ID:        id,
		RunID:     "run-" + sessionID,
		SessionID: sessionID,
		Status:    models.ApprovalStatusPending,
		CreatedAt: fixtureTime.Add(offset),
		ToolName:  tool,
	}
}
