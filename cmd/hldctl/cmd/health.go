package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bargom/hldclient/pkg/models"
	"github.com/bargom/hldclient/pkg/runtime"
)

// errDegraded is returned when the daemon answers but reports itself unhealthy.
var errDegraded = errors.New("daemon is degraded")

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the daemon is up",
		Long: `Calls GET /health and prints the daemon status, version and whether the
claude binary is available. Exits non-zero unless the daemon reports ok.`,
		Args: cobra.NoArgs,
		Example: `  hldctl health
  hldctl health --url http://localhost:7777/api/v1 -o json`,
		RunE: runHealth,
	}
}

func runHealth(cmd *cobra.Command, args []string) error {
	s, err := newAPISession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(cmd)

	health, err := s.api.System.GetHealth(cmd.Context())
	if err != nil {
		// A degraded daemon answers 503 with a regular health body.
		var apiErr *runtime.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
			return describeError(err)
		}
		if health, err = models.HealthResponseFromJSON(apiErr.Body); err != nil {
			return describeError(apiErr)
		}
	}

	if err := printHealth(cmd, health); err != nil {
		return err
	}
	if !health.IsHealthy() {
		return errDegraded
	}
	return nil
}

func printHealth(cmd *cobra.Command, h *models.HealthResponse) error {
	if outputFormat == "json" {
		return printJSON(cmd, h)
	}

	claude := "unknown"
	if h.Dependencies != nil && h.Dependencies.Claude != nil {
		c := h.Dependencies.Claude
		if c.Available {
			claude = fmt.Sprintf("available (%s, %s)", orDash(c.Path), orDash(c.Version))
		} else {
			claude = "unavailable: " + orDash(c.Error)
		}
	}

	if outputFormat == "table" {
		tw := newTable(cmd)
		fmt.Fprintln(tw, "STATUS\tVERSION\tCLAUDE")
		fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Status, orDash(h.Version), claude)
		return tw.Flush()
	}

	fprintf(cmd, "Status:  %s\n", h.Status)
	fprintf(cmd, "Version: %s\n", orDash(h.Version))
	fprintf(cmd, "Claude:  %s\n", claude)
	return nil
}
