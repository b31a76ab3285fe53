// Package cmd provides the CLI commands for hldctl.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	// baseURL overrides HLD_BASE_URL
	baseURL string
	// token is a bearer token; JWTs are checked for expiry before use
	token string
	// tokenFile is read on every call
	tokenFile string
	// verbose enables debug logs on stderr
	verbose bool
	// outputFormat specifies the output format (json, table, plain)
	outputFormat string
	// timeout bounds each attempt
	timeout time.Duration
	// retries is the number of extra attempts for idempotent calls
	retries int
	// cacheURL enables the shared response cache (redis://...)
	cacheURL string
	// cacheTTL bounds how long cached responses are served
	cacheTTL time.Duration
	// showMetrics dumps client metrics to stderr after the command
	showMetrics bool
)

const rootLong = `hldctl talks to a running HumanLayer daemon (hld) over its REST API.

It checks daemon health, launches and inspects sessions, and answers
pending tool-call approvals. The daemon URL defaults to HLD_BASE_URL or
http://localhost:7777/api/v1.`

// rootCmd represents the base command when called without any subcommands
var rootCmd = NewRootCmd()

// Execute runs the root command. This is called by main.main().
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// NewRootCmd creates a fresh command tree. Tests use it to avoid sharing
// flag state between runs.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hldctl",
		Short:         "Command-line client for the HumanLayer daemon",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "json", "table", "plain":
				return nil
			default:
				return fmt.Errorf("invalid output format %q (want json, table or plain)", outputFormat)
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&baseURL, "url", "", "daemon API base URL (default $HLD_BASE_URL or http://localhost:7777/api/v1)")
	flags.StringVar(&token, "token", "", "bearer token (default $HLD_TOKEN)")
	flags.StringVar(&tokenFile, "token-file", "", "file holding the bearer token, re-read on every call")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log requests and responses to stderr")
	flags.StringVarP(&outputFormat, "output", "o", "plain", "output format (json|table|plain)")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "per-attempt timeout")
	flags.IntVar(&retries, "retries", 2, "extra attempts for idempotent calls on transient failures")
	flags.StringVar(&cacheURL, "cache-url", "", "redis URL of a response cache shared between invocations")
	flags.DurationVar(&cacheTTL, "cache-ttl", 5*time.Second, "how long cached GET responses are served")
	flags.BoolVar(&showMetrics, "metrics", false, "print client metrics to stderr when done")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newApprovalsCmd())

	return cmd
}

// printVerbose prints message only if verbose mode is enabled.
func printVerbose(cmd *cobra.Command, format string, args ...any) {
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	}
}
