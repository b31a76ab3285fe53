package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bargom/hldclient/pkg/hld"
	"github.com/bargom/hldclient/pkg/models"
)

var (
	// list flags
	leafOnly        bool
	includeArchived bool

	// create flags
	createTitle        string
	createModel        string
	createWorkingDir   string
	createMaxTurns     int
	createSystemPrompt string
	createAllowedTools []string
	createAutoAccept   bool
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session", "s"},
		Short:   "Launch and inspect daemon sessions",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsGetCmd())
	cmd.AddCommand(newSessionsCreateCmd())
	cmd.AddCommand(newSessionsArchiveCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Args:  cobra.NoArgs,
		Example: `  hldctl sessions list
  hldctl sessions list --leaf-only -o table`,
		RunE: runSessionsList,
	}
	cmd.Flags().BoolVar(&leafOnly, "leaf-only", false, "only the latest session of each continuation chain")
	cmd.Flags().BoolVar(&includeArchived, "include-archived", false, "include archived sessions")
	return cmd
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	s, err := newAPISession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(cmd)

	var req hld.ListSessionsRequest
	if cmd.Flags().Changed("leaf-only") {
		req.LeafOnly = &leafOnly
	}
	if cmd.Flags().Changed("include-archived") {
		req.IncludeArchived = &includeArchived
	}

	resp, err := s.api.Sessions.ListSessions(cmd.Context(), req)
	if err != nil {
		return describeError(err)
	}

	switch outputFormat {
	case "json":
		return printJSON(cmd, resp.Data)
	case "table":
		tw := newTable(cmd)
		fmt.Fprintln(tw, "ID\tSTATUS\tMODEL\tLAST ACTIVITY\tQUERY")
		for _, sess := range resp.Data {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				sess.ID, sess.Status, orDash(sess.Model), formatTime(sess.LastActivityAt), truncate(sess.Query, 40))
		}
		return tw.Flush()
	default:
		if len(resp.Data) == 0 {
			fprintf(cmd, "No sessions\n")
			return nil
		}
		for _, sess := range resp.Data {
			fprintf(cmd, "%s  %-13s  %s\n", sess.ID, sess.Status, truncate(sess.Query, 60))
		}
		return nil
	}
}

func newSessionsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <session-id>",
		Short:   "Show one session",
		Args:    cobra.ExactArgs(1),
		Example: `  hldctl sessions get 7f9c... -o json`,
		RunE:    runSessionsGet,
	}
}

func runSessionsGet(cmd *cobra.Command, args []string) error {
	s, err := newAPISession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(cmd)

	resp, err := s.api.Sessions.GetSession(cmd.Context(), hld.GetSessionRequest{ID: args[0]})
	if err != nil {
		return describeError(err)
	}
	sess := resp.Data

	if outputFormat == "json" {
		return printJSON(cmd, sess)
	}

	tw := newTable(cmd)
	fmt.Fprintf(tw, "ID:\t%s\n", sess.ID)
	fmt.Fprintf(tw, "Run ID:\t%s\n", sess.RunID)
	fmt.Fprintf(tw, "Status:\t%s\n", sess.Status)
	fmt.Fprintf(tw, "Title:\t%s\n", orDash(sess.Title))
	fmt.Fprintf(tw, "Query:\t%s\n", sess.Query)
	fmt.Fprintf(tw, "Model:\t%s\n", orDash(sess.Model))
	fmt.Fprintf(tw, "Working dir:\t%s\n", orDash(sess.WorkingDir))
	fmt.Fprintf(tw, "Parent:\t%s\n", orDash(sess.ParentSessionID))
	fmt.Fprintf(tw, "Created:\t%s\n", formatTime(sess.CreatedAt))
	fmt.Fprintf(tw, "Last activity:\t%s\n", formatTime(sess.LastActivityAt))
	if sess.CompletedAt != nil {
		fmt.Fprintf(tw, "Completed:\t%s\n", formatTime(*sess.CompletedAt))
	}
	if sess.CostUSD != nil {
		fmt.Fprintf(tw, "Cost:\t$%.4f\n", *sess.CostUSD)
	}
	if sess.ErrorMessage != nil {
		fmt.Fprintf(tw, "Error:\t%s\n", *sess.ErrorMessage)
	}
	fmt.Fprintf(tw, "Archived:\t%s\n", yesNo(sess.Archived != nil && *sess.Archived))
	return tw.Flush()
}

func newSessionsCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <query>...",
		Short: "Launch a new session",
		Long:  `Launches a session with the given query. Multiple arguments are joined with spaces.`,
		Args:  cobra.MinimumNArgs(1),
		Example: `  hldctl sessions create "fix the flaky test in pkg/cache"
  hldctl sessions create --model opus --working-dir ~/src/app "add a README"`,
		RunE: runSessionsCreate,
	}
	f := cmd.Flags()
	f.StringVar(&createTitle, "title", "", "session title")
	f.StringVar(&createModel, "model", "", "model to run")
	f.StringVar(&createWorkingDir, "working-dir", "", "working directory of the session")
	f.IntVar(&createMaxTurns, "max-turns", 0, "maximum number of agent turns (0 = daemon default)")
	f.StringVar(&createSystemPrompt, "system-prompt", "", "replace the system prompt")
	f.StringSliceVar(&createAllowedTools, "allowed-tools", nil, "tools the session may use without approval")
	f.BoolVar(&createAutoAccept, "auto-accept-edits", false, "accept file edits without approval")
	return cmd
}

func runSessionsCreate(cmd *cobra.Command, args []string) error {
	body := &models.CreateSessionRequest{
		Query:        strings.Join(args, " "),
		AllowedTools: createAllowedTools,
	}
	flags := cmd.Flags()
	if flags.Changed("title") {
		body.Title = &createTitle
	}
	if flags.Changed("model") {
		body.Model = &createModel
	}
	if flags.Changed("working-dir") {
		body.WorkingDir = &createWorkingDir
	}
	if createMaxTurns > 0 {
		body.MaxTurns = &createMaxTurns
	}
	if flags.Changed("system-prompt") {
		body.SystemPrompt = &createSystemPrompt
	}
	if flags.Changed("auto-accept-edits") {
		body.AutoAcceptEdits = &createAutoAccept
	}

	s, err := newAPISession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(cmd)

	resp, err := s.api.Sessions.CreateSession(cmd.Context(), hld.CreateSessionRequest{Body: body})
	if err != nil {
		return describeError(err)
	}

	switch outputFormat {
	case "json":
		return printJSON(cmd, resp.Data)
	case "table":
		tw := newTable(cmd)
		fmt.Fprintln(tw, "SESSION ID\tRUN ID")
		fmt.Fprintf(tw, "%s\t%s\n", resp.Data.SessionID, resp.Data.RunID)
		return tw.Flush()
	default:
		fprintf(cmd, "Created session %s (run %s)\n", resp.Data.SessionID, resp.Data.RunID)
		return nil
	}
}

func newSessionsArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <session-id>...",
		Short: "Archive sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSessionsArchive,
	}
}

func runSessionsArchive(cmd *cobra.Command, args []string) error {
	s, err := newAPISession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(cmd)

	for _, id := range args {
		if err := s.api.Sessions.ArchiveSession(cmd.Context(), hld.ArchiveSessionRequest{ID: id}); err != nil {
			return fmt.Errorf("archive %s: %w", id, describeError(err))
		}
		if outputFormat != "json" {
			fprintf(cmd, "Archived %s\n", id)
		}
	}
	if outputFormat == "json" {
		return printJSON(cmd, map[string][]string{"archived": args})
	}
	return nil
}
