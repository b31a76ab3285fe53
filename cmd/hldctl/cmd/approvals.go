package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bargom/hldclient/pkg/hld"
	"github.com/bargom/hldclient/pkg/models"
)

var (
	approvalsSession string
	decisionComment  string
)

func newApprovalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "approvals",
		Aliases: []string{"approval", "a"},
		Short:   "List and answer tool-call approvals",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List approvals, oldest first",
		Args:  cobra.NoArgs,
		Example: `  hldctl approvals list
  hldctl approvals list --session 7f9c... -o table`,
		RunE: runApprovalsList,
	}
	list.Flags().StringVar(&approvalsSession, "session", "", "only approvals of this session")

	cmd.AddCommand(list)
	cmd.AddCommand(newDecideCmd(models.DecisionApprove, "approve", "Approve a pending tool call"))
	cmd.AddCommand(newDecideCmd(models.DecisionDeny, "deny", "Deny a pending tool call"))
	return cmd
}

func runApprovalsList(cmd *cobra.Command, args []string) error {
	s, err := newAPISession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(cmd)

	var req hld.ListApprovalsRequest
	if approvalsSession != "" {
		req.SessionID = &approvalsSession
	}

	resp, err := s.api.Approvals.ListApprovals(cmd.Context(), req)
	if err != nil {
		return describeError(err)
	}

	switch outputFormat {
	case "json":
		return printJSON(cmd, resp.Data)
	case "table":
		tw := newTable(cmd)
		fmt.Fprintln(tw, "ID\tSESSION\tSTATUS\tTOOL\tCREATED")
		for _, a := range resp.Data {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.SessionID, a.Status, a.ToolName, formatTime(a.CreatedAt))
		}
		return tw.Flush()
	default:
		if len(resp.Data) == 0 {
			fprintf(cmd, "No approvals\n")
			return nil
		}
		for _, a := range resp.Data {
			fprintf(cmd, "%s  %-8s  %s\n", a.ID, a.Status, a.ToolName)
		}
		return nil
	}
}

func newDecideCmd(decision models.Decision, use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <approval-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecide(cmd, args[0], decision)
		},
	}
	cmd.Flags().StringVarP(&decisionComment, "comment", "m", "", "comment sent with the decision")
	return cmd
}

func runDecide(cmd *cobra.Command, id string, decision models.Decision) error {
	s, err := newAPISession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(cmd)

	body := &models.DecideApprovalRequest{Decision: decision}
	if decisionComment != "" {
		body.Comment = &decisionComment
	}

	resp, err := s.api.Approvals.DecideApproval(cmd.Context(), hld.DecideApprovalRequest{ID: id, Body: body})
	if err != nil {
		return describeError(err)
	}
	if !resp.Data.Success {
		return fmt.Errorf("daemon rejected decision: %s", orDash(resp.Data.Error))
	}

	if outputFormat == "json" {
		return printJSON(cmd, resp.Data)
	}
	past := "Approved"
	if decision == models.DecisionDeny {
		past = "Denied"
	}
	fprintf(cmd, "%s %s\n", past, id)
	return nil
}
