package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumenflow/lumenflow/internal/app"
	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/usecase"
)

// newWUCommand creates the wu command group.
func newWUCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wu",
		Short: "Manage work units",
	}
	cmd.AddCommand(
		newWUCreateCommand(c),
		newWUClaimCommand(c),
		newWUBlockCommand(c),
		newWUUnblockCommand(c),
		newWUReleaseCommand(c),
		newWUCheckpointCommand(c),
		newWUDelegateCommand(c),
		newWUDoneCommand(c),
		newWUStatusCommand(c),
		newWURecoverCommand(c),
	)
	return cmd
}

// addIDFlag registers the required --id flag.
func addIDFlag(cmd *cobra.Command, id *string) {
	cmd.Flags().StringVar(id, "id", "", "WU ID, e.g. WU-12 (required)")
	_ = cmd.MarkFlagRequired("id")
}

func printTransition(w io.Writer, verb string, out *usecase.TransitionOutput) {
	where := "main"
	if out.InWorktree {
		where = "lane worktree " + out.Root
	}
	_, _ = fmt.Fprintf(w, "%s %s (committed on %s)\n", verb, out.WU.ID, where)
}

func newWUCreateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		ID          string
		Title       string
		Lane        string
		Type        string
		Description string
		CodePaths   []string
		Acceptance  []string
		Tests       domain.WUTests
	}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a ready WU",
		Long: `Create a WU document, list it under Ready in status.md and commit on main.

The WU has no events until it is claimed.

Examples:
  lumenflow wu create --lane "Framework: Core" --title "Add parser" \
    --code-path internal/parser/parser.go --unit internal/parser/parser_test.go

  lumenflow wu create --id WU-40 --lane Docs --type documentation --title "Document gates"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.CreateWUUseCase().Execute(cmd.Context(), usecase.CreateWUInput{
				ID:          opts.ID,
				Title:       opts.Title,
				Lane:        opts.Lane,
				Type:        opts.Type,
				Description: opts.Description,
				CodePaths:   opts.CodePaths,
				Acceptance:  opts.Acceptance,
				Tests:       opts.Tests,
			})
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), out.Warnings)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s [%s]\n", out.WU.ID, out.WU.Title, out.WU.Lane)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "WU ID (default: next free number)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "WU title (required)")
	cmd.Flags().StringVar(&opts.Lane, "lane", "", `Lane, "Parent" or "Parent: Sub" (required)`)
	cmd.Flags().StringVar(&opts.Type, "type", domain.WUTypeFeature, "WU type (feature, bug, refactor, documentation, process)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "WU description")
	cmd.Flags().StringArrayVar(&opts.CodePaths, "code-path", nil, "Path or glob the WU changes (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Acceptance, "acceptance", nil, "Acceptance criterion (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Tests.Unit, "unit", nil, "Unit test path (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Tests.E2E, "e2e", nil, "End-to-end test path (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Tests.Integration, "integration", nil, "Integration test path (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Tests.Manual, "manual", nil, "Manual test step (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("lane")

	return cmd
}

func newWUClaimCommand(c *app.Container) *cobra.Command {
	var opts struct {
		ID    string
		Force bool
	}

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim a ready WU into its own lane worktree",
		Long: `Claim a ready WU: record the claim on main, then create the lane branch
and its worktree. Work on the WU happens inside the printed worktree.

The lane WIP limit from workspace.yaml is enforced unless --force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.ClaimWUUseCase().Execute(cmd.Context(), usecase.ClaimWUInput{
				WUID:  opts.ID,
				Force: opts.Force,
			})
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), out.Warnings)
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Claimed %s on %s\n", out.WU.ID, out.Branch)
			_, _ = fmt.Fprintf(w, "Worktree: %s\n", out.WorktreePath)
			return nil
		},
	}

	addIDFlag(cmd, &opts.ID)
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Claim even if the lane is at its WIP limit")

	return cmd
}

func newWUBlockCommand(c *app.Container) *cobra.Command {
	var opts struct {
		ID     string
		Reason string
	}

	cmd := &cobra.Command{
		Use:   "block",
		Short: "Mark an in-progress WU as blocked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.BlockWUUseCase().Execute(cmd.Context(), usecase.BlockWUInput{
				WUID:   opts.ID,
				Reason: opts.Reason,
			})
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), out.Warnings)
			printTransition(cmd.OutOrStdout(), "Blocked", out)
			return nil
		},
	}

	addIDFlag(cmd, &opts.ID)
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "Why the WU is blocked (required)")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

func newWUUnblockCommand(c *app.Container) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "unblock",
		Short: "Resume a blocked WU",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.UnblockWUUseCase().Execute(cmd.Context(), usecase.UnblockWUInput{WUID: id})
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), out.Warnings)
			printTransition(cmd.OutOrStdout(), "Unblocked", out)
			return nil
		},
	}

	addIDFlag(cmd, &id)

	return cmd
}

func newWUReleaseCommand(c *app.Container) *cobra.Command {
	var opts struct {
		ID             string
		Reason         string
		RemoveWorktree bool
	}

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Return a claimed WU to Ready",
		Long: `Return a claimed WU to Ready so it can be claimed again.

The lane worktree and branch are kept unless --remove-worktree is given;
removing them discards any work that was not merged.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.ReleaseWUUseCase().Execute(cmd.Context(), usecase.ReleaseWUInput{
				WUID:           opts.ID,
				Reason:         opts.Reason,
				RemoveWorktree: opts.RemoveWorktree,
			})
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), out.Warnings)
			printTransition(cmd.OutOrStdout(), "Released", out)
			return nil
		},
	}

	addIDFlag(cmd, &opts.ID)
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "Why the WU is released (required)")
	cmd.Flags().BoolVar(&opts.RemoveWorktree, "remove-worktree", false, "Also remove the lane worktree and branch")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

func newWUCheckpointCommand(c *app.Container) *cobra.Command {
	var opts struct {
		ID   string
		Note string
	}

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Record a progress note for a WU",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.CheckpointWUUseCase().Execute(cmd.Context(), usecase.CheckpointWUInput{
				WUID: opts.ID,
				Note: opts.Note,
			})
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), out.Warnings)
			printTransition(cmd.OutOrStdout(), "Checkpointed", out)
			return nil
		},
	}

	addIDFlag(cmd, &opts.ID)
	cmd.Flags().StringVar(&opts.Note, "note", "", "Progress note (required)")
	_ = cmd.MarkFlagRequired("note")

	return cmd
}

func newWUDelegateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		ID     string
		Parent string
	}

	cmd := &cobra.Command{
		Use:   "delegate",
		Short: "Record that a WU was delegated from a parent WU",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.DelegateWUUseCase().Execute(cmd.Context(), usecase.DelegateWUInput{
				WUID:       opts.ID,
				ParentWUID: opts.Parent,
			})
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), out.Warnings)
			printTransition(cmd.OutOrStdout(), "Delegated", out)
			return nil
		},
	}

	addIDFlag(cmd, &opts.ID)
	cmd.Flags().StringVar(&opts.Parent, "parent", "", "Parent WU ID (required)")
	_ = cmd.MarkFlagRequired("parent")

	return cmd
}

func newWUDoneCommand(c *app.Container) *cobra.Command {
	var opts struct {
		ID        string
		SkipGates bool
	}

	cmd := &cobra.Command{
		Use:   "done",
		Short: "Complete a WU and merge its lane branch into main",
		Long: `Complete a WU: preflight, gates, commit the completion metadata on the
lane branch, merge into main, push, then remove the worktree.

A failure rolls back what the failed step changed and prints the single
command to run next. Running wu done again after fixing the cause resumes
where the previous attempt stopped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.CompleteWUUseCase(cmd.ErrOrStderr()).Execute(cmd.Context(), usecase.CompleteWUInput{
				WUID:      opts.ID,
				SkipGates: opts.SkipGates,
			})
			if out != nil {
				printGateReport(cmd.ErrOrStderr(), out.Gates)
			}
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), out.Warnings)

			w := cmd.OutOrStdout()
			switch {
			case out.AlreadyDone:
				_, _ = fmt.Fprintf(w, "%s is already done\n", out.WU.ID)
			case out.Resumed:
				_, _ = fmt.Fprintf(w, "Finished %s (lane branch was already merged)\n", out.WU.ID)
			default:
				_, _ = fmt.Fprintf(w, "Completed %s: %s merged into %s\n", out.WU.ID, out.Branch, c.AppConfig.Git.MainBranch)
			}
			if !out.Pushed && c.AppConfig.Git.PushEnabled() && !out.AlreadyDone {
				_, _ = fmt.Fprintln(w, mutedStyle.Render("main was not pushed"))
			}
			return nil
		},
	}

	addIDFlag(cmd, &opts.ID)
	cmd.Flags().BoolVar(&opts.SkipGates, "skip-gates", false, "Skip gate commands (invariants still run)")

	return cmd
}

func newWUStatusCommand(c *app.Container) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a WU",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.ShowWUUseCase().Execute(cmd.Context(), usecase.ShowWUInput{WUID: id})
			if err != nil {
				return err
			}
			printWUStatus(cmd.OutOrStdout(), out)
			return nil
		},
	}

	addIDFlag(cmd, &id)

	return cmd
}

func printWUStatus(w io.Writer, out *usecase.ShowWUOutput) {
	wu := out.WU
	source := "document"
	if out.Tracked {
		source = "events"
	}

	_, _ = fmt.Fprintf(w, "%s %s\n", headingStyle.Render(wu.ID), wu.Title)
	_, _ = fmt.Fprintf(w, "Status:   %s %s\n", statusStyle(out.Status).Render(out.Status.Display()), mutedStyle.Render("(from "+source+")"))
	_, _ = fmt.Fprintf(w, "Lane:     %s\n", wu.Lane)
	if wu.Type != "" {
		_, _ = fmt.Fprintf(w, "Type:     %s\n", wu.Type)
	}
	if out.StatusSection != "" {
		_, _ = fmt.Fprintf(w, "Section:  %s\n", out.StatusSection)
	}
	branchState := "missing"
	if out.BranchExists {
		branchState = "exists"
	}
	_, _ = fmt.Fprintf(w, "Branch:   %s (%s)\n", out.Branch, branchState)
	if out.WorktreePath != "" {
		_, _ = fmt.Fprintf(w, "Worktree: %s\n", out.WorktreePath)
	}
	if out.State.Reason != "" {
		_, _ = fmt.Fprintf(w, "Reason:   %s\n", out.State.Reason)
	}
	if out.State.LastNote != "" {
		_, _ = fmt.Fprintf(w, "Note:     %s\n", out.State.LastNote)
	}
	if out.State.ParentWUID != "" {
		_, _ = fmt.Fprintf(w, "Parent:   %s\n", out.State.ParentWUID)
	}
	if wu.CompletedAt != "" {
		_, _ = fmt.Fprintf(w, "Done at:  %s\n", wu.CompletedAt)
	}
	if out.Stamped {
		_, _ = fmt.Fprintln(w, "Stamp:    yes")
	}

	if len(out.Events) > 0 {
		_, _ = fmt.Fprintf(w, "\nEvents (%d):\n", len(out.Events))
		for _, e := range out.Events {
			_, _ = fmt.Fprintf(w, "  %s  %s\n", mutedStyle.Render(e.Timestamp), e.Type)
		}
	}
}

func newWURecoverCommand(c *app.Container) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Inspect a WU after an interrupted wu done",
		Long: `Inspect how far wu done got for a WU and print the single command to run
next. Nothing is changed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.RecoverWUUseCase().Execute(cmd.Context(), usecase.RecoverWUInput{WUID: id})
			if err != nil {
				return err
			}
			printRecovery(cmd.OutOrStdout(), out)
			return nil
		},
	}

	addIDFlag(cmd, &id)

	return cmd
}

func printRecovery(w io.Writer, out *usecase.RecoverWUOutput) {
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}

	_, _ = fmt.Fprintf(w, "%s %s\n", headingStyle.Render(out.WU.ID), out.WU.Title)
	_, _ = fmt.Fprintf(w, "Branch %s exists: %s, merged: %s\n", out.Branch, yesNo(out.BranchExists), yesNo(out.BranchMerged))
	if out.WorktreeFound {
		_, _ = fmt.Fprintf(w, "Worktree %s (uncommitted changes: %s)\n", out.WorktreePath, yesNo(out.Dirty))
	}
	_, _ = fmt.Fprintf(w, "Complete event: %s, stamp: %s\n", yesNo(out.CompleteEvent), yesNo(out.Stamped))
	if len(out.Remaining) > 0 {
		_, _ = fmt.Fprintf(w, "Remaining: %s\n", strings.Join(out.Remaining, "; "))
	}
	if out.Done() {
		_, _ = fmt.Fprintf(w, "%s is done, nothing to recover\n", out.WU.ID)
		return
	}
	if out.NextStep != "" {
		_, _ = fmt.Fprintln(w, renderNextStep(out.NextStep))
	}
}
