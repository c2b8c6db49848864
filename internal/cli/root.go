// Package cli provides the command-line interface for lumenflow.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lumenflow/lumenflow/internal/app"
	"github.com/lumenflow/lumenflow/internal/usecase"
)

// Command group IDs.
const (
	groupSetup = "setup"
	groupWork  = "work"
)

// errNoRepository is returned by commands that need a git repository when
// lumenflow was started outside one.
var errNoRepository = errors.New("not inside a git repository")

// NewRootCommand creates the root command for lumenflow.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "lumenflow",
		Short: "Work unit lifecycle for parallel agents",
		Long: `lumenflow manages work units (WUs): small, lane-scoped tasks that are
claimed into their own git worktree, gated, and merged back into main.

Lifecycle:
  lumenflow wu create --lane "Framework: Core" --title "..."   ready
  lumenflow wu claim --id WU-1                                  in_progress
  lumenflow wu block --id WU-1 --reason "..."                   blocked
  lumenflow wu done --id WU-1                                   done

When wu done fails it prints a single NEXT STEP; run it, or inspect the
WU with 'lumenflow wu recover --id WU-1'.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests or outside a repository)
			if c == nil || c.AppConfig == nil {
				return nil
			}
			printWarnings(cmd.ErrOrStderr(), c.AppConfig.Warnings)
			return nil
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupWork, Title: "Work Units:"},
	)

	initCmd := newInitCommand(c)
	initCmd.GroupID = groupSetup

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	logsCmd := newLogsCommand(c)
	logsCmd.GroupID = groupSetup

	wuCmd := newWUCommand(c)
	wuCmd.GroupID = groupWork

	gatesCmd := newGatesCommand(c)
	gatesCmd.GroupID = groupWork

	root.AddCommand(
		initCmd,
		configCmd,
		logsCmd,
		wuCmd,
		gatesCmd,
	)

	return root
}

// requireContainer guards commands against a missing repository.
func requireContainer(c *app.Container) error {
	if c == nil {
		return errNoRepository
	}
	return nil
}


// PrintError writes err for the terminal. Completion failures end with the
// NEXT STEP box instead of a plain line.
func PrintError(w io.Writer, err error) {
	var pe *usecase.PipelineError
	if errors.As(err, &pe) {
		_, _ = fmt.Fprintf(w, "%s wu done failed while %s: %v\n", failStyle.Render("Error:"), pe.FailedAt, pe.Err)
		if rb := pe.Rollback; rb != nil && !rb.Scope.IsEmpty() {
			_, _ = fmt.Fprintln(w, mutedStyle.Render(rollbackSummary(rb)))
		}
		if pe.NextStep != "" {
			_, _ = fmt.Fprintln(w, renderNextStep(pe.NextStep))
		}
		return
	}
	_, _ = fmt.Fprintf(w, "%s %v\n", failStyle.Render("Error:"), err)
}
