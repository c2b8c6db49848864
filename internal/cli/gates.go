package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumenflow/lumenflow/internal/app"
	"github.com/lumenflow/lumenflow/internal/usecase"
)

// newGatesCommand creates the gates command.
func newGatesCommand(c *app.Container) *cobra.Command {
	var opts struct {
		ID           string
		SkipCommands bool
	}

	cmd := &cobra.Command{
		Use:   "gates",
		Short: "Run the invariants and gate commands",
		Long: `Run the invariants from the invariants config, then each gate command
from workspace.yaml. The first failure stops the run.

With --id the gates run inside the WU's lane worktree, the same way
wu done runs them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.RunGatesUseCase(cmd.ErrOrStderr()).Execute(cmd.Context(), usecase.RunGatesInput{
				WUID:         opts.ID,
				SkipCommands: opts.SkipCommands,
			})
			if out != nil {
				printGateReport(cmd.OutOrStdout(), out.Report)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "All gates passed in %s\n", out.Dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "Run in the lane worktree of this WU")
	cmd.Flags().BoolVar(&opts.SkipCommands, "invariants-only", false, "Skip the gate commands")

	return cmd
}
