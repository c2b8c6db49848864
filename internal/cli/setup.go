package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumenflow/lumenflow/internal/app"
	"github.com/lumenflow/lumenflow/internal/usecase"
)

// newInitCommand creates the init command.
func newInitCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Prepare the repository for lumenflow",
		Long: `Create workspace.yaml, status.md, backlog.md, the event log and the WU
and stamp directories. Existing files are left alone.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.InitRepoUseCase().Execute(cmd.Context(), usecase.InitRepoInput{})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.AlreadyInitialized {
				_, _ = fmt.Fprintln(w, "Already initialized")
			}
			for _, path := range out.Created {
				_, _ = fmt.Fprintf(w, "Created %s\n", path)
			}
			if out.GitignoreNeedsAdd {
				_, _ = fmt.Fprintf(w, "\nAdd the worktrees directory to .gitignore:\n  echo '/%s/' >> .gitignore\n", out.WorktreesDir)
			}
			return nil
		},
	}
}

// newConfigCommand creates the config command.
func newConfigCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.ShowConfigUseCase().Execute(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, src := range out.Sources {
				state := mutedStyle.Render("(not found)")
				if src.Exists {
					state = "(loaded)"
				}
				_, _ = fmt.Fprintf(w, "# %s %s\n", src.Path, state)
			}
			_, _ = fmt.Fprint(w, out.YAML)
			return nil
		},
	}
	return cmd
}

// newLogsCommand creates the logs command.
func newLogsCommand(c *app.Container) *cobra.Command {
	var opts struct {
		ID    string
		Lines int
	}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the lumenflow log, or the log of one WU",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireContainer(c); err != nil {
				return err
			}
			out, err := c.ShowLogsUseCase().Execute(cmd.Context(), usecase.ShowLogsInput{
				WUID:  opts.ID,
				Lines: opts.Lines,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), out.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "Show the log of this WU")
	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 0, "Number of lines from the end (0 = all)")

	return cmd
}
