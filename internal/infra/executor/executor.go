// Package executor runs gate commands and other external programs.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// killDelay is how long a cancelled command gets to exit after its context
// ends before it is killed.
const killDelay = 5 * time.Second

// Client implements domain.CommandExecutor with os/exec.
type Client struct{}

// NewClient creates a new command executor client.
func NewClient() *Client {
	return &Client{}
}

var _ domain.CommandExecutor = (*Client)(nil)

// Execute runs the command and returns its combined output.
func (c *Client) Execute(cmd *domain.ExecCommand) ([]byte, error) {
	out, err := command(context.Background(), cmd).CombinedOutput()
	return out, describe(cmd, err)
}

// ExecuteWithContext runs the command streaming its output to stdout and
// stderr. Cancelling ctx interrupts the command.
func (c *Client) ExecuteWithContext(ctx context.Context, cmd *domain.ExecCommand, stdout, stderr io.Writer) error {
	execCmd := command(ctx, cmd)
	execCmd.Stdout = stdout
	execCmd.Stderr = stderr
	execCmd.Cancel = func() error { return execCmd.Process.Signal(os.Interrupt) }
	execCmd.WaitDelay = killDelay
	return describe(cmd, execCmd.Run())
}

func command(ctx context.Context, cmd *domain.ExecCommand) *exec.Cmd {
	// #nosec G204 - gate commands come from the workspace configuration
	execCmd := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	execCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}
	return execCmd
}

// describe names the command in a non-zero exit.
func describe(cmd *domain.ExecCommand, err error) error {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return err
	}
	name := cmd.Program
	if cmd.Program == "sh" && len(cmd.Args) == 2 && cmd.Args[0] == "-c" {
		name = cmd.Args[1]
	} else if len(cmd.Args) > 0 {
		name += " " + strings.Join(cmd.Args, " ")
	}
	return fmt.Errorf("%q exited with status %d: %w", name, exitErr.ExitCode(), err)
}
