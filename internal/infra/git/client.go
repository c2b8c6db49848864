// Package git provides git operations.
package git

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// Client provides git operations.
type Client struct {
	repoRoot   string // Main repository root (parent of .git)
	gitDir     string // Common .git directory
	workingDir string // Directory commands run in (may be worktree)
}

// NewClient creates a new git client by detecting the repository root from the given directory.
// It handles both regular repositories and worktrees.
func NewClient(dir string) (*Client, error) {
	repoRoot, gitDir, workingDir, err := findGitRoot(dir)
	if err != nil {
		return nil, err
	}
	return &Client{
		repoRoot:   repoRoot,
		gitDir:     gitDir,
		workingDir: workingDir,
	}, nil
}

// Ensure Client implements domain.Git interface.
var _ domain.Git = (*Client)(nil)

// RepoRoot returns the repository root directory.
func (c *Client) RepoRoot() string {
	return c.repoRoot
}

// GitDir returns the .git directory path.
func (c *Client) GitDir() string {
	return c.gitDir
}

// Dir returns the directory commands run in.
func (c *Client) Dir() string {
	return c.workingDir
}

// At returns a copy of the client bound to dir.
func (c *Client) At(dir string) domain.Git {
	return &Client{
		repoRoot:   c.repoRoot,
		gitDir:     c.gitDir,
		workingDir: dir,
	}
}

// run executes git in the working directory and returns trimmed stdout.
// On failure the error includes stderr.
func (c *Client) run(args ...string) (string, error) {
	//nolint:gosec // arguments are passed to git directly, not through a shell
	cmd := exec.Command("git", args...)
	cmd.Dir = c.workingDir
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		return "", domain.WrapError(domain.CodeGit, err, "git %s: %s", strings.Join(args, " "), msg)
	}
	return strings.TrimSpace(string(out)), nil
}

// Raw runs an arbitrary git command.
func (c *Client) Raw(args ...string) (string, error) {
	return c.run(args...)
}

// CurrentBranch returns the name of the current branch.
func (c *Client) CurrentBranch() (string, error) {
	return c.run("rev-parse", "--abbrev-ref", "HEAD")
}

// CommitHash resolves ref to a commit SHA.
func (c *Client) CommitHash(ref string) (string, error) {
	return c.run("rev-parse", "--verify", ref+"^{commit}")
}

// MergeBase returns the best common ancestor of a and b.
func (c *Client) MergeBase(a, b string) (string, error) {
	return c.run("merge-base", a, b)
}

// BranchExists checks if a branch exists.
func (c *Client) BranchExists(branch string) (bool, error) {
	//nolint:gosec // branch name is used as argument, not shell command
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = c.workingDir
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	// Exit code 1 means ref not found
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("failed to check branch existence: %w", err)
}

// HasUncommittedChanges checks for uncommitted changes in the working directory.
func (c *Client) HasUncommittedChanges() (bool, error) {
	out, err := c.run("status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// DiffNames lists files changed between base and head.
func (c *Client) DiffNames(base, head string) ([]string, error) {
	out, err := c.run("diff", "--name-only", base, head)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// Add stages paths.
func (c *Client) Add(paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := c.run(args...)
	return err
}

// Commit records staged changes.
func (c *Client) Commit(message string) error {
	_, err := c.run("commit", "-m", message)
	return err
}

// Merge merges a branch into the current branch.
func (c *Client) Merge(branch string, opts domain.MergeOptions) error {
	args := []string{"merge"}
	switch {
	case opts.FastForwardOnly:
		args = append(args, "--ff-only")
	case opts.NoFastForward:
		args = append(args, "--no-ff")
	}
	if opts.Message != "" {
		args = append(args, "-m", opts.Message)
	}
	args = append(args, branch)
	_, err := c.run(args...)
	return err
}

// Reset moves HEAD to ref.
func (c *Client) Reset(ref string, hard bool) error {
	args := []string{"reset"}
	if hard {
		args = append(args, "--hard")
	}
	args = append(args, ref)
	_, err := c.run(args...)
	return err
}

// Push pushes branch to remote.
func (c *Client) Push(remote, branch string) error {
	_, err := c.run("push", remote, branch)
	return err
}

// Fetch fetches branch from remote.
func (c *Client) Fetch(remote, branch string) error {
	_, err := c.run("fetch", remote, branch)
	return err
}

// WorktreeRemove removes the worktree at path.
func (c *Client) WorktreeRemove(path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	_, err := c.run(args...)
	return err
}

// DeleteBranch deletes a branch.
// If force is true, it uses -D (force delete), otherwise -d.
func (c *Client) DeleteBranch(branch string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := c.run("branch", flag, branch)
	return err
}

func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// findGitRoot finds the git repository root and .git directory from the given directory.
// This works correctly both in the main repository and inside worktrees.
// Returns:
//   - repoRoot: main repository root (parent of .git)
//   - gitDir: common .git directory
//   - workingDir: current working directory (toplevel of current worktree or main repo)
func findGitRoot(dir string) (repoRoot, gitDir, workingDir string, err error) {
	// First check if we're in a git repository at all
	cmd := exec.Command("git", "rev-parse", "--git-common-dir")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", "", "", domain.ErrNotGitRepository
	}
	gitDir = strings.TrimSpace(string(out))

	// Get the toplevel (this returns the worktree root if in a worktree)
	cmd = exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	toplevel, err := cmd.Output()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to find toplevel: %w", err)
	}
	workingDir = strings.TrimSpace(string(toplevel))

	// Make gitDir absolute if it's relative
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}

	// Clean the path
	gitDir = filepath.Clean(gitDir)

	// repoRoot is the parent of .git directory
	repoRoot = filepath.Dir(gitDir)

	return repoRoot, gitDir, workingDir, nil
}
