// Package worktree manages the lane worktrees WUs are worked on in.
package worktree

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// Client runs `git worktree` in the main checkout.
type Client struct {
	repoRoot string
}

// NewClient creates a worktree client for the main checkout at repoRoot.
func NewClient(repoRoot string) *Client {
	return &Client{repoRoot: repoRoot}
}

var _ domain.WorktreeManager = (*Client)(nil)

// commandError is a failed git invocation with its combined output.
type commandError struct {
	err    error
	output string
	args   []string
}

func (e *commandError) Error() string {
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.args, " "), e.err, strings.TrimSpace(e.output))
}

func (e *commandError) Unwrap() error { return e.err }

func (c *Client) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.repoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), &commandError{args: args, err: err, output: string(out)}
	}
	return string(out), nil
}

// Create adds a worktree at path checked out on branch. A missing branch is
// created from baseBranch. A live worktree for branch is kept as is; a stale
// registration whose directory is gone is pruned first.
func (c *Client) Create(branch, baseBranch, path string) error {
	if _, err := c.Resolve(branch); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrWorktreeNotFound) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create worktrees dir: %w", err)
	}

	exists, err := c.branchExists(branch)
	if err != nil {
		return err
	}
	args := []string{"worktree", "add", "-b", branch, path, baseBranch}
	if exists {
		args = []string{"worktree", "add", path, branch}
	}

	out, err := c.git(args...)
	if err != nil && strings.Contains(out, "already registered") {
		if _, pruneErr := c.git("worktree", "prune"); pruneErr != nil {
			return fmt.Errorf("prune stale worktrees: %w", pruneErr)
		}
		_, err = c.git(args...)
	}
	if err != nil {
		return fmt.Errorf("create worktree for %s: %w", branch, err)
	}
	return nil
}

// Resolve returns the path of the worktree checked out on branch. A worktree
// whose directory no longer exists is reported as ErrWorktreeNotFound.
func (c *Client) Resolve(branch string) (string, error) {
	worktrees, err := c.List()
	if err != nil {
		return "", err
	}
	for _, wt := range worktrees {
		if wt.Branch != branch {
			continue
		}
		if _, err := os.Stat(wt.Path); err != nil {
			if os.IsNotExist(err) {
				break
			}
			return "", fmt.Errorf("stat worktree %s: %w", wt.Path, err)
		}
		return wt.Path, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrWorktreeNotFound, branch)
}

// Exists reports whether a live worktree is checked out on branch.
func (c *Client) Exists(branch string) (bool, error) {
	_, err := c.Resolve(branch)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrWorktreeNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Remove deletes the worktree at path. A worktree with uncommitted changes is
// left in place and ErrUncommittedChanges returned. A directory that is
// already gone only has its registration pruned.
func (c *Client) Remove(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if _, err := c.git("worktree", "prune"); err != nil {
			return fmt.Errorf("prune worktree %s: %w", path, err)
		}
		return nil
	}

	out, err := c.git("worktree", "remove", path)
	if err == nil {
		return nil
	}
	if strings.Contains(out, "contains modified or untracked files") || strings.Contains(out, "is dirty") {
		return fmt.Errorf("%w in %s", domain.ErrUncommittedChanges, path)
	}
	return fmt.Errorf("remove worktree: %w", err)
}

// List returns every registered worktree, the main checkout first.
func (c *Client) List() ([]domain.WorktreeInfo, error) {
	out, err := c.git("worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}
	return parseWorktreeList(out)
}

// parseWorktreeList reads `git worktree list --porcelain`: one block per
// worktree with "worktree <path>", "HEAD <sha>" and "branch refs/heads/<name>"
// (or "detached") lines, separated by blank lines.
func parseWorktreeList(output string) ([]domain.WorktreeInfo, error) {
	var (
		worktrees []domain.WorktreeInfo
		current   domain.WorktreeInfo
	)
	flush := func() {
		if current.Path != "" {
			worktrees = append(worktrees, current)
		}
		current = domain.WorktreeInfo{}
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, _ := strings.Cut(scanner.Text(), " ")
		switch key {
		case "worktree":
			current.Path = value
		case "HEAD":
			current.Head = value
		case "branch":
			current.Branch = strings.TrimPrefix(value, "refs/heads/")
		case "":
			flush()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse worktree list: %w", err)
	}
	flush()
	return worktrees, nil
}

func (c *Client) branchExists(branch string) (bool, error) {
	_, err := c.git("show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("check branch %s: %w", branch, err)
}
