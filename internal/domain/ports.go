package domain

import (
	"context"
	"io"
	"time"
)

// WURepository manages WU YAML documents under a single directory.
type WURepository interface {
	// Get retrieves a WU by ID. Returns ErrWUNotFound if the document does not exist.
	Get(id string) (*WU, error)

	// List returns all WU documents sorted by numeric ID.
	List() ([]*WU, error)

	// Save validates and writes a WU document.
	Save(wu *WU) error

	// Path returns the absolute path of the document for id.
	Path(id string) string
}

// WorktreeManager manages git worktrees.
type WorktreeManager interface {
	// Create creates a new worktree at path for the given branch.
	Create(branch, baseBranch, path string) error

	// Resolve returns the path of an existing worktree for the branch.
	Resolve(branch string) (path string, err error)

	// Remove deletes a worktree by path.
	Remove(path string) error

	// Exists checks if a worktree exists for the branch.
	Exists(branch string) (bool, error)

	// List returns all worktrees.
	List() ([]WorktreeInfo, error)
}

// WorktreeInfo contains information about a worktree.
type WorktreeInfo struct {
	Path   string // Absolute path to worktree
	Branch string // Branch name, empty when detached
	Head   string // Commit checked out
}

// MergeOptions configures Git.Merge.
type MergeOptions struct {
	FastForwardOnly bool
	NoFastForward   bool
	Message         string
}

// Git provides git operations bound to a working directory.
type Git interface {
	// At returns a client bound to dir (a worktree or the main checkout).
	At(dir string) Git

	// Dir returns the bound working directory.
	Dir() string

	// CurrentBranch returns the name of the current branch.
	CurrentBranch() (string, error)

	// CommitHash resolves ref to a full commit SHA.
	CommitHash(ref string) (string, error)

	// MergeBase returns the best common ancestor of a and b.
	MergeBase(a, b string) (string, error)

	// BranchExists checks if a local branch exists.
	BranchExists(branch string) (bool, error)

	// HasUncommittedChanges checks for staged or unstaged changes.
	HasUncommittedChanges() (bool, error)

	// DiffNames lists files changed between base and head.
	DiffNames(base, head string) ([]string, error)

	// Add stages paths.
	Add(paths ...string) error

	// Commit records staged changes.
	Commit(message string) error

	// Merge merges branch into the current branch.
	Merge(branch string, opts MergeOptions) error

	// Reset moves HEAD to ref; hard also resets the index and working tree.
	Reset(ref string, hard bool) error

	// Push pushes branch to remote.
	Push(remote, branch string) error

	// Fetch fetches branch from remote.
	Fetch(remote, branch string) error

	// WorktreeRemove removes the worktree at path.
	WorktreeRemove(path string, force bool) error

	// DeleteBranch deletes a local branch.
	DeleteBranch(name string, force bool) error

	// Raw runs an arbitrary git command and returns trimmed stdout.
	Raw(args ...string) (string, error)
}

// RefReader reads file contents from committed git objects without a checkout.
type RefReader interface {
	// ReadFile returns the content of path at ref.
	// Returns a FILE_NOT_FOUND error if ref or path does not exist.
	ReadFile(ref, path string) ([]byte, error)
}

// CommandExecutor executes external commands.
type CommandExecutor interface {
	// Execute runs the command and returns its combined output.
	Execute(cmd *ExecCommand) ([]byte, error)

	// ExecuteWithContext runs a command with context and custom stdout/stderr writers.
	ExecuteWithContext(ctx context.Context, cmd *ExecCommand, stdout, stderr io.Writer) error
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (defaults + user + workspace + env).
	Load() (*Config, error)
}

// Logger writes categorized log entries, optionally scoped to a WU.
// An empty wuID logs to the global log only.
type Logger interface {
	Debug(wuID, category, msg string)
	Info(wuID, category, msg string)
	Warn(wuID, category, msg string)
	Error(wuID, category, msg string)
}

// NopLogger discards all entries.
type NopLogger struct{}

func (NopLogger) Debug(_, _, _ string) {}
func (NopLogger) Info(_, _, _ string)  {}
func (NopLogger) Warn(_, _, _ string)  {}
func (NopLogger) Error(_, _, _ string) {}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}
