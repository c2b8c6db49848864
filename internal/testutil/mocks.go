// Package testutil provides hand-written test doubles for domain ports.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// MockClock is a mock implementation of domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// Advance moves the clock forward.
func (m *MockClock) Advance(d time.Duration) {
	m.NowTime = m.NowTime.Add(d)
}

// LogEntry is one entry recorded by MockLogger.
type LogEntry struct {
	Level    string
	WUID     string
	Category string
	Msg      string
}

// MockLogger records log entries.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

// Ensure MockLogger implements domain.Logger interface.
var _ domain.Logger = (*MockLogger)(nil)

func (m *MockLogger) record(level, wuID, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, WUID: wuID, Category: category, Msg: msg})
}

func (m *MockLogger) Debug(wuID, category, msg string) { m.record("DEBUG", wuID, category, msg) }
func (m *MockLogger) Info(wuID, category, msg string)  { m.record("INFO", wuID, category, msg) }
func (m *MockLogger) Warn(wuID, category, msg string)  { m.record("WARN", wuID, category, msg) }
func (m *MockLogger) Error(wuID, category, msg string) { m.record("ERROR", wuID, category, msg) }

// Messages returns the messages logged at level in category ("" matches any).
func (m *MockLogger) Messages(level, category string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.Entries {
		if (level == "" || e.Level == level) && (category == "" || e.Category == category) {
			out = append(out, e.Msg)
		}
	}
	return out
}

// GitCall is one recorded MockGit invocation.
type GitCall struct {
	Dir    string
	Method string
	Args   []string
}

// String renders the call as "Method arg1 arg2".
func (c GitCall) String() string {
	return strings.TrimSpace(c.Method + " " + strings.Join(c.Args, " "))
}

// MockGitState is shared by every MockGit view returned from At.
type MockGitState struct {
	// Errs makes the named method fail, e.g. Errs["Merge"].
	Errs map[string]error
	// Hashes maps refs to SHAs for CommitHash. Unknown refs resolve to "sha-<ref>".
	Hashes map[string]string
	// MergeBases maps "a b" to the merge base. Unknown pairs return MergeBaseSHA.
	MergeBases map[string]string
	// Branches lists existing local branches.
	Branches map[string]bool
	// RawOutputs maps a space-joined argument list to its output.
	RawOutputs        map[string]string
	CurrentBranchName string
	MergeBaseSHA      string
	Diff              []string
	Calls             []GitCall
	Uncommitted       bool
	mu                sync.Mutex
}

// MockGit is a mock implementation of domain.Git.
type MockGit struct {
	*MockGitState
	WorkDir string
}

// Ensure MockGit implements domain.Git interface.
var _ domain.Git = (*MockGit)(nil)

// NewMockGit creates a MockGit bound to dir.
func NewMockGit(dir string) *MockGit {
	return &MockGit{
		MockGitState: &MockGitState{
			Errs:              make(map[string]error),
			Hashes:            make(map[string]string),
			MergeBases:        make(map[string]string),
			Branches:          make(map[string]bool),
			RawOutputs:        make(map[string]string),
			CurrentBranchName: domain.DefaultMainBranch,
			MergeBaseSHA:      "base",
		},
		WorkDir: dir,
	}
}

func (m *MockGit) record(method string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, GitCall{Dir: m.WorkDir, Method: method, Args: args})
	return m.Errs[method]
}

// Called reports whether method was invoked with the given leading args.
func (m *MockGit) Called(method string, args ...string) bool {
	return m.CallCount(method, args...) > 0
}

// CallCount counts invocations of method with the given leading args.
func (m *MockGit) CallCount(method string, args ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method != method || len(c.Args) < len(args) {
			continue
		}
		match := true
		for i, a := range args {
			if c.Args[i] != a {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}

// Methods returns the sequence of invoked method names.
func (m *MockGit) Methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		out[i] = c.Method
	}
	return out
}

// At returns a view bound to dir sharing this mock's state.
func (m *MockGit) At(dir string) domain.Git {
	return &MockGit{MockGitState: m.MockGitState, WorkDir: dir}
}

// Dir returns the bound directory.
func (m *MockGit) Dir() string {
	return m.WorkDir
}

// CurrentBranch returns the configured branch name or error.
func (m *MockGit) CurrentBranch() (string, error) {
	if err := m.record("CurrentBranch"); err != nil {
		return "", err
	}
	return m.CurrentBranchName, nil
}

// CommitHash returns the configured hash for ref.
func (m *MockGit) CommitHash(ref string) (string, error) {
	if err := m.record("CommitHash", ref); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.Hashes[ref]; ok {
		return h, nil
	}
	return "sha-" + ref, nil
}

// MergeBase returns the configured merge base.
func (m *MockGit) MergeBase(a, b string) (string, error) {
	if err := m.record("MergeBase", a, b); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.MergeBases[a+" "+b]; ok {
		return h, nil
	}
	return m.MergeBaseSHA, nil
}

// BranchExists reports whether branch is in Branches.
func (m *MockGit) BranchExists(branch string) (bool, error) {
	if err := m.record("BranchExists", branch); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Branches[branch], nil
}

// HasUncommittedChanges returns the configured value or error.
func (m *MockGit) HasUncommittedChanges() (bool, error) {
	if err := m.record("HasUncommittedChanges"); err != nil {
		return false, err
	}
	return m.Uncommitted, nil
}

// DiffNames returns the configured diff.
func (m *MockGit) DiffNames(base, head string) ([]string, error) {
	if err := m.record("DiffNames", base, head); err != nil {
		return nil, err
	}
	return m.Diff, nil
}

// Add records the call.
func (m *MockGit) Add(paths ...string) error {
	return m.record("Add", paths...)
}

// Commit records the call.
func (m *MockGit) Commit(message string) error {
	return m.record("Commit", message)
}

// Merge records the call and returns the configured error.
func (m *MockGit) Merge(branch string, opts domain.MergeOptions) error {
	mode := "default"
	switch {
	case opts.FastForwardOnly:
		mode = "ff-only"
	case opts.NoFastForward:
		mode = "no-ff"
	}
	return m.record("Merge", branch, mode)
}

// Reset records the call.
func (m *MockGit) Reset(ref string, hard bool) error {
	return m.record("Reset", ref, fmt.Sprint(hard))
}

// Push records the call.
func (m *MockGit) Push(remote, branch string) error {
	return m.record("Push", remote, branch)
}

// Fetch records the call.
func (m *MockGit) Fetch(remote, branch string) error {
	return m.record("Fetch", remote, branch)
}

// WorktreeRemove records the call.
func (m *MockGit) WorktreeRemove(path string, force bool) error {
	return m.record("WorktreeRemove", path, fmt.Sprint(force))
}

// DeleteBranch records the call. A forced delete fails only via Errs["DeleteBranchForce"].
func (m *MockGit) DeleteBranch(name string, force bool) error {
	err := m.record("DeleteBranch", name, fmt.Sprint(force))
	if force {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.Errs["DeleteBranchForce"]
	}
	return err
}

// Raw returns the configured output for args.
func (m *MockGit) Raw(args ...string) (string, error) {
	if err := m.record("Raw", args...); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RawOutputs[strings.Join(args, " ")], nil
}

// MockWorktreeManager is a mock implementation of domain.WorktreeManager.
type MockWorktreeManager struct {
	CreateErr    error
	ResolveErr   error
	RemoveErr    error
	ExistsErr    error
	Paths        map[string]string // branch → path
	Created      []string
	Removed      []string
	ExistsVal    bool
	CreateCalled bool
	RemoveCalled bool
}

// Ensure MockWorktreeManager implements domain.WorktreeManager interface.
var _ domain.WorktreeManager = (*MockWorktreeManager)(nil)

// NewMockWorktreeManager creates a new MockWorktreeManager.
func NewMockWorktreeManager() *MockWorktreeManager {
	return &MockWorktreeManager{Paths: make(map[string]string)}
}

// Create records the worktree.
func (m *MockWorktreeManager) Create(branch, _ string, path string) error {
	m.CreateCalled = true
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Paths[branch] = path
	m.Created = append(m.Created, path)
	return nil
}

// Resolve returns the recorded path for branch.
func (m *MockWorktreeManager) Resolve(branch string) (string, error) {
	if m.ResolveErr != nil {
		return "", m.ResolveErr
	}
	path, ok := m.Paths[branch]
	if !ok {
		return "", domain.ErrWorktreeNotFound
	}
	return path, nil
}

// Remove records the call.
func (m *MockWorktreeManager) Remove(path string) error {
	m.RemoveCalled = true
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.Removed = append(m.Removed, path)
	for branch, p := range m.Paths {
		if p == path {
			delete(m.Paths, branch)
		}
	}
	return nil
}

// Exists reports whether branch has a recorded worktree or ExistsVal is set.
func (m *MockWorktreeManager) Exists(branch string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	_, ok := m.Paths[branch]
	return ok || m.ExistsVal, nil
}

// List returns the recorded worktrees.
func (m *MockWorktreeManager) List() ([]domain.WorktreeInfo, error) {
	out := make([]domain.WorktreeInfo, 0, len(m.Paths))
	for branch, path := range m.Paths {
		out = append(out, domain.WorktreeInfo{Branch: branch, Path: path})
	}
	return out, nil
}

// MockExecutor is a mock implementation of domain.CommandExecutor.
type MockExecutor struct {
	// Errs fails commands whose shell text contains the key.
	Errs     map[string]error
	Outputs  map[string]string
	Commands []*domain.ExecCommand
}

// Ensure MockExecutor implements domain.CommandExecutor interface.
var _ domain.CommandExecutor = (*MockExecutor)(nil)

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{Errs: make(map[string]error), Outputs: make(map[string]string)}
}

func (m *MockExecutor) lookup(cmd *domain.ExecCommand) (string, error) {
	m.Commands = append(m.Commands, cmd)
	text := strings.Join(cmd.Args, " ")
	var out string
	for key, o := range m.Outputs {
		if strings.Contains(text, key) {
			out = o
		}
	}
	for key, err := range m.Errs {
		if strings.Contains(text, key) {
			return out, err
		}
	}
	return out, nil
}

// Execute records the command.
func (m *MockExecutor) Execute(cmd *domain.ExecCommand) ([]byte, error) {
	out, err := m.lookup(cmd)
	return []byte(out), err
}

// ExecuteWithContext records the command and writes its output to stdout.
func (m *MockExecutor) ExecuteWithContext(_ context.Context, cmd *domain.ExecCommand, stdout, _ io.Writer) error {
	out, err := m.lookup(cmd)
	if stdout != nil && out != "" {
		_, _ = io.WriteString(stdout, out)
	}
	return err
}

// MockRefReader is a mock implementation of domain.RefReader.
type MockRefReader struct {
	Err   error
	Files map[string]string // "ref:path" → content
}

// Ensure MockRefReader implements domain.RefReader interface.
var _ domain.RefReader = (*MockRefReader)(nil)

// NewMockRefReader creates a new MockRefReader.
func NewMockRefReader() *MockRefReader {
	return &MockRefReader{Files: make(map[string]string)}
}

// ReadFile returns the configured content.
func (m *MockRefReader) ReadFile(ref, path string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	content, ok := m.Files[ref+":"+path]
	if !ok {
		return nil, domain.NewError(domain.CodeFileNotFound, "%s not found at %s", path, ref)
	}
	return []byte(content), nil
}

// MockConfigLoader is a mock implementation of domain.ConfigLoader.
type MockConfigLoader struct {
	Config  *domain.Config
	LoadErr error
}

// Ensure MockConfigLoader implements domain.ConfigLoader interface.
var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// NewMockConfigLoader creates a loader returning the default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{Config: domain.NewDefaultConfig()}
}

// Load returns the configured config.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// ErrMock is a generic injected failure.
var ErrMock = errors.New("mock failure")
