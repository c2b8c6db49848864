package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// setupGitRepo creates a temporary git repository on main with one commit.
func setupGitRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")

	readme := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("# Test\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "Initial commit")

	return dir
}

// runGit executes a git command and fails the test if it errors.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, out)
	return string(out)
}

// commitFile writes name and commits it on the current branch.
func commitFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "-m", "Update "+name)
}

func newClient(t *testing.T, dir string) *Client {
	t.Helper()
	client, err := NewClient(dir)
	require.NoError(t, err)
	return client
}

// =============================================================================
// NewClient Tests
// =============================================================================

func TestNewClient_Success(t *testing.T) {
	dir := setupGitRepo(t)

	client, err := NewClient(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, client.RepoRoot())
	assert.Equal(t, filepath.Join(dir, ".git"), client.GitDir())
	assert.Equal(t, dir, client.Dir())
}

func TestNewClient_NotGitRepo(t *testing.T) {
	client, err := NewClient(t.TempDir())

	assert.ErrorIs(t, err, domain.ErrNotGitRepository)
	assert.Nil(t, client)
}

func TestNewClient_FromWorktree(t *testing.T) {
	mainRepo := setupGitRepo(t)
	worktreeDir := filepath.Join(t.TempDir(), "worktree")
	runGit(t, mainRepo, "worktree", "add", "-b", "lane/core/wu-1", worktreeDir)

	client := newClient(t, worktreeDir)

	// Lifecycle commands run from inside a lane worktree still find main.
	assert.Equal(t, mainRepo, client.RepoRoot())
	assert.Equal(t, filepath.Join(mainRepo, ".git"), client.GitDir())
	assert.Equal(t, worktreeDir, client.Dir())
}

func TestClient_At(t *testing.T) {
	mainRepo := setupGitRepo(t)
	worktreeDir := filepath.Join(t.TempDir(), "worktree")
	runGit(t, mainRepo, "worktree", "add", "-b", "lane/core/wu-1", worktreeDir)
	client := newClient(t, mainRepo)

	wt := client.At(worktreeDir)

	assert.Equal(t, worktreeDir, wt.Dir())
	branch, err := wt.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "lane/core/wu-1", branch)
	branch, err = client.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch, "the original client is unchanged")
}

// =============================================================================
// Query Tests
// =============================================================================

func TestClient_CommitHashAndMergeBase(t *testing.T) {
	dir := setupGitRepo(t)
	client := newClient(t, dir)
	base, err := client.CommitHash("HEAD")
	require.NoError(t, err)
	assert.Len(t, base, 40)

	runGit(t, dir, "checkout", "-b", "feature")
	commitFile(t, dir, "feature.txt", "x\n")

	got, err := client.MergeBase("feature", "main")
	require.NoError(t, err)
	assert.Equal(t, base, got)

	_, err = client.CommitHash("no-such-ref")
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeGit))
}

func TestClient_BranchExists(t *testing.T) {
	dir := setupGitRepo(t)
	runGit(t, dir, "branch", "lane/core/wu-1")
	client := newClient(t, dir)

	exists, err := client.BranchExists("lane/core/wu-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.BranchExists("lane/core/wu-2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_HasUncommittedChanges(t *testing.T) {
	dir := setupGitRepo(t)
	client := newClient(t, dir)

	dirty, err := client.HasUncommittedChanges()
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644))
	dirty, err = client.HasUncommittedChanges()
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestClient_DiffNames(t *testing.T) {
	dir := setupGitRepo(t)
	client := newClient(t, dir)
	runGit(t, dir, "checkout", "-b", "feature")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	commitFile(t, dir, "src/a.go", "package src\n")
	commitFile(t, dir, "README.md", "# Changed\n")

	names, err := client.DiffNames("main", "feature")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/a.go", "README.md"}, names)

	names, err = client.DiffNames("main", "main")
	require.NoError(t, err)
	assert.Empty(t, names)
}

// =============================================================================
// Mutation Tests
// =============================================================================

func TestClient_AddCommitReset(t *testing.T) {
	dir := setupGitRepo(t)
	client := newClient(t, dir)
	before, err := client.CommitHash("HEAD")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "stamp.done"), []byte("done\n"), 0o644))
	require.NoError(t, client.Add("stamp.done"))
	require.NoError(t, client.Commit("wu(wu-1): done - Stamp"))

	subject := runGit(t, dir, "log", "-1", "--format=%s")
	assert.Equal(t, "wu(wu-1): done - Stamp\n", subject)

	require.NoError(t, client.Reset(before, true))
	after, err := client.CommitHash("HEAD")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, filepath.Join(dir, "stamp.done"))
}

func TestClient_Commit_NothingStaged(t *testing.T) {
	client := newClient(t, setupGitRepo(t))

	err := client.Commit("empty")

	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeGit))
}

func TestClient_Merge_FastForwardOnly(t *testing.T) {
	dir := setupGitRepo(t)
	runGit(t, dir, "checkout", "-b", "feature")
	commitFile(t, dir, "feature.txt", "feature content\n")
	runGit(t, dir, "checkout", "main")
	client := newClient(t, dir)

	require.NoError(t, client.Merge("feature", domain.MergeOptions{FastForwardOnly: true}))

	assert.FileExists(t, filepath.Join(dir, "feature.txt"))
	mainSHA, err := client.CommitHash("main")
	require.NoError(t, err)
	feature, err := client.CommitHash("feature")
	require.NoError(t, err)
	assert.Equal(t, feature, mainSHA)
}

func TestClient_Merge_FastForwardOnlyRejectsDivergence(t *testing.T) {
	dir := setupGitRepo(t)
	runGit(t, dir, "checkout", "-b", "feature")
	commitFile(t, dir, "feature.txt", "feature\n")
	runGit(t, dir, "checkout", "main")
	commitFile(t, dir, "main.txt", "main\n")
	client := newClient(t, dir)

	err := client.Merge("feature", domain.MergeOptions{FastForwardOnly: true})

	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "feature.txt"))
}

func TestClient_Merge_NoFastForward(t *testing.T) {
	dir := setupGitRepo(t)
	runGit(t, dir, "checkout", "-b", "feature")
	commitFile(t, dir, "feature.txt", "feature\n")
	runGit(t, dir, "checkout", "main")
	client := newClient(t, dir)

	err := client.Merge("feature", domain.MergeOptions{NoFastForward: true, Message: "Merge feature (WU-1)"})

	require.NoError(t, err)
	subject := runGit(t, dir, "log", "-1", "--format=%s")
	assert.Equal(t, "Merge feature (WU-1)\n", subject)
	parents := runGit(t, dir, "rev-list", "--parents", "-n", "1", "HEAD")
	assert.Len(t, strings.Fields(parents), 3, "merge commit has two parents")
}

func TestClient_WorktreeRemoveAndDeleteBranch(t *testing.T) {
	dir := setupGitRepo(t)
	worktreeDir := filepath.Join(t.TempDir(), "wt")
	runGit(t, dir, "worktree", "add", "-b", "lane/core/wu-1", worktreeDir)
	client := newClient(t, dir)

	require.NoError(t, client.WorktreeRemove(worktreeDir, false))
	assert.NoDirExists(t, worktreeDir)

	require.NoError(t, client.DeleteBranch("lane/core/wu-1", false))
	exists, err := client.BranchExists("lane/core/wu-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_DeleteBranch_UnmergedNeedsForce(t *testing.T) {
	dir := setupGitRepo(t)
	runGit(t, dir, "checkout", "-b", "feature")
	commitFile(t, dir, "feature.txt", "x\n")
	runGit(t, dir, "checkout", "main")
	client := newClient(t, dir)

	require.Error(t, client.DeleteBranch("feature", false))
	require.NoError(t, client.DeleteBranch("feature", true))
}

func TestClient_Raw(t *testing.T) {
	client := newClient(t, setupGitRepo(t))

	out, err := client.Raw("rev-parse", "--abbrev-ref", "HEAD")

	require.NoError(t, err)
	assert.Equal(t, "main", out)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\n\n  b  \n"))
}
