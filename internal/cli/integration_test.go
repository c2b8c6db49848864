//go:build integration

package cli

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/internal/infra/markdown"
)

// testRepo creates a temporary git repository on main with one commit.
func testRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	run(t, dir, "git", "init", "-b", "main")
	run(t, dir, "git", "config", "user.email", "test@example.com")
	run(t, dir, "git", "config", "user.name", "Test User")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test\n"), 0o644))
	run(t, dir, "git", "add", ".")
	run(t, dir, "git", "commit", "-m", "Initial commit")
	return dir
}

// initRepo runs lumenflow init with pushing disabled and commits the result.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := testRepo(t)
	lumenflowMust(t, dir, "init")

	wsPath := filepath.Join(dir, "workspace.yaml")
	ws, err := os.ReadFile(wsPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(wsPath, []byte(strings.Replace(string(ws), "# push: false", "push: false", 1)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("/worktrees/\n"), 0o644))

	run(t, dir, "git", "add", ".")
	run(t, dir, "git", "commit", "-m", "Initialize lumenflow")
	return dir
}

// statusSection returns the status.md section holding the WU's bullet.
func statusSection(t *testing.T, path, wuID string) string {
	t.Helper()
	doc, err := markdown.ReadFile(path)
	require.NoError(t, err)
	section, ok := doc.SectionOf("[" + wuID + ":")
	require.True(t, ok, "%s has no bullet in %s", wuID, path)
	return section
}

// run executes a command and fails the test if it errors.
func run(t *testing.T, dir string, name string, args ...string) string {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "command failed: %s %v\noutput: %s", name, args, out)
	return string(out)
}

// lumenflow runs the CLI in dir and returns stdout followed by stderr.
func lumenflow(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	cmd := exec.Command(buildLumenflow(t), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String() + stderr.String(), err
}

func lumenflowMust(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := lumenflow(t, dir, args...)
	require.NoError(t, err, "lumenflow %v failed: %s", args, out)
	return out
}

var (
	binPath   string
	buildOnce sync.Once
	buildErr  error
)

// buildLumenflow builds the binary once per test run.
func buildLumenflow(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		wd, err := os.Getwd()
		if err != nil {
			buildErr = err
			return
		}
		moduleRoot := wd
		for {
			if _, err := os.Stat(filepath.Join(moduleRoot, "go.mod")); err == nil {
				break
			}
			parent := filepath.Dir(moduleRoot)
			if parent == moduleRoot {
				buildErr = os.ErrNotExist
				return
			}
			moduleRoot = parent
		}

		path := filepath.Join(os.TempDir(), "lumenflow-integration-test")
		cmd := exec.Command("go", "build", "-o", path, "./cmd/lumenflow")
		cmd.Dir = moduleRoot
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = err
			t.Logf("build failed: %s", out)
			return
		}
		binPath = path
	})

	require.NoError(t, buildErr, "failed to build lumenflow binary")
	return binPath
}

func TestIntegration_Init(t *testing.T) {
	dir := testRepo(t)

	out := lumenflowMust(t, dir, "init")
	assert.Contains(t, out, "Created workspace.yaml")
	assert.Contains(t, out, "echo '/worktrees/' >> .gitignore")
	assert.FileExists(t, filepath.Join(dir, "docs", "tasks", "status.md"))
	assert.FileExists(t, filepath.Join(dir, ".lumenflow", "state", "wu-events.jsonl"))

	out = lumenflowMust(t, dir, "init")
	assert.Contains(t, out, "Already initialized")
}

func TestIntegration_Lifecycle(t *testing.T) {
	dir := initRepo(t)

	out := lumenflowMust(t, dir, "wu", "create", "--lane", "Docs", "--title", "Write guide", "--type", "documentation")
	assert.Contains(t, out, "Created WU-1: Write guide [Docs]")

	out = lumenflowMust(t, dir, "wu", "claim", "--id", "WU-1")
	assert.Contains(t, out, "Claimed WU-1 on lane/docs/wu-1")
	worktree := filepath.Join(dir, "worktrees", "docs-wu-1")
	assert.DirExists(t, worktree)

	require.NoError(t, os.WriteFile(filepath.Join(worktree, "GUIDE.md"), []byte("# Guide\n"), 0o644))
	run(t, worktree, "git", "add", "GUIDE.md")
	run(t, worktree, "git", "commit", "-m", "Add guide")

	out = lumenflowMust(t, dir, "wu", "checkpoint", "--id", "WU-1", "--note", "draft done")
	assert.Contains(t, out, "WU-1")

	out = lumenflowMust(t, dir, "wu", "done", "--id", "WU-1")
	assert.Contains(t, out, "Completed WU-1: lane/docs/wu-1 merged into main")

	assert.FileExists(t, filepath.Join(dir, "GUIDE.md"))
	assert.FileExists(t, filepath.Join(dir, ".lumenflow", "stamps", "WU-1.done"))
	assert.NoDirExists(t, worktree)

	assert.Equal(t, "Completed", statusSection(t, filepath.Join(dir, "docs", "tasks", "status.md"), "WU-1"))

	out = lumenflowMust(t, dir, "wu", "status", "--id", "WU-1")
	assert.Contains(t, out, "Done")
	assert.Contains(t, out, "Stamp:    yes")

	out = lumenflowMust(t, dir, "wu", "done", "--id", "WU-1")
	assert.Contains(t, out, "WU-1 is already done")

	log := run(t, dir, "git", "log", "--format=%s")
	assert.Contains(t, log, "wu(wu-1): claim")
	assert.Contains(t, log, "wu(wu-1): done")
}

func TestIntegration_ClaimRequiresCleanMain(t *testing.T) {
	dir := initRepo(t)
	lumenflowMust(t, dir, "wu", "create", "--lane", "Docs", "--title", "Write guide", "--type", "documentation")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("x"), 0o644))

	out, err := lumenflow(t, dir, "wu", "claim", "--id", "WU-1")
	require.Error(t, err)
	assert.Contains(t, out, "uncommitted changes")
}

func TestIntegration_BlockAndUnblock(t *testing.T) {
	dir := initRepo(t)
	lumenflowMust(t, dir, "wu", "create", "--lane", "Docs", "--title", "Write guide", "--type", "documentation")
	lumenflowMust(t, dir, "wu", "claim", "--id", "WU-1")

	worktreeStatus := filepath.Join(dir, "worktrees", "docs-wu-1", "docs", "tasks", "status.md")

	out := lumenflowMust(t, dir, "wu", "block", "--id", "WU-1", "--reason", "waiting on review")
	assert.Contains(t, out, "WU-1")
	assert.Equal(t, "Blocked", statusSection(t, worktreeStatus, "WU-1"))

	lumenflowMust(t, dir, "wu", "unblock", "--id", "WU-1")
	assert.Equal(t, "In Progress", statusSection(t, worktreeStatus, "WU-1"))
}
