package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/fsutil"
	"github.com/lumenflow/lumenflow/internal/infra/markdown"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// workspaceTemplate is written as workspace.yaml by `lumenflow init`.
const workspaceTemplate = `# LumenFlow workspace configuration.
# Every key is optional; the values below are the defaults.

directories:
  wu_dir: docs/tasks/wu
  stamps_dir: .lumenflow/stamps
  status_path: docs/tasks/status.md
  backlog_path: docs/tasks/backlog.md
  event_log: .lumenflow/state/wu-events.jsonl
  worktrees: worktrees
  invariants: tools/invariants.yml

git:
  main_branch: main
  remote: origin
  # push: false
  merge_strategy: ff-only

# lanes:
#   - name: "Framework: Core"
#     wip_limit: 1

# gates:
#   commands:
#     - name: test
#       run: go test ./...
`

// InitRepoInput contains the parameters for InitRepo.
type InitRepoInput struct{}

// InitRepoOutput contains the result of InitRepo.
type InitRepoOutput struct {
	Created            []string // Files and directories created, relative to the repository root
	AlreadyInitialized bool     // Every workflow file already existed
	GitignoreNeedsAdd  bool     // The worktrees directory is not ignored yet
	WorktreesDir       string
}

// InitRepo prepares a repository for LumenFlow.
// Existing files are never overwritten, so it is safe to run again.
type InitRepo struct {
	config   *domain.Config
	repoRoot string
}

// NewInitRepo creates a new InitRepo use case.
func NewInitRepo(config *domain.Config, repoRoot string) *InitRepo {
	return &InitRepo{config: config, repoRoot: repoRoot}
}

// Execute creates workspace.yaml, the WU and stamp directories, an empty
// event log, status.md and backlog.md.
func (uc *InitRepo) Execute(_ context.Context, _ InitRepoInput) (*InitRepoOutput, error) {
	layout := shared.NewLayout(uc.repoRoot, uc.config.Directories)
	sections := uc.config.Sections
	out := &InitRepoOutput{WorktreesDir: uc.config.Directories.Worktrees}

	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(uc.repoRoot, domain.WorkspaceFileName), workspaceTemplate},
		{layout.StatusPath(), markdown.RenderEmptyStatus(sections)},
		{layout.BacklogPath(), markdown.RenderBacklog("", sections, nil)},
		{layout.EventLogPath(), ""},
	}
	for _, f := range files {
		if fsutil.Exists(f.path) {
			continue
		}
		if err := fsutil.WriteFileAtomic(f.path, []byte(f.content)); err != nil {
			return nil, err
		}
		out.Created = append(out.Created, layout.Rel(f.path))
	}

	// Kept in git through a .gitkeep until the first WU or stamp is written.
	for _, dir := range []string{layout.WUDir(), filepath.Dir(layout.StampPath("WU-0"))} {
		keep := filepath.Join(dir, ".gitkeep")
		if fsutil.Exists(dir) {
			continue
		}
		if err := fsutil.WriteFileAtomic(keep, nil); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
		out.Created = append(out.Created, layout.Rel(dir)+"/")
	}

	out.AlreadyInitialized = len(out.Created) == 0
	out.GitignoreNeedsAdd = !isIgnored(uc.repoRoot, uc.config.Directories.Worktrees)
	return out, nil
}

// isIgnored checks whether .gitignore lists dir as a plain entry.
func isIgnored(repoRoot, dir string) bool {
	content, err := os.ReadFile(filepath.Join(repoRoot, ".gitignore"))
	if err != nil {
		return false
	}
	want := strings.Trim(filepath.ToSlash(dir), "/")
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if strings.Trim(line, "/") == want {
			return true
		}
	}
	return false
}
