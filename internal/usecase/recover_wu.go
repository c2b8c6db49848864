package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/eventstore"
	"github.com/lumenflow/lumenflow/internal/infra/fsutil"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// RecoverWUInput contains the parameters for inspecting a WU.
type RecoverWUInput struct {
	WUID string
}

// RecoverWUOutput describes how far a completion got and what is left.
// Fields are ordered to minimize memory padding.
type RecoverWUOutput struct {
	WU            *domain.WU
	Branch        string
	WorktreePath  string
	NextStep      string   // The single command to run next
	Remaining     []string // Completion steps not yet visible on main
	BranchExists  bool
	BranchMerged  bool // Lane branch tip is contained in main
	Stamped       bool
	CompleteEvent bool
	WorktreeFound bool
	Dirty         bool // Worktree has uncommitted changes
}

// Done reports whether nothing remains to be done for the WU.
func (o *RecoverWUOutput) Done() bool {
	return len(o.Remaining) == 0 && !o.BranchExists && !o.WorktreeFound
}

// RecoverWU is the use case for inspecting a WU after an interrupted wu done.
// It never changes anything: the next step is always a regular command.
type RecoverWU struct {
	deps lifecycleDeps
}

// NewRecoverWU creates a new RecoverWU use case.
func NewRecoverWU(worktrees domain.WorktreeManager, git domain.Git, config *domain.Config, clock domain.Clock, repoRoot string) *RecoverWU {
	return &RecoverWU{deps: lifecycleDeps{worktrees: worktrees, git: git, config: config, clock: clock, repoRoot: repoRoot}}
}

// Execute inspects main, the lane branch and the lane worktree.
func (uc *RecoverWU) Execute(_ context.Context, in RecoverWUInput) (*RecoverWUOutput, error) {
	d := uc.deps
	layout := shared.NewLayout(d.repoRoot, d.config.Directories)
	mainGit := d.git.At(d.repoRoot)

	wu, err := shared.GetWU(wustore.New(layout.WUDir()), in.WUID)
	if err != nil {
		return nil, err
	}
	store, err := eventstore.Load(layout.EventLogPath(), d.clock)
	if err != nil {
		return nil, err
	}

	out := &RecoverWUOutput{
		WU:            wu,
		Branch:        domain.LaneBranchName(wu.Lane, wu.ID),
		Stamped:       fsutil.Exists(layout.StampPath(wu.ID)),
		CompleteEvent: store.HasEvent(wu.ID, domain.EventComplete),
	}

	if out.BranchExists, err = mainGit.BranchExists(out.Branch); err != nil {
		return nil, fmt.Errorf("check branch: %w", err)
	}
	if out.BranchExists {
		tip, err := mainGit.CommitHash(out.Branch)
		if err != nil {
			return nil, err
		}
		base, err := mainGit.MergeBase(out.Branch, d.config.Git.MainBranch)
		if err != nil {
			return nil, err
		}
		out.BranchMerged = tip == base
	}

	path, err := d.worktrees.Resolve(out.Branch)
	switch {
	case err == nil:
		out.WorktreePath = path
		out.WorktreeFound = true
		if out.Dirty, err = d.git.At(path).HasUncommittedChanges(); err != nil {
			return nil, fmt.Errorf("check worktree: %w", err)
		}
	case !errors.Is(err, domain.ErrWorktreeNotFound):
		return nil, err
	}

	if wu.Status != domain.StatusDone {
		out.Remaining = append(out.Remaining, "mark the WU document done")
	}
	if !out.CompleteEvent {
		out.Remaining = append(out.Remaining, "record the complete event")
	}
	if !out.Stamped {
		out.Remaining = append(out.Remaining, "write the completion stamp")
	}
	out.NextStep = uc.nextStep(out)
	return out, nil
}

func (uc *RecoverWU) nextStep(out *RecoverWUOutput) string {
	id := out.WU.ID
	switch {
	case out.Dirty:
		return fmt.Sprintf("git -C %s add -A && git -C %s commit (then %s)", out.WorktreePath, out.WorktreePath, domain.DoneCommand(id))
	case out.BranchExists:
		// wu done resumes an already merged branch and finishes the rest.
		return domain.DoneCommand(id)
	case out.WorktreeFound:
		return "git worktree remove " + out.WorktreePath
	case out.WU.Status == domain.StatusReady:
		return fmt.Sprintf("%s wu claim --id %s", domain.CLIName, id)
	case out.WU.Status != domain.StatusDone:
		// Claimed but the lane branch is gone.
		return fmt.Sprintf("%s wu release --id %s --reason %q", domain.CLIName, id, "lane branch lost")
	case len(out.Remaining) > 0:
		return fmt.Sprintf("%s wu status --id %s", domain.CLIName, id)
	default:
		return ""
	}
}
