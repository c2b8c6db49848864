package usecase

import (
	"context"
	"fmt"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// ReleaseWUInput contains the parameters for releasing a WU.
type ReleaseWUInput struct {
	WUID   string
	Reason string
	// RemoveWorktree deletes the lane worktree and branch after releasing.
	RemoveWorktree bool
}

// ReleaseWU is the use case for giving up a claim: the WU returns to Ready on
// main so another lane member can claim it.
type ReleaseWU struct {
	deps lifecycleDeps
}

// NewReleaseWU creates a new ReleaseWU use case.
func NewReleaseWU(
	worktrees domain.WorktreeManager,
	git domain.Git,
	config *domain.Config,
	clock domain.Clock,
	logger domain.Logger,
	repoRoot string,
) *ReleaseWU {
	return &ReleaseWU{deps: lifecycleDeps{
		worktrees: worktrees,
		git:       git,
		config:    config,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}}
}

// Execute releases the WU on main.
func (uc *ReleaseWU) Execute(_ context.Context, in ReleaseWUInput) (*TransitionOutput, error) {
	d := uc.deps
	id := domain.NormalizeWUID(in.WUID)
	if err := requireText(id, "reason", in.Reason); err != nil {
		return nil, err
	}

	out, err := d.transition(id, true, func(wu *domain.WU) (*domain.Event, string, error) {
		if !wu.Status.IsActive() || wu.Status == domain.StatusReady {
			return nil, "", fmt.Errorf("%w: %s is %s, only claimed WUs can be released", domain.ErrInvalidTransition, wu.ID, wu.Status)
		}
		e := domain.NewReleaseEvent(wu.ID, in.Reason, d.clock.Now())
		wu.Status = domain.StatusReady
		return &e, lifecycleMessage(wu.ID, "release", in.Reason), nil
	})
	if err != nil {
		return nil, err
	}

	branch := domain.LaneBranchName(out.WU.Lane, out.WU.ID)
	path, resolveErr := d.worktrees.Resolve(branch)
	if resolveErr != nil {
		return out, nil
	}
	if !in.RemoveWorktree {
		out.Warnings = append(out.Warnings, fmt.Sprintf("worktree %s and branch %s were kept; rerun with --remove-worktree to delete them", path, branch))
		return out, nil
	}
	if err := d.worktrees.Remove(path); err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("remove worktree %s: %v", path, err))
		return out, nil
	}
	if err := d.git.At(d.repoRoot).DeleteBranch(branch, true); err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("delete branch %s: %v", branch, err))
	}
	d.log().Info(id, "lifecycle", "removed worktree "+path)
	return out, nil
}
