package usecase

import (
	"context"
	"fmt"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/markdown"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// ClaimWUInput contains the parameters for claiming a WU.
type ClaimWUInput struct {
	WUID  string
	Force bool // Ignore the lane WIP limit
}

// ClaimWUOutput contains the result of claiming a WU.
type ClaimWUOutput struct {
	WU           *domain.WU
	Branch       string
	WorktreePath string
	Warnings     []string
	LaneCount    int // Claimed WUs in the lane before this claim
	WIPLimit     int
}

// ClaimWU is the use case for starting work on a WU.
//
// The claim is committed on main first, so the lane branch created from main
// carries the claimed metadata and its own copy of the event log.
type ClaimWU struct {
	deps lifecycleDeps
}

// NewClaimWU creates a new ClaimWU use case.
func NewClaimWU(
	worktrees domain.WorktreeManager,
	git domain.Git,
	config *domain.Config,
	clock domain.Clock,
	logger domain.Logger,
	repoRoot string,
) *ClaimWU {
	return &ClaimWU{deps: lifecycleDeps{
		worktrees: worktrees,
		git:       git,
		config:    config,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}}
}

// Execute claims a ready WU.
// Preconditions:
//   - The main checkout is on the main branch and clean
//   - The WU is ready and its lane branch does not exist yet
//   - The lane is below its WIP limit (unless forced)
//
// Processing:
//  1. Append the claim event, mark the document in_progress and move the
//     status.md bullet from Ready to In Progress; commit on main
//  2. Push main if enabled
//  3. Create the lane branch and its worktree from main
func (uc *ClaimWU) Execute(_ context.Context, in ClaimWUInput) (*ClaimWUOutput, error) {
	d := uc.deps
	cfg := d.config
	layout := shared.NewLayout(d.repoRoot, cfg.Directories)
	wus := wustore.New(layout.WUDir())

	if err := d.ensureMainCheckout(); err != nil {
		return nil, err
	}

	wu, err := shared.GetWU(wus, in.WUID)
	if err != nil {
		return nil, err
	}
	if wu.Status != domain.StatusReady {
		return nil, fmt.Errorf("%w: %s is %s, only ready WUs can be claimed", domain.ErrInvalidTransition, wu.ID, wu.Status)
	}

	branch := domain.LaneBranchName(wu.Lane, wu.ID)
	mainGit := d.git.At(d.repoRoot)
	exists, err := mainGit.BranchExists(branch)
	if err != nil {
		return nil, fmt.Errorf("check branch: %w", err)
	}
	if exists {
		return nil, domain.NewError(domain.CodeValidation, "%s: lane branch %s already exists", wu.ID, branch)
	}

	out := &ClaimWUOutput{Branch: branch, WIPLimit: cfg.WIPLimit(wu.Lane)}
	count, err := laneCount(layout, cfg.Sections, wus, wu.Lane)
	if err != nil {
		return nil, err
	}
	out.LaneCount = count
	if out.WIPLimit > 0 && count >= out.WIPLimit {
		if !in.Force {
			return nil, fmt.Errorf("%w: lane %q has %d of %d claimed", domain.ErrWIPLimitReached, wu.Lane, count, out.WIPLimit)
		}
		msg := fmt.Sprintf("lane %q is over its WIP limit (%d of %d)", wu.Lane, count+1, out.WIPLimit)
		d.log().Warn(wu.ID, "lifecycle", msg)
		out.Warnings = append(out.Warnings, msg)
	}

	wu.Status = domain.StatusInProgress
	claim := domain.NewClaimEvent(wu.ID, wu.Lane, wu.Title, d.clock.Now())
	writer := shared.NewMetadataWriter(mainGit, layout, cfg.Sections, d.clock, d.log())
	if err := writer.Apply(shared.Change{
		WU:      wu,
		Event:   &claim,
		WUID:    wu.ID,
		From:    domain.StatusReady,
		To:      domain.StatusInProgress,
		Message: lifecycleMessage(wu.ID, "claim", fmt.Sprintf("%s [%s]", wu.Title, wu.Lane)),
	}); err != nil {
		return nil, fmt.Errorf("claim %s: %w", wu.ID, err)
	}
	out.Warnings = append(out.Warnings, d.publish(wu.ID)...)

	path := domain.WorktreePath(layout.WorktreesDir(), wu.Lane, wu.ID)
	if err := d.worktrees.Create(branch, cfg.Git.MainBranch, path); err != nil {
		return nil, fmt.Errorf("create worktree for %s (claim is committed; create it with `git worktree add -b %s %s %s`): %w",
			wu.ID, branch, path, cfg.Git.MainBranch, err)
	}
	d.log().Info(wu.ID, "lifecycle", fmt.Sprintf("claimed on %s at %s", branch, path))

	out.WU = wu
	out.WorktreePath = path
	return out, nil
}

// laneCount counts the In Progress and Blocked bullets of status.md whose WU
// belongs to lane.
func laneCount(layout shared.Layout, sections domain.SectionsConfig, wus domain.WURepository, lane string) (int, error) {
	doc, err := markdown.ReadFile(layout.StatusPath())
	if err != nil {
		return 0, err
	}
	count := 0
	for _, section := range []string{sections.InProgress, sections.Blocked} {
		bullets, ok := doc.SectionBullets(section)
		if !ok {
			continue
		}
		for _, line := range bullets {
			id, ok := domain.ParseBulletWUID(line)
			if !ok {
				continue
			}
			wu, err := wus.Get(id)
			if err != nil {
				continue
			}
			if wu.Lane == lane {
				count++
			}
		}
	}
	return count, nil
}
