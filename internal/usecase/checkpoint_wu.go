package usecase

import (
	"context"
	"fmt"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// CheckpointWUInput contains the parameters for recording a checkpoint.
type CheckpointWUInput struct {
	WUID string
	Note string
}

// CheckpointWU is the use case for recording a progress note on a claimed WU.
// Only the event log changes.
type CheckpointWU struct {
	deps lifecycleDeps
}

// NewCheckpointWU creates a new CheckpointWU use case.
func NewCheckpointWU(
	worktrees domain.WorktreeManager,
	git domain.Git,
	config *domain.Config,
	clock domain.Clock,
	logger domain.Logger,
	repoRoot string,
) *CheckpointWU {
	return &CheckpointWU{deps: lifecycleDeps{
		worktrees: worktrees,
		git:       git,
		config:    config,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}}
}

// Execute appends the checkpoint event in the lane worktree (or main when the
// WU has no worktree) and commits it.
func (uc *CheckpointWU) Execute(_ context.Context, in CheckpointWUInput) (*TransitionOutput, error) {
	d := uc.deps
	id := domain.NormalizeWUID(in.WUID)
	if err := requireText(id, "note", in.Note); err != nil {
		return nil, err
	}

	mainLayout := shared.NewLayout(d.repoRoot, d.config.Directories)
	wu, err := shared.GetWU(wustore.New(mainLayout.WUDir()), id)
	if err != nil {
		return nil, err
	}
	if wu.Status == domain.StatusDone {
		return nil, fmt.Errorf("%w: %s is done", domain.ErrInvalidTransition, id)
	}

	root, inWorktree := d.checkoutFor(wu)
	if !inWorktree {
		if err := d.ensureMainCheckout(); err != nil {
			return nil, err
		}
	}
	layout := shared.NewLayout(root, d.config.Directories)

	e := domain.NewCheckpointEvent(id, in.Note, d.clock.Now())
	writer := shared.NewMetadataWriter(d.git.At(root), layout, d.config.Sections, d.clock, d.log())
	if err := writer.Apply(shared.Change{
		Event:   &e,
		WUID:    id,
		Message: lifecycleMessage(id, "checkpoint", in.Note),
	}); err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", id, err)
	}
	d.log().Info(id, "lifecycle", "checkpoint: "+in.Note)

	out := &TransitionOutput{WU: wu, Root: root, InWorktree: inWorktree}
	if !inWorktree {
		out.Warnings = d.publish(id)
	}
	return out, nil
}
