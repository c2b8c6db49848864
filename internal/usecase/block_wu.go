package usecase

import (
	"context"
	"fmt"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// BlockWUInput contains the parameters for blocking a WU.
type BlockWUInput struct {
	WUID   string
	Reason string
}

// TransitionOutput is the result of a status transition.
type TransitionOutput struct {
	WU       *domain.WU
	Root     string // Checkout the change was committed in
	Warnings []string
	// InWorktree is true when the change was committed on the lane branch.
	InWorktree bool
}

// BlockWU is the use case for marking an in-progress WU as blocked.
type BlockWU struct {
	deps lifecycleDeps
}

// NewBlockWU creates a new BlockWU use case.
func NewBlockWU(
	worktrees domain.WorktreeManager,
	git domain.Git,
	config *domain.Config,
	clock domain.Clock,
	logger domain.Logger,
	repoRoot string,
) *BlockWU {
	return &BlockWU{deps: lifecycleDeps{
		worktrees: worktrees,
		git:       git,
		config:    config,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}}
}

// Execute moves the WU from In Progress to Blocked.
func (uc *BlockWU) Execute(_ context.Context, in BlockWUInput) (*TransitionOutput, error) {
	id := domain.NormalizeWUID(in.WUID)
	if err := requireText(id, "reason", in.Reason); err != nil {
		return nil, err
	}
	return uc.deps.transition(id, false, func(wu *domain.WU) (*domain.Event, string, error) {
		if wu.Status != domain.StatusInProgress {
			return nil, "", fmt.Errorf("%w: %s is %s, only in-progress WUs can be blocked", domain.ErrInvalidTransition, wu.ID, wu.Status)
		}
		e := domain.NewBlockEvent(wu.ID, in.Reason, uc.deps.clock.Now())
		wu.Status = domain.StatusBlocked
		return &e, lifecycleMessage(wu.ID, "block", in.Reason), nil
	})
}

// transitionFunc validates the WU, mutates its status and returns the event
// and commit message for the change.
type transitionFunc func(wu *domain.WU) (*domain.Event, string, error)

// transition applies a status change in the WU's lane worktree when one
// exists, else in the main checkout. mainOnly always uses the main checkout.
func (d lifecycleDeps) transition(id string, mainOnly bool, apply transitionFunc) (*TransitionOutput, error) {
	mainLayout := shared.NewLayout(d.repoRoot, d.config.Directories)
	mainWU, err := shared.GetWU(wustore.New(mainLayout.WUDir()), id)
	if err != nil {
		return nil, err
	}

	root, inWorktree := d.repoRoot, false
	if !mainOnly {
		root, inWorktree = d.checkoutFor(mainWU)
	}
	if !inWorktree {
		if err := d.ensureMainCheckout(); err != nil {
			return nil, err
		}
	}
	layout := shared.NewLayout(root, d.config.Directories)
	wu := mainWU
	if inWorktree {
		if wu, err = shared.GetWU(wustore.New(layout.WUDir()), id); err != nil {
			return nil, err
		}
	}

	from := wu.Status
	event, message, err := apply(wu)
	if err != nil {
		return nil, err
	}

	writer := shared.NewMetadataWriter(d.git.At(root), layout, d.config.Sections, d.clock, d.log())
	if err := writer.Apply(shared.Change{
		WU:      wu,
		Event:   event,
		WUID:    wu.ID,
		From:    from,
		To:      wu.Status,
		Message: message,
	}); err != nil {
		return nil, fmt.Errorf("%s %s: %w", event.Type, wu.ID, err)
	}
	d.log().Info(wu.ID, "lifecycle", fmt.Sprintf("%s -> %s", from, wu.Status))

	out := &TransitionOutput{WU: wu, Root: root, InWorktree: inWorktree}
	if !inWorktree {
		out.Warnings = d.publish(wu.ID)
	}
	return out, nil
}
