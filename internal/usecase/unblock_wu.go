package usecase

import (
	"context"
	"fmt"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// UnblockWUInput contains the parameters for unblocking a WU.
type UnblockWUInput struct {
	WUID string
}

// UnblockWU is the use case for resuming a blocked or waiting WU.
type UnblockWU struct {
	deps lifecycleDeps
}

// NewUnblockWU creates a new UnblockWU use case.
func NewUnblockWU(
	worktrees domain.WorktreeManager,
	git domain.Git,
	config *domain.Config,
	clock domain.Clock,
	logger domain.Logger,
	repoRoot string,
) *UnblockWU {
	return &UnblockWU{deps: lifecycleDeps{
		worktrees: worktrees,
		git:       git,
		config:    config,
		clock:     clock,
		logger:    logger,
		repoRoot:  repoRoot,
	}}
}

// Execute moves the WU back to In Progress.
func (uc *UnblockWU) Execute(_ context.Context, in UnblockWUInput) (*TransitionOutput, error) {
	return uc.deps.transition(domain.NormalizeWUID(in.WUID), false, func(wu *domain.WU) (*domain.Event, string, error) {
		if wu.Status != domain.StatusBlocked && wu.Status != domain.StatusWaiting {
			return nil, "", fmt.Errorf("%w: %s is %s, not blocked", domain.ErrInvalidTransition, wu.ID, wu.Status)
		}
		e := domain.NewUnblockEvent(wu.ID, uc.deps.clock.Now())
		wu.Status = domain.StatusInProgress
		return &e, lifecycleMessage(wu.ID, "unblock", ""), nil
	})
}
