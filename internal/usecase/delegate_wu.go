package usecase

import (
	"context"
	"fmt"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// DelegateWUInput contains the parameters for recording a delegation.
type DelegateWUInput struct {
	WUID       string // Delegated WU
	ParentWUID string // WU that spawned it
}

// DelegateWU is the use case for recording that a WU was spawned from
// another one. Only main's event log changes.
type DelegateWU struct {
	deps lifecycleDeps
}

// NewDelegateWU creates a new DelegateWU use case.
func NewDelegateWU(git domain.Git, config *domain.Config, clock domain.Clock, logger domain.Logger, repoRoot string) *DelegateWU {
	return &DelegateWU{deps: lifecycleDeps{git: git, config: config, clock: clock, logger: logger, repoRoot: repoRoot}}
}

// Execute appends the delegation event on main and commits it.
func (uc *DelegateWU) Execute(_ context.Context, in DelegateWUInput) (*TransitionOutput, error) {
	d := uc.deps
	layout := shared.NewLayout(d.repoRoot, d.config.Directories)
	wus := wustore.New(layout.WUDir())

	if err := d.ensureMainCheckout(); err != nil {
		return nil, err
	}
	child, err := shared.GetWU(wus, in.WUID)
	if err != nil {
		return nil, err
	}
	parent, err := shared.GetWU(wus, in.ParentWUID)
	if err != nil {
		return nil, fmt.Errorf("parent: %w", err)
	}
	if child.ID == parent.ID {
		return nil, domain.NewError(domain.CodeValidation, "%s cannot be delegated from itself", child.ID)
	}

	e := domain.NewDelegationEvent(child.ID, parent.ID, d.clock.Now())
	writer := shared.NewMetadataWriter(d.git.At(d.repoRoot), layout, d.config.Sections, d.clock, d.log())
	if err := writer.Apply(shared.Change{
		Event:   &e,
		WUID:    child.ID,
		Message: lifecycleMessage(child.ID, "delegate", "from "+parent.ID),
	}); err != nil {
		return nil, fmt.Errorf("delegate %s: %w", child.ID, err)
	}
	d.log().Info(child.ID, "lifecycle", "delegated from "+parent.ID)

	return &TransitionOutput{WU: child, Root: d.repoRoot, Warnings: d.publish(child.ID)}, nil
}
