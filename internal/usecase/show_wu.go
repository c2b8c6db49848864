package usecase

import (
	"context"
	"errors"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/eventstore"
	"github.com/lumenflow/lumenflow/internal/infra/fsutil"
	"github.com/lumenflow/lumenflow/internal/infra/markdown"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// ShowWUInput contains the parameters for showing a WU.
type ShowWUInput struct {
	WUID string
}

// ShowWUOutput contains the WU as seen from the main checkout.
// Fields are ordered to minimize memory padding.
type ShowWUOutput struct {
	WU            *domain.WU
	State         domain.WUState
	Events        []domain.Event
	Status        domain.Status // Event-derived status, or the document's when untracked
	StatusSection string        // status.md section holding the bullet
	Branch        string
	WorktreePath  string
	Tracked       bool // True when the event log has events for the WU
	Stamped       bool
	BranchExists  bool
}

// ShowWU is the use case for displaying a WU.
type ShowWU struct {
	deps lifecycleDeps
}

// NewShowWU creates a new ShowWU use case.
func NewShowWU(worktrees domain.WorktreeManager, git domain.Git, config *domain.Config, clock domain.Clock, repoRoot string) *ShowWU {
	return &ShowWU{deps: lifecycleDeps{worktrees: worktrees, git: git, config: config, clock: clock, repoRoot: repoRoot}}
}

// Execute loads the WU and everything recorded about it on main.
func (uc *ShowWU) Execute(_ context.Context, in ShowWUInput) (*ShowWUOutput, error) {
	d := uc.deps
	layout := shared.NewLayout(d.repoRoot, d.config.Directories)

	wu, err := shared.GetWU(wustore.New(layout.WUDir()), in.WUID)
	if err != nil {
		return nil, err
	}
	store, err := eventstore.Load(layout.EventLogPath(), d.clock)
	if err != nil {
		return nil, err
	}

	out := &ShowWUOutput{
		WU:      wu,
		Status:  wu.Status,
		Branch:  domain.LaneBranchName(wu.Lane, wu.ID),
		Stamped: fsutil.Exists(layout.StampPath(wu.ID)),
		Events:  store.EventsFor(wu.ID),
	}
	if state, ok := store.WUState(wu.ID); ok {
		out.State = state
		out.Status = state.Status
		out.Tracked = true
	}

	doc, err := markdown.ReadFile(layout.StatusPath())
	if err != nil && !domain.HasCode(err, domain.CodeFileNotFound) {
		return nil, err
	}
	if doc != nil {
		out.StatusSection, _ = doc.SectionOf("[" + wu.ID + ":")
	}

	if d.git != nil {
		if out.BranchExists, err = d.git.At(d.repoRoot).BranchExists(out.Branch); err != nil {
			return nil, err
		}
	}
	if d.worktrees != nil {
		path, err := d.worktrees.Resolve(out.Branch)
		switch {
		case err == nil:
			out.WorktreePath = path
		case !errors.Is(err, domain.ErrWorktreeNotFound):
			return nil, err
		}
	}
	return out, nil
}
