package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/eventstore"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/usecase/preflight"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// CreateWUInput contains the parameters for creating a WU.
// Fields are ordered to minimize memory padding.
type CreateWUInput struct {
	ID          string // Optional; the next free number is used when empty
	Title       string
	Lane        string
	Type        string
	Description string
	CodePaths   []string
	Acceptance  []string
	Tests       domain.WUTests
}

// CreateWUOutput contains the result of creating a WU.
type CreateWUOutput struct {
	WU       *domain.WU
	Warnings []string
}

// CreateWU is the use case for adding a WU to the backlog.
//
// The new WU has no events: it stays untracked until it is claimed, so the
// ready status in its document is authoritative.
type CreateWU struct {
	deps lifecycleDeps
}

// NewCreateWU creates a new CreateWU use case.
func NewCreateWU(git domain.Git, config *domain.Config, clock domain.Clock, logger domain.Logger, repoRoot string) *CreateWU {
	return &CreateWU{deps: lifecycleDeps{git: git, config: config, clock: clock, logger: logger, repoRoot: repoRoot}}
}

// Execute creates the document, adds the Ready bullet and commits on main.
func (uc *CreateWU) Execute(_ context.Context, in CreateWUInput) (*CreateWUOutput, error) {
	d := uc.deps
	layout := shared.NewLayout(d.repoRoot, d.config.Directories)
	wus := wustore.New(layout.WUDir())

	if err := d.ensureMainCheckout(); err != nil {
		return nil, err
	}

	id := domain.NormalizeWUID(in.ID)
	if id == "" {
		next, err := nextWUID(wus, layout, d.clock)
		if err != nil {
			return nil, err
		}
		id = next
	} else if _, err := domain.ParseWUNumber(id); err != nil {
		return nil, domain.WrapError(domain.CodeValidation, err, "invalid id")
	}
	if _, err := wus.Get(id); err == nil {
		return nil, domain.NewError(domain.CodeValidation, "%s already exists at %s", id, wus.Path(id))
	}

	typ := strings.TrimSpace(in.Type)
	if typ == "" {
		typ = domain.WUTypeFeature
	}
	wu := &domain.WU{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Lane:        strings.TrimSpace(in.Lane),
		Type:        typ,
		Status:      domain.StatusReady,
		Description: in.Description,
		CodePaths:   in.CodePaths,
		Acceptance:  in.Acceptance,
		Tests:       in.Tests,
	}
	if err := wu.Validate(); err != nil {
		return nil, err
	}

	// Shape checks only: nothing exists on disk yet.
	result := preflight.NewValidator(nil, d.config.Preflight).Validate(preflight.Input{
		WU:    wu,
		Phase: preflight.PhaseStructural,
	})
	if err := result.Err(id); err != nil {
		return nil, err
	}

	writer := shared.NewMetadataWriter(d.git.At(d.repoRoot), layout, d.config.Sections, d.clock, d.log())
	if err := writer.Apply(shared.Change{
		WU:        wu,
		WUID:      id,
		To:        domain.StatusReady,
		AddBullet: true,
		Message:   lifecycleMessage(id, "create", wu.Title),
	}); err != nil {
		return nil, fmt.Errorf("create %s: %w", id, err)
	}
	d.log().Info(id, "lifecycle", fmt.Sprintf("created in lane %q", wu.Lane))

	out := &CreateWUOutput{WU: wu}
	out.Warnings = append(out.Warnings, d.publish(id)...)
	return out, nil
}

// nextWUID returns one past the highest number used by a document or an event.
func nextWUID(wus *wustore.Store, layout shared.Layout, clock domain.Clock) (string, error) {
	docs, err := wus.List()
	if err != nil {
		return "", err
	}
	store, err := eventstore.Load(layout.EventLogPath(), clock)
	if err != nil {
		return "", err
	}

	highest := 0
	consider := func(id string) {
		if n, err := domain.ParseWUNumber(id); err == nil && n > highest {
			highest = n
		}
	}
	for _, wu := range docs {
		consider(wu.ID)
	}
	for _, id := range store.WUIDs() {
		consider(id)
	}
	return fmt.Sprintf("WU-%d", highest+1), nil
}
