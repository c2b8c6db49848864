package usecase

import (
	"context"
	"io"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/invariants"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// RunGatesInput contains the parameters for running the gates.
type RunGatesInput struct {
	WUID         string // Optional; runs in the WU's lane worktree when set
	SkipCommands bool   // Run the invariants only
}

// RunGatesOutput contains the gate report.
type RunGatesOutput struct {
	Report *shared.GateReport
	Dir    string
}

// RunGates is the use case for running the quality gates outside wu done.
type RunGates struct {
	deps     lifecycleDeps
	executor domain.CommandExecutor
	engine   *invariants.Engine
	stdout   io.Writer
}

// NewRunGates creates a new RunGates use case.
func NewRunGates(
	worktrees domain.WorktreeManager,
	executor domain.CommandExecutor,
	engine *invariants.Engine,
	config *domain.Config,
	logger domain.Logger,
	stdout io.Writer,
	repoRoot string,
) *RunGates {
	return &RunGates{
		deps:     lifecycleDeps{worktrees: worktrees, config: config, logger: logger, repoRoot: repoRoot},
		executor: executor,
		engine:   engine,
		stdout:   stdout,
	}
}

// Execute runs the invariants and the gate commands. The report is returned
// together with the first failure.
func (uc *RunGates) Execute(ctx context.Context, in RunGatesInput) (*RunGatesOutput, error) {
	d := uc.deps
	dir := d.repoRoot
	var id string
	if in.WUID != "" {
		wu, err := shared.GetWU(wustore.New(shared.NewLayout(d.repoRoot, d.config.Directories).WUDir()), in.WUID)
		if err != nil {
			return nil, err
		}
		id = wu.ID
		dir, _ = d.checkoutFor(wu)
	}

	layout := shared.NewLayout(dir, d.config.Directories)
	report, err := shared.NewGateRunner(uc.executor, uc.engine, d.log()).Run(ctx, shared.GateInput{
		WUs:            wustore.New(layout.WUDir()),
		Out:            uc.stdout,
		Dir:            dir,
		InvariantsPath: layout.InvariantsPath(),
		WUID:           id,
		Commands:       d.config.Gates.Commands,
		SkipCommands:   in.SkipCommands,
	})
	return &RunGatesOutput{Report: report, Dir: dir}, err
}
