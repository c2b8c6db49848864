package shared

import (
	"context"
	"fmt"
	"io"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/invariants"
)

// GateOutcome is the result of one gate.
type GateOutcome struct {
	Err    error
	Name   string
	Passed bool
}

// GateInput contains the parameters for a gate run.
// Fields are ordered to minimize memory padding.
type GateInput struct {
	WUs            domain.WURepository
	Out            io.Writer
	Dir            string
	InvariantsPath string
	WUID           string
	Commands       []domain.GateCommand
	SkipCommands   bool
}

// GateReport collects every gate that ran, in order.
type GateReport struct {
	Invariants *invariants.Result
	Outcomes   []GateOutcome
}

// Passed reports whether every gate that ran passed.
func (r *GateReport) Passed() bool {
	for _, o := range r.Outcomes {
		if !o.Passed {
			return false
		}
	}
	return true
}

// GateRunner runs the invariant engine followed by the configured gate
// commands. The first failure stops the run.
type GateRunner struct {
	executor domain.CommandExecutor
	engine   *invariants.Engine
	logger   domain.Logger
}

// NewGateRunner creates a GateRunner.
func NewGateRunner(executor domain.CommandExecutor, engine *invariants.Engine, logger domain.Logger) *GateRunner {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &GateRunner{executor: executor, engine: engine, logger: logger}
}

// Run executes the gates. The returned error is the first gate failure.
func (g *GateRunner) Run(ctx context.Context, in GateInput) (*GateReport, error) {
	report := &GateReport{}
	out := in.Out
	if out == nil {
		out = io.Discard
	}

	res, err := g.engine.Run(in.InvariantsPath, in.Dir, invariants.Context{WUs: in.WUs, WUID: in.WUID})
	if err != nil {
		report.Outcomes = append(report.Outcomes, GateOutcome{Name: "invariants", Err: err})
		return report, fmt.Errorf("gate invariants: %w", err)
	}
	report.Invariants = res
	if !res.Success {
		err := domain.NewError(domain.CodeValidation, "invariants failed\n%s", res.Formatted)
		report.Outcomes = append(report.Outcomes, GateOutcome{Name: "invariants", Err: err})
		return report, err
	}
	report.Outcomes = append(report.Outcomes, GateOutcome{Name: "invariants", Passed: true})

	if in.SkipCommands {
		g.logger.Warn(in.WUID, "gates", "gate commands skipped")
		return report, nil
	}

	for _, gate := range in.Commands {
		name := gate.Name
		if name == "" {
			name = gate.Run
		}
		g.logger.Info(in.WUID, "gates", "running "+name)
		cmd := domain.NewShellCommand(gate.Run, in.Dir)
		cmd.Env = domain.GateEnv(in.WUID, in.Dir)
		if err := g.executor.ExecuteWithContext(ctx, cmd, out, out); err != nil {
			g.logger.Error(in.WUID, "gates", fmt.Sprintf("%s failed: %v", name, err))
			report.Outcomes = append(report.Outcomes, GateOutcome{Name: name, Err: err})
			return report, fmt.Errorf("gate %s: %w", name, err)
		}
		report.Outcomes = append(report.Outcomes, GateOutcome{Name: name, Passed: true})
	}
	return report, nil
}
