package invariants

import (
	"fmt"
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// Result is the outcome of a run.
type Result struct {
	Formatted  string
	Violations []domain.Violation
	Success    bool
}

// Engine evaluates invariant definitions using a fixed set of checkers.
type Engine struct {
	checkers map[domain.InvariantType]Checker
	logger   domain.Logger
}

// NewEngine creates an engine from the checkers currently in registry.
func NewEngine(registry *Registry, logger domain.Logger) *Engine {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &Engine{
		checkers: registry.snapshot(),
		logger:   logger,
	}
}

// Check evaluates defs against baseDir. Definitions of unknown type are
// skipped with a warning.
func (e *Engine) Check(defs []domain.InvariantDefinition, baseDir string, cctx Context) ([]domain.Violation, error) {
	var violations []domain.Violation
	for _, def := range defs {
		checker, ok := e.checkers[def.Type]
		if !ok {
			e.logger.Warn(cctx.WUID, "invariants", fmt.Sprintf("unknown invariant type %q for %s, skipping", def.Type, def.ID))
			continue
		}
		v, err := checker.Check(def, baseDir, cctx)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", def.ID, err)
		}
		if v != nil {
			violations = append(violations, *v)
		}
	}
	return violations, nil
}

// Run loads the config at configPath and checks it against baseDir.
// A missing config file passes vacuously.
func (e *Engine) Run(configPath, baseDir string, cctx Context) (*Result, error) {
	defs, found, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if !found {
		e.logger.Debug(cctx.WUID, "invariants", "no invariants config at "+configPath)
		return &Result{Success: true}, nil
	}

	violations, err := e.Check(defs, baseDir, cctx)
	if err != nil {
		return nil, err
	}
	return &Result{
		Success:    len(violations) == 0,
		Violations: violations,
		Formatted:  Format(violations),
	}, nil
}

// Format renders violations as a human-readable report.
func Format(violations []domain.Violation) string {
	if len(violations) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d invariant violation(s):\n", len(violations))
	for _, v := range violations {
		b.WriteString("\n")
		fmt.Fprintf(&b, "[%s] %s", v.ID, v.Type)
		if v.Description != "" {
			fmt.Fprintf(&b, ": %s", v.Description)
		}
		b.WriteString("\n")
		switch v.Type {
		case domain.InvariantRequiredFile:
			fmt.Fprintf(&b, "  missing: %s\n", v.Path)
		case domain.InvariantForbiddenFile:
			fmt.Fprintf(&b, "  present: %s\n", v.Path)
		case domain.InvariantMutualExclusivity:
			fmt.Fprintf(&b, "  all present: %s\n", strings.Join(v.ExistingPaths, ", "))
		case domain.InvariantForbiddenPattern:
			for _, m := range v.Matches {
				fmt.Fprintf(&b, "  %s:%d: %s\n", m.File, m.Line, m.Text)
			}
		case domain.InvariantRequiredPattern:
			b.WriteString("  pattern not found in scope\n")
		case domain.InvariantForbiddenImport:
			for _, imp := range v.Imports {
				fmt.Fprintf(&b, "  %s:%d imports %s\n", imp.File, imp.Line, imp.Module)
			}
		case domain.InvariantWUAutomatedTests:
			fmt.Fprintf(&b, "  no automated tests: %s\n", strings.Join(v.WUIDs, ", "))
		}
		if v.Message != "" {
			fmt.Fprintf(&b, "  %s\n", v.Message)
		}
	}
	return b.String()
}
