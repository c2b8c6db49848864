package invariants

import (
	"sort"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// Context carries per-run inputs some checkers need.
type Context struct {
	// WUs resolves WU documents for wu-automated-tests.
	WUs domain.WURepository

	// WUID scopes WU-level checks to a single WU. Empty means all active WUs.
	WUID string
}

// Checker evaluates one invariant against the tree rooted at baseDir.
// It returns nil when the invariant holds.
type Checker interface {
	Check(def domain.InvariantDefinition, baseDir string, cctx Context) (*domain.Violation, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(def domain.InvariantDefinition, baseDir string, cctx Context) (*domain.Violation, error)

// Check calls f.
func (f CheckerFunc) Check(def domain.InvariantDefinition, baseDir string, cctx Context) (*domain.Violation, error) {
	return f(def, baseDir, cctx)
}

// Registry maps invariant types to checkers.
type Registry struct {
	checkers map[domain.InvariantType]Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{checkers: make(map[domain.InvariantType]Checker)}
}

// DefaultRegistry returns a registry holding the built-in checkers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.InvariantRequiredFile, CheckerFunc(checkRequiredFile))
	r.Register(domain.InvariantForbiddenFile, CheckerFunc(checkForbiddenFile))
	r.Register(domain.InvariantMutualExclusivity, CheckerFunc(checkMutualExclusivity))
	r.Register(domain.InvariantForbiddenPattern, CheckerFunc(checkForbiddenPattern))
	r.Register(domain.InvariantRequiredPattern, CheckerFunc(checkRequiredPattern))
	r.Register(domain.InvariantForbiddenImport, CheckerFunc(checkForbiddenImport))
	r.Register(domain.InvariantWUAutomatedTests, CheckerFunc(checkWUAutomatedTests))
	return r
}

// Register adds or replaces the checker for typ.
func (r *Registry) Register(typ domain.InvariantType, checker Checker) {
	r.checkers[typ] = checker
}

// Lookup returns the checker for typ.
func (r *Registry) Lookup(typ domain.InvariantType) (Checker, bool) {
	c, ok := r.checkers[typ]
	return c, ok
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []domain.InvariantType {
	types := make([]domain.InvariantType, 0, len(r.checkers))
	for t := range r.checkers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func (r *Registry) snapshot() map[domain.InvariantType]Checker {
	out := make(map[domain.InvariantType]Checker, len(r.checkers))
	for t, c := range r.checkers {
		out[t] = c
	}
	return out
}
