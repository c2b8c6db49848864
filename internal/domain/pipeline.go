package domain

// PipelineState is a step of the completion pipeline.
// Each state is only reachable from its predecessor.
type PipelineState string

const (
	PipelineValidating PipelineState = "validating"
	PipelineCommitting PipelineState = "committing"
	PipelineMerging    PipelineState = "merging"
	PipelinePushing    PipelineState = "pushing"
	PipelineCleaningUp PipelineState = "cleaningUp"
	PipelineDone       PipelineState = "done"
)

// PipelineStates returns the states in execution order.
func PipelineStates() []PipelineState {
	return []PipelineState{
		PipelineValidating,
		PipelineCommitting,
		PipelineMerging,
		PipelinePushing,
		PipelineCleaningUp,
		PipelineDone,
	}
}

// Index returns the position of the state in execution order, or -1.
func (s PipelineState) Index() int {
	for i, st := range PipelineStates() {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the successor state. PipelineDone has no successor.
func (s PipelineState) Next() (PipelineState, bool) {
	states := PipelineStates()
	i := s.Index()
	if i < 0 || i+1 >= len(states) {
		return "", false
	}
	return states[i+1], true
}

// CanAdvanceTo returns true if target immediately follows s.
func (s PipelineState) CanAdvanceTo(target PipelineState) bool {
	next, ok := s.Next()
	return ok && next == target
}

// RollbackScope lists the recovery actions needed after a failure.
type RollbackScope struct {
	SnapshotRestore bool `json:"snapshotRestore"`
	BranchRollback  bool `json:"branchRollback"`
	WorktreeCleanup bool `json:"worktreeCleanup"`
}

// IsEmpty returns true if no recovery action is needed.
func (r RollbackScope) IsEmpty() bool {
	return !r.SnapshotRestore && !r.BranchRollback && !r.WorktreeCleanup
}

// Covers returns true if r includes every action of other.
func (r RollbackScope) Covers(other RollbackScope) bool {
	return (r.SnapshotRestore || !other.SnapshotRestore) &&
		(r.BranchRollback || !other.BranchRollback) &&
		(r.WorktreeCleanup || !other.WorktreeCleanup)
}

// RollbackScopeFor maps the last reached pipeline state to its rollback scope.
//
//	validating  nothing written
//	committing  metadata files written, lane branch untouched
//	merging     completing commit exists on the lane branch
//	pushing     same as merging; main is not yet published
//	cleaningUp  everything durable, only the worktree is left over
func RollbackScopeFor(failedAt PipelineState) RollbackScope {
	switch failedAt {
	case PipelineCommitting:
		return RollbackScope{SnapshotRestore: true}
	case PipelineMerging, PipelinePushing:
		return RollbackScope{SnapshotRestore: true, BranchRollback: true}
	case PipelineCleaningUp:
		return RollbackScope{WorktreeCleanup: true}
	default:
		return RollbackScope{}
	}
}
