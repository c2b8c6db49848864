package shared

import (
	"errors"
	"fmt"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// RollbackInput describes a failed completion attempt.
// Fields are ordered to minimize memory padding.
type RollbackInput struct {
	Snapshot *Snapshot
	// BranchGit is bound to the checkout holding the lane branch.
	BranchGit domain.Git
	// MainGit is bound to the main checkout.
	MainGit domain.Git
	// FailedAt is the last pipeline state reached.
	FailedAt domain.PipelineState
	// FilesToRestore limits the snapshot restore. Empty restores every captured file.
	FilesToRestore []string
	// PreCommitSHA is the lane branch tip before the completing commit.
	PreCommitSHA string
	WorktreePath string
	WUID         string
}

// RollbackResult reports what a rollback did.
type RollbackResult struct {
	Files           []FileRestore
	Errors          []error
	Scope           domain.RollbackScope
	BranchReset     bool
	WorktreeRemoved bool
	Legacy          bool
}

// Err joins every failure, or returns nil.
func (r *RollbackResult) Err() error {
	return errors.Join(r.Errors...)
}

// RecoveryManager undoes the effects of a failed completion attempt.
// Rollback failures are collected and logged, never returned as a panic or
// a fresh error path, so the caller can still report the original failure.
type RecoveryManager struct {
	logger domain.Logger
	legacy bool
}

// NewRecoveryManager creates a RecoveryManager. legacy selects the
// unconditional restore-and-reset behavior.
func NewRecoveryManager(logger domain.Logger, legacy bool) *RecoveryManager {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &RecoveryManager{logger: logger, legacy: legacy}
}

// RollbackFromPipelineState executes exactly the actions of the scope
// for in.FailedAt.
func (m *RecoveryManager) RollbackFromPipelineState(in RollbackInput) *RollbackResult {
	scope := domain.RollbackScopeFor(in.FailedAt)
	res := &RollbackResult{Scope: scope}
	if m.legacy {
		res.Legacy = true
		res.Scope = domain.RollbackScope{SnapshotRestore: true, BranchRollback: true}
		m.logger.Warn(in.WUID, "recovery", fmt.Sprintf("legacy rollback after failure in %s", in.FailedAt))
	} else {
		m.logger.Info(in.WUID, "recovery", fmt.Sprintf("rollback after failure in %s: %+v", in.FailedAt, scope))
	}

	if res.Scope.BranchRollback {
		m.resetBranch(in, res)
	}
	if res.Scope.SnapshotRestore {
		m.restoreSnapshot(in, res)
	}
	if res.Scope.WorktreeCleanup {
		m.removeWorktree(in, res)
	}
	return res
}

// resetBranch moves the lane branch back to the SHA captured before the
// pipeline committed. Only one process works a lane branch at a time, so
// nothing else can have committed since the capture.
func (m *RecoveryManager) resetBranch(in RollbackInput, res *RollbackResult) {
	if in.BranchGit == nil || in.PreCommitSHA == "" {
		m.logger.Debug(in.WUID, "recovery", "no pre-commit SHA captured, branch reset skipped")
		return
	}
	if err := in.BranchGit.Reset(in.PreCommitSHA, true); err != nil {
		m.logger.Error(in.WUID, "recovery", fmt.Sprintf("reset to %s failed: %v", in.PreCommitSHA, err))
		res.Errors = append(res.Errors, fmt.Errorf("reset lane branch to %s: %w", in.PreCommitSHA, err))
		return
	}
	res.BranchReset = true
	m.logger.Info(in.WUID, "recovery", "lane branch reset to "+in.PreCommitSHA)
}

func (m *RecoveryManager) restoreSnapshot(in RollbackInput, res *RollbackResult) {
	if in.Snapshot == nil {
		m.logger.Debug(in.WUID, "recovery", "no snapshot captured, restore skipped")
		return
	}
	res.Files = in.Snapshot.Restore(in.FilesToRestore)
	for _, f := range res.Files {
		if f.Err != nil {
			m.logger.Error(in.WUID, "recovery", fmt.Sprintf("restore %s failed: %v", f.Path, f.Err))
			res.Errors = append(res.Errors, fmt.Errorf("restore %s: %w", f.Path, f.Err))
			continue
		}
		m.logger.Debug(in.WUID, "recovery", "restored "+f.Path)
	}
}

func (m *RecoveryManager) removeWorktree(in RollbackInput, res *RollbackResult) {
	if in.MainGit == nil || in.WorktreePath == "" {
		return
	}
	if err := in.MainGit.WorktreeRemove(in.WorktreePath, true); err != nil {
		m.logger.Warn(in.WUID, "recovery", fmt.Sprintf("worktree cleanup failed: %v", err))
		res.Errors = append(res.Errors, fmt.Errorf("remove worktree %s: %w", in.WorktreePath, err))
		return
	}
	res.WorktreeRemoved = true
}
