package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/eventstore"
	"github.com/lumenflow/lumenflow/internal/infra/fsutil"
	"github.com/lumenflow/lumenflow/internal/infra/invariants"
	"github.com/lumenflow/lumenflow/internal/infra/markdown"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/usecase/preflight"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// PipelineError is a completion failure. NextStep is the single command to
// run next.
type PipelineError struct {
	Err      error
	Rollback *shared.RollbackResult
	FailedAt domain.PipelineState
	NextStep string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("wu done failed while %s: %v\nNEXT STEP: %s", e.FailedAt, e.Err, e.NextStep)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// CompleteWUInput contains the parameters for completing a WU.
type CompleteWUInput struct {
	WUID      string // WU to complete
	SkipGates bool   // Skip the configured gate commands (invariants still run)
}

// CompleteWUOutput contains the result of completing a WU.
// Fields are ordered to minimize memory padding.
type CompleteWUOutput struct {
	WU           *domain.WU
	Gates        *shared.GateReport
	Branch       string
	WorktreePath string
	Warnings     []string
	Resumed      bool // The lane branch was already merged; only the remaining steps ran
	AlreadyDone  bool // Nothing left to do
	Converged    bool // Main's event log already held the complete event
	Pushed       bool
}

// CompleteWU is the use case behind `wu done`.
//
// It drives the WU through validating, committing, merging, pushing and
// cleaningUp. A failure while committing, merging or pushing is rolled back
// to the scope of the state reached; the worktree is always kept so the same
// command can be retried.
//
// Fields are ordered to minimize memory padding.
type CompleteWU struct {
	worktrees domain.WorktreeManager
	git       domain.Git
	refs      domain.RefReader
	executor  domain.CommandExecutor
	clock     domain.Clock
	logger    domain.Logger
	stdout    io.Writer
	engine    *invariants.Engine
	config    *domain.Config
	repoRoot  string
}

// NewCompleteWU creates a new CompleteWU use case.
func NewCompleteWU(
	worktrees domain.WorktreeManager,
	git domain.Git,
	refs domain.RefReader,
	executor domain.CommandExecutor,
	engine *invariants.Engine,
	config *domain.Config,
	clock domain.Clock,
	logger domain.Logger,
	stdout io.Writer,
	repoRoot string,
) *CompleteWU {
	return &CompleteWU{
		worktrees: worktrees,
		git:       git,
		refs:      refs,
		executor:  executor,
		engine:    engine,
		config:    config,
		clock:     clock,
		logger:    logger,
		stdout:    stdout,
		repoRoot:  repoRoot,
	}
}

// completion is the state of one pipeline run.
type completion struct {
	uc           *CompleteWU
	out          *CompleteWUOutput
	snapshot     *shared.Snapshot
	mainGit      domain.Git
	branchGit    domain.Git
	id           string
	branch       string
	worktreePath string
	preCommitSHA string
	state        domain.PipelineState
	main         shared.Layout
	worktree     shared.Layout
}

func (c *completion) advance(to domain.PipelineState) error {
	if !c.state.CanAdvanceTo(to) {
		return domain.NewError(domain.CodeState, "%s: cannot move from %s to %s", c.id, c.state, to)
	}
	c.uc.logger.Info(c.id, "pipeline", fmt.Sprintf("%s -> %s", c.state, to))
	c.state = to
	return nil
}

func (c *completion) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.uc.logger.Warn(c.id, "pipeline", msg)
	c.out.Warnings = append(c.out.Warnings, msg)
}

// fail rolls back according to the current state and wraps err.
func (c *completion) fail(err error, nextStep string) error {
	c.uc.logger.Error(c.id, "pipeline", fmt.Sprintf("failed while %s: %v", c.state, err))
	pe := &PipelineError{FailedAt: c.state, Err: err, NextStep: nextStep}
	if nextStep == "" {
		pe.NextStep = domain.DoneCommand(c.id)
	}
	if c.state == domain.PipelineValidating {
		return pe
	}

	recovery := shared.NewRecoveryManager(c.uc.logger, c.uc.config.LegacyRollback)
	pe.Rollback = recovery.RollbackFromPipelineState(shared.RollbackInput{
		FailedAt:     c.state,
		Snapshot:     c.snapshot,
		BranchGit:    c.branchGit,
		MainGit:      c.mainGit,
		PreCommitSHA: c.preCommitSHA,
		WorktreePath: c.worktreePath,
		WUID:         c.id,
	})
	return pe
}

// Execute completes a WU.
// Preconditions:
//   - The main checkout is on the main branch and clean
//   - The WU is in_progress and its lane worktree is clean
//
// Processing:
//  1. validating: preflight (reality phase), empty-merge check, invariants, gates
//  2. committing: snapshot, merge event logs, write metadata, commit on the lane branch
//  3. merging: post-mutation validation, merge the lane branch into main
//  4. pushing: push main
//  5. cleaningUp: remove the worktree and delete the lane branch
//
// If the lane branch is already merged and main shows the WU complete, the
// merge is skipped and only the unfinished steps run.
func (uc *CompleteWU) Execute(ctx context.Context, in CompleteWUInput) (*CompleteWUOutput, error) {
	cfg := uc.config
	c := &completion{
		uc:      uc,
		out:     &CompleteWUOutput{},
		id:      domain.NormalizeWUID(in.WUID),
		state:   domain.PipelineValidating,
		mainGit: uc.git.At(uc.repoRoot),
		main:    shared.NewLayout(uc.repoRoot, cfg.Directories),
	}
	uc.logger.Info(c.id, "pipeline", "wu done started")

	mainWU, err := shared.GetWU(wustore.New(c.main.WUDir()), c.id)
	if err != nil {
		return nil, c.fail(err, fmt.Sprintf("%s wu status --id %s", domain.CLIName, c.id))
	}
	c.branch = domain.LaneBranchName(mainWU.Lane, c.id)
	c.out.Branch = c.branch
	c.out.WU = mainWU

	if err := c.checkMainCheckout(); err != nil {
		return nil, err
	}

	exists, err := c.mainGit.BranchExists(c.branch)
	if err != nil {
		return nil, c.fail(err, "")
	}
	if !exists {
		if mainWU.Status == domain.StatusDone {
			uc.logger.Info(c.id, "pipeline", "already complete on main, nothing to do")
			c.out.AlreadyDone = true
			return c.out, nil
		}
		return nil, c.fail(fmt.Errorf("lane branch %s not found", c.branch),
			fmt.Sprintf("%s wu claim --id %s", domain.CLIName, c.id))
	}

	merged, err := c.isBranchAlreadyMerged(mainWU)
	if err != nil {
		return nil, c.fail(err, "")
	}
	if merged {
		return c.resume(mainWU)
	}

	wu, err := c.validate(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := c.commit(wu); err != nil {
		return nil, err
	}
	if err := c.merge(); err != nil {
		return nil, err
	}
	if err := c.push(); err != nil {
		return nil, err
	}
	c.cleanup()

	c.out.WU = wu
	return c.out, nil
}

func (c *completion) checkMainCheckout() error {
	mainBranch := c.uc.config.Git.MainBranch
	current, err := c.mainGit.CurrentBranch()
	if err != nil {
		return c.fail(err, "")
	}
	if current != mainBranch {
		return c.fail(fmt.Errorf("%w: main checkout is on %s", domain.ErrNotOnMainBranch, current),
			fmt.Sprintf("git -C %s checkout %s", c.uc.repoRoot, mainBranch))
	}
	dirty, err := c.mainGit.HasUncommittedChanges()
	if err != nil {
		return c.fail(err, "")
	}
	if dirty {
		return c.fail(fmt.Errorf("%w in main checkout %s", domain.ErrUncommittedChanges, c.uc.repoRoot),
			fmt.Sprintf("git -C %s status", c.uc.repoRoot))
	}
	return nil
}

// isBranchAlreadyMerged reports whether the lane branch tip is already part
// of main (tip == merge-base) and main records the completion. A freshly
// claimed branch without commits also has tip == merge-base, so the
// completion evidence is required as well.
func (c *completion) isBranchAlreadyMerged(mainWU *domain.WU) (bool, error) {
	mainBranch := c.uc.config.Git.MainBranch
	tip, err := c.mainGit.CommitHash(c.branch)
	if err != nil {
		return false, err
	}
	base, err := c.mainGit.MergeBase(c.branch, mainBranch)
	if err != nil {
		return false, err
	}
	if tip != base {
		return false, nil
	}
	if mainWU.Status == domain.StatusDone || fsutil.Exists(c.main.StampPath(c.id)) {
		return true, nil
	}
	store, err := eventstore.Load(c.main.EventLogPath(), c.uc.clock)
	if err != nil {
		return false, err
	}
	return store.HasEvent(c.id, domain.EventComplete), nil
}

// validate runs every read-only check. Nothing has been written yet, so a
// failure needs no rollback.
func (c *completion) validate(ctx context.Context, in CompleteWUInput) (*domain.WU, error) {
	uc := c.uc
	cfg := uc.config

	path, err := uc.worktrees.Resolve(c.branch)
	if err != nil {
		return nil, c.fail(fmt.Errorf("resolve worktree for %s: %w", c.branch, err), "git worktree list")
	}
	c.worktreePath = path
	c.out.WorktreePath = path
	c.branchGit = uc.git.At(path)
	c.worktree = shared.NewLayout(path, cfg.Directories)

	dirty, err := c.branchGit.HasUncommittedChanges()
	if err != nil {
		return nil, c.fail(err, "")
	}
	if dirty {
		return nil, c.fail(fmt.Errorf("%w in worktree %s", domain.ErrUncommittedChanges, path),
			fmt.Sprintf("git -C %s status", path))
	}

	wus := wustore.New(c.worktree.WUDir())
	wu, err := shared.GetWU(wus, c.id)
	if err != nil {
		return nil, c.fail(err, "")
	}
	if !wu.Status.CanTransitionTo(domain.StatusDone) {
		return nil, c.fail(fmt.Errorf("%w: %s is %s", domain.ErrInvalidTransition, c.id, wu.Status),
			fmt.Sprintf("%s wu status --id %s", domain.CLIName, c.id))
	}

	base, err := c.branchGit.MergeBase(cfg.Git.MainBranch, c.branch)
	if err != nil {
		return nil, c.fail(err, "")
	}
	validator := preflight.NewValidator(uc.git, cfg.Preflight)
	result := validator.Validate(preflight.Input{
		WU:      wu,
		RootDir: path,
		BaseRef: base,
		HeadRef: c.branch,
		Phase:   preflight.PhaseReality,
	})
	for _, w := range result.Warnings {
		c.warn("%s", w.String())
	}
	if err := result.Err(c.id); err != nil {
		return nil, c.fail(err, "")
	}

	if err := preflight.CheckEmptyMerge(c.branchGit, c.branch, cfg.Git.MainBranch, wu); err != nil {
		return nil, c.fail(err, "")
	}

	gates := shared.NewGateRunner(uc.executor, uc.engine, uc.logger)
	report, err := gates.Run(ctx, shared.GateInput{
		WUs:            wus,
		Out:            uc.stdout,
		Dir:            path,
		InvariantsPath: c.worktree.InvariantsPath(),
		WUID:           c.id,
		Commands:       cfg.Gates.Commands,
		SkipCommands:   in.SkipGates,
	})
	c.out.Gates = report
	if err != nil {
		return nil, c.fail(err, "")
	}
	return wu, nil
}

// mainEventLog returns main's event log as of the freshest reference
// available: the remote-tracking branch, then the local main branch, then
// the main checkout on disk.
func (c *completion) mainEventLog() (*eventstore.Store, error) {
	cfg := c.uc.config
	rel := c.main.Rel(c.main.EventLogPath())

	var refs []string
	if cfg.Git.PushEnabled() {
		refs = append(refs, cfg.Git.Remote+"/"+cfg.Git.MainBranch)
	}
	refs = append(refs, cfg.Git.MainBranch)

	if c.uc.refs != nil {
		for _, ref := range refs {
			data, err := c.uc.refs.ReadFile(ref, rel)
			if err != nil {
				c.uc.logger.Debug(c.id, "pipeline", fmt.Sprintf("event log at %s unavailable: %v", ref, err))
				continue
			}
			store, err := eventstore.Parse(data, c.uc.clock)
			if err != nil {
				return nil, fmt.Errorf("%s at %s: %w", rel, ref, err)
			}
			return store, nil
		}
	}
	return eventstore.Load(c.main.EventLogPath(), c.uc.clock)
}

func (c *completion) commit(wu *domain.WU) error {
	if err := c.advance(domain.PipelineCommitting); err != nil {
		return err
	}
	cfg := c.uc.config

	sha, err := c.branchGit.CommitHash("HEAD")
	if err != nil {
		return c.fail(err, "")
	}
	c.preCommitSHA = sha

	paths := c.worktree.MetadataPaths(c.id)
	snapshot, err := shared.CaptureSnapshot(paths...)
	if err != nil {
		return c.fail(err, "")
	}
	c.snapshot = snapshot

	if cfg.Git.PushEnabled() {
		if err := c.mainGit.Fetch(cfg.Git.Remote, cfg.Git.MainBranch); err != nil {
			c.warn("fetch %s/%s failed, using local main: %v", cfg.Git.Remote, cfg.Git.MainBranch, err)
		}
	}
	mainStore, err := c.mainEventLog()
	if err != nil {
		return c.fail(err, "")
	}
	worktreeStore, err := eventstore.Load(c.worktree.EventLogPath(), c.uc.clock)
	if err != nil {
		return c.fail(err, "")
	}

	converged, err := c.writeMetadata(c.worktree, wu, worktreeStore, mainStore)
	if err != nil {
		return c.fail(err, "")
	}
	c.out.Converged = converged

	rels := make([]string, len(paths))
	for i, p := range paths {
		rels[i] = c.worktree.Rel(p)
	}
	if err := c.branchGit.Add(rels...); err != nil {
		return c.fail(err, "")
	}
	if err := c.branchGit.Commit(completionMessage(wu)); err != nil {
		if _, resetErr := c.branchGit.Raw(append([]string{"reset", "-q", "--"}, rels...)...); resetErr != nil {
			c.uc.logger.Warn(c.id, "pipeline", fmt.Sprintf("unstage after failed commit: %v", resetErr))
		}
		return c.fail(err, "")
	}
	return nil
}

func completionMessage(wu *domain.WU) string {
	return lifecycleMessage(wu.ID, "done", wu.Title)
}

// writeMetadata writes the WU document, status.md, backlog.md, the event log
// and the stamp under layout. It reports whether the event logs had already
// converged, in which case the event log is left untouched.
func (c *completion) writeMetadata(layout shared.Layout, wu *domain.WU, local, main *eventstore.Store) (bool, error) {
	cfg := c.uc.config
	now := c.uc.clock.Now()

	update, err := eventstore.ComputeCompletionUpdate(local, main, c.id)
	if err != nil {
		return false, err
	}
	converged := update == nil
	rendered := update
	if converged {
		c.uc.logger.Info(c.id, "pipeline", "event logs already converged, skipping event write")
		if rendered, err = eventstore.MergeStateStores(local, main); err != nil {
			return false, err
		}
	}

	previous := wu.Status
	if wu.Status != domain.StatusDone || wu.Validate() != nil {
		wu.MarkDone(now)
	}
	wus := wustore.New(layout.WUDir())
	if err := wus.Save(wu); err != nil {
		return false, err
	}

	if err := c.moveToCompleted(layout, wu, previous); err != nil {
		return false, err
	}

	docs, err := wus.List()
	if err != nil {
		return false, err
	}
	backlog, err := shared.RenderBacklog(layout, cfg.Sections, rendered, docs)
	if err != nil {
		return false, err
	}
	if err := fsutil.WriteFileAtomic(layout.BacklogPath(), []byte(backlog)); err != nil {
		return false, err
	}

	if !converged {
		if err := update.Save(layout.EventLogPath()); err != nil {
			return false, err
		}
	}

	stamp := fmt.Sprintf("WU %s completed at %s\n", c.id, now.UTC().Format(time.RFC3339))
	if err := fsutil.WriteFileAtomic(layout.StampPath(c.id), []byte(stamp)); err != nil {
		return false, err
	}
	return converged, nil
}

// moveToCompleted moves the WU bullet in status.md unless it is already
// listed under the completed heading.
func (c *completion) moveToCompleted(layout shared.Layout, wu *domain.WU, previous domain.Status) error {
	sections := c.uc.config.Sections
	doc, err := markdown.ReadFile(layout.StatusPath())
	if err != nil {
		return err
	}
	if heading, ok := doc.SectionOf(wu.ID); ok && strings.EqualFold(heading, sections.Completed) {
		return nil
	}
	if previous == domain.StatusDone {
		previous = domain.StatusInProgress
	}
	return shared.MoveStatusBullet(layout, sections, wu, previous, domain.StatusDone)
}

func (c *completion) merge() error {
	if err := c.advance(domain.PipelineMerging); err != nil {
		return err
	}
	cfg := c.uc.config

	post := shared.ValidatePostMutation(c.worktree.WUPath(c.id), c.worktree.StampPath(c.id))
	if !post.Valid {
		return c.fail(domain.NewError(domain.CodeValidation, "post-mutation validation failed: %s",
			strings.Join(post.Errors, "; ")), "")
	}

	if cfg.Git.PushEnabled() {
		remoteMain := cfg.Git.Remote + "/" + cfg.Git.MainBranch
		if err := c.mainGit.Merge(remoteMain, domain.MergeOptions{FastForwardOnly: true}); err != nil {
			c.warn("could not fast-forward %s to %s: %v", cfg.Git.MainBranch, remoteMain, err)
		}
	}

	opts := domain.MergeOptions{FastForwardOnly: true}
	if cfg.Git.MergeStrategy == domain.MergeNoFastForward {
		opts = domain.MergeOptions{
			NoFastForward: true,
			Message:       fmt.Sprintf("Merge %s (%s)", c.branch, c.id),
		}
	}
	if err := c.mainGit.Merge(c.branch, opts); err != nil {
		if _, abortErr := c.mainGit.Raw("merge", "--abort"); abortErr != nil {
			c.uc.logger.Debug(c.id, "pipeline", fmt.Sprintf("merge --abort: %v", abortErr))
		}
		return c.fail(fmt.Errorf("merge %s into %s: %w", c.branch, cfg.Git.MainBranch, err),
			fmt.Sprintf("git -C %s rebase %s && %s", c.worktreePath, cfg.Git.MainBranch, domain.DoneCommand(c.id)))
	}
	return nil
}

func (c *completion) push() error {
	if err := c.advance(domain.PipelinePushing); err != nil {
		return err
	}
	cfg := c.uc.config
	if !cfg.Git.PushEnabled() {
		c.uc.logger.Info(c.id, "pipeline", "push disabled")
		return nil
	}
	if err := c.mainGit.Push(cfg.Git.Remote, cfg.Git.MainBranch); err != nil {
		return c.fail(fmt.Errorf("push %s to %s failed, worktree preserved for recovery: %w",
			cfg.Git.MainBranch, cfg.Git.Remote, err), "")
	}
	c.out.Pushed = true
	return nil
}

// cleanup removes the worktree and the lane branch. Failures only warn: the
// WU is already complete on main.
func (c *completion) cleanup() {
	if err := c.advance(domain.PipelineCleaningUp); err != nil {
		c.warn("%v", err)
		return
	}
	cfg := c.uc.config

	if c.worktreePath == "" {
		if path, err := c.uc.worktrees.Resolve(c.branch); err == nil {
			c.worktreePath = path
			c.out.WorktreePath = path
		}
	}
	if c.worktreePath != "" {
		if err := c.mainGit.WorktreeRemove(c.worktreePath, false); err != nil {
			c.uc.logger.Warn(c.id, "pipeline", fmt.Sprintf("worktree remove failed: %v", err))
			recovery := shared.NewRecoveryManager(c.uc.logger, false)
			res := recovery.RollbackFromPipelineState(shared.RollbackInput{
				FailedAt:     domain.PipelineCleaningUp,
				MainGit:      c.mainGit,
				WorktreePath: c.worktreePath,
				WUID:         c.id,
			})
			if !res.WorktreeRemoved {
				c.warn("worktree %s was not removed: %v", c.worktreePath, res.Err())
			}
		}
	}

	if err := c.mainGit.DeleteBranch(c.branch, false); err != nil {
		ref := cfg.Git.MainBranch
		if cfg.Git.PushEnabled() {
			ref = cfg.Git.Remote + "/" + cfg.Git.MainBranch
		}
		if c.branchContainedIn(ref) {
			if forceErr := c.mainGit.DeleteBranch(c.branch, true); forceErr != nil {
				c.warn("delete branch %s: %v", c.branch, forceErr)
			}
		} else {
			c.warn("branch %s kept: not contained in %s: %v", c.branch, ref, err)
		}
	}

	if err := c.advance(domain.PipelineDone); err != nil {
		c.warn("%v", err)
	}
}

func (c *completion) branchContainedIn(ref string) bool {
	tip, err := c.mainGit.CommitHash(c.branch)
	if err != nil {
		return false
	}
	base, err := c.mainGit.MergeBase(c.branch, ref)
	return err == nil && base == tip
}

// resume runs the steps left after a merge that already landed on main.
func (c *completion) resume(mainWU *domain.WU) (*CompleteWUOutput, error) {
	c.out.Resumed = true
	c.uc.logger.Info(c.id, "pipeline", "lane branch already merged, resuming")
	// The merge step already happened; jump straight to the steps after it.
	c.state = domain.PipelineMerging

	post := shared.ValidatePostMutation(c.main.WUPath(c.id), c.main.StampPath(c.id))
	if !post.Valid {
		c.uc.logger.Info(c.id, "pipeline", "completing metadata on main: "+strings.Join(post.Errors, "; "))
		if err := c.repairMainMetadata(mainWU); err != nil {
			return nil, err
		}
	}

	if err := c.integrateRemoteMain(mainWU); err != nil {
		return nil, err
	}
	if err := c.push(); err != nil {
		return nil, err
	}
	c.cleanup()
	return c.out, nil
}

// integrateRemoteMain brings main up to date with the remote main before a
// resumed push. A push that lost a race left main behind the remote, and
// pushing again unchanged would be rejected the same way.
func (c *completion) integrateRemoteMain(mainWU *domain.WU) error {
	cfg := c.uc.config
	if !cfg.Git.PushEnabled() {
		return nil
	}
	mainBranch := cfg.Git.MainBranch
	remoteMain := cfg.Git.Remote + "/" + mainBranch

	if err := c.mainGit.Fetch(cfg.Git.Remote, mainBranch); err != nil {
		return c.fail(fmt.Errorf("fetch %s: %w", remoteMain, err), "")
	}
	remoteTip, err := c.mainGit.CommitHash(remoteMain)
	if err != nil {
		return c.fail(err, "")
	}
	localTip, err := c.mainGit.CommitHash(mainBranch)
	if err != nil {
		return c.fail(err, "")
	}
	base, err := c.mainGit.MergeBase(mainBranch, remoteMain)
	if err != nil {
		return c.fail(err, "")
	}

	switch base {
	case remoteTip:
		return nil
	case localTip:
		if err := c.mainGit.Merge(remoteMain, domain.MergeOptions{FastForwardOnly: true}); err != nil {
			return c.fail(fmt.Errorf("fast-forward %s to %s: %w", mainBranch, remoteMain, err), "")
		}
		c.uc.logger.Info(c.id, "pipeline", fmt.Sprintf("fast-forwarded %s to %s", mainBranch, remoteMain))
		return nil
	}

	msg := fmt.Sprintf("Merge %s into %s (%s)", remoteMain, mainBranch, c.id)
	if err := c.mainGit.Merge(remoteMain, domain.MergeOptions{Message: msg}); err != nil {
		if resolveErr := c.resolveMetadataConflicts(mainWU, msg); resolveErr != nil {
			if _, abortErr := c.mainGit.Raw("merge", "--abort"); abortErr != nil {
				c.uc.logger.Debug(c.id, "pipeline", fmt.Sprintf("merge --abort: %v", abortErr))
			}
			return c.fail(errors.Join(fmt.Errorf("merge %s into %s: %w", remoteMain, mainBranch, err), resolveErr),
				fmt.Sprintf("git -C %s merge %s && %s", c.uc.repoRoot, remoteMain, domain.DoneCommand(c.id)))
		}
	}
	c.uc.logger.Info(c.id, "pipeline", fmt.Sprintf("merged %s into %s", remoteMain, mainBranch))
	return nil
}

// resolveMetadataConflicts finishes a stopped merge of the remote main when
// only lifecycle metadata conflicts. A conflict in any other file is
// returned as an error.
func (c *completion) resolveMetadataConflicts(mainWU *domain.WU, msg string) error {
	out, err := c.mainGit.Raw("diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return err
	}
	conflicted := strings.Fields(out)
	if len(conflicted) == 0 {
		return errors.New("merge stopped without conflicting files")
	}

	eventsRel := c.main.Rel(c.main.EventLogPath())
	statusRel := c.main.Rel(c.main.StatusPath())
	backlogRel := c.main.Rel(c.main.BacklogPath())
	ours := map[string]bool{
		c.main.Rel(c.main.WUPath(c.id)):    true,
		c.main.Rel(c.main.StampPath(c.id)): true,
	}
	for _, rel := range conflicted {
		if rel != eventsRel && rel != statusRel && rel != backlogRel && !ours[rel] {
			return domain.NewError(domain.CodeGit, "merge conflict in %s", rel)
		}
	}

	for _, rel := range conflicted {
		switch {
		case rel == eventsRel:
			if err := c.unionConflictedEventLog(rel); err != nil {
				return err
			}
		case rel == statusRel:
			if _, err := c.mainGit.Raw("checkout", "--theirs", "--", rel); err != nil {
				return err
			}
			if err := c.moveToCompleted(c.main, mainWU, domain.StatusInProgress); err != nil {
				return err
			}
		case ours[rel]:
			if _, err := c.mainGit.Raw("checkout", "--ours", "--", rel); err != nil {
				return err
			}
		}
	}

	// The backlog is derived from the merged log, so it is rewritten whether
	// or not git could merge it.
	store, err := eventstore.Load(c.main.EventLogPath(), c.uc.clock)
	if err != nil {
		return err
	}
	docs, err := wustore.New(c.main.WUDir()).List()
	if err != nil {
		return err
	}
	backlog, err := shared.RenderBacklog(c.main, c.uc.config.Sections, store, docs)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(c.main.BacklogPath(), []byte(backlog)); err != nil {
		return err
	}

	if err := c.mainGit.Add(append(conflicted, backlogRel)...); err != nil {
		return err
	}
	c.uc.logger.Info(c.id, "pipeline", "resolved metadata conflicts: "+strings.Join(conflicted, ", "))
	return c.mainGit.Commit(msg)
}

// unionConflictedEventLog writes the union of both merge sides of the event
// log at rel.
func (c *completion) unionConflictedEventLog(rel string) error {
	sides := make([]*eventstore.Store, 2)
	for i, stage := range []string{":2:", ":3:"} {
		data, err := c.mainGit.Raw("show", stage+rel)
		if err != nil {
			return fmt.Errorf("read %s%s: %w", stage, rel, err)
		}
		store, err := eventstore.Parse([]byte(data), c.uc.clock)
		if err != nil {
			return fmt.Errorf("%s%s: %w", stage, rel, err)
		}
		sides[i] = store
	}
	merged, err := eventstore.MergeStateStores(sides[0], sides[1])
	if err != nil {
		return err
	}
	return merged.Save(c.main.EventLogPath())
}

func (c *completion) repairMainMetadata(mainWU *domain.WU) error {
	paths := c.main.MetadataPaths(c.id)
	snapshot, err := shared.CaptureSnapshot(paths...)
	if err != nil {
		return c.fail(err, "")
	}
	c.snapshot = snapshot

	store, err := eventstore.Load(c.main.EventLogPath(), c.uc.clock)
	if err != nil {
		return c.fail(err, "")
	}
	if _, err := c.writeMetadata(c.main, mainWU, store, store); err != nil {
		return c.fail(err, "")
	}

	rels := make([]string, len(paths))
	for i, p := range paths {
		rels[i] = c.main.Rel(p)
	}
	if err := c.mainGit.Add(rels...); err != nil {
		return c.fail(err, "")
	}
	if err := c.mainGit.Commit(completionMessage(mainWU)); err != nil {
		return c.fail(errors.Join(errors.New("commit repaired metadata on main"), err), "")
	}
	// Committed on main: a later push failure must not restore the pre-image.
	c.snapshot = nil
	c.out.WU = mainWU
	return nil
}
