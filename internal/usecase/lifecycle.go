// Package usecase contains application use cases.
package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// lifecycleDeps are the collaborators shared by the WU lifecycle commands.
// Fields are ordered to minimize memory padding.
type lifecycleDeps struct {
	worktrees domain.WorktreeManager
	git       domain.Git
	clock     domain.Clock
	logger    domain.Logger
	config    *domain.Config
	repoRoot  string
}

func (d lifecycleDeps) log() domain.Logger {
	if d.logger == nil {
		return domain.NopLogger{}
	}
	return d.logger
}

// ensureMainCheckout checks that the main checkout is on the main branch and
// has no uncommitted changes.
func (d lifecycleDeps) ensureMainCheckout() error {
	mainGit := d.git.At(d.repoRoot)
	current, err := mainGit.CurrentBranch()
	if err != nil {
		return fmt.Errorf("current branch: %w", err)
	}
	if current != d.config.Git.MainBranch {
		return fmt.Errorf("%w: on %s, expected %s", domain.ErrNotOnMainBranch, current, d.config.Git.MainBranch)
	}
	dirty, err := mainGit.HasUncommittedChanges()
	if err != nil {
		return fmt.Errorf("check uncommitted changes: %w", err)
	}
	if dirty {
		return fmt.Errorf("%w in %s", domain.ErrUncommittedChanges, d.repoRoot)
	}
	return nil
}

// checkoutFor returns the lane worktree of wu if one exists, else the main
// checkout.
func (d lifecycleDeps) checkoutFor(wu *domain.WU) (root string, inWorktree bool) {
	if d.worktrees == nil {
		return d.repoRoot, false
	}
	path, err := d.worktrees.Resolve(domain.LaneBranchName(wu.Lane, wu.ID))
	if err != nil {
		if !errors.Is(err, domain.ErrWorktreeNotFound) {
			d.log().Debug(wu.ID, "lifecycle", fmt.Sprintf("resolve worktree: %v", err))
		}
		return d.repoRoot, false
	}
	return path, true
}

// publish pushes main when pushing is enabled. A failed push is reported as a
// warning: the change is committed locally and goes out with the next push.
func (d lifecycleDeps) publish(wuID string) []string {
	gitCfg := d.config.Git
	if !gitCfg.PushEnabled() {
		return nil
	}
	if err := d.git.At(d.repoRoot).Push(gitCfg.Remote, gitCfg.MainBranch); err != nil {
		msg := fmt.Sprintf("push %s to %s failed, change is committed locally: %v", gitCfg.MainBranch, gitCfg.Remote, err)
		d.log().Warn(wuID, "lifecycle", msg)
		return []string{msg}
	}
	return nil
}

// lifecycleMessage formats a metadata commit message: "wu(wu-1): claim - title".
func lifecycleMessage(wuID, action, detail string) string {
	msg := fmt.Sprintf("wu(%s): %s", strings.ToLower(wuID), action)
	if detail != "" {
		msg += " - " + detail
	}
	return msg
}

func requireText(wuID, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return domain.NewError(domain.CodeValidation, "%s: %s cannot be empty", wuID, field)
	}
	return nil
}
