package preflight

import (
	"fmt"
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// CheckEmptyMerge rejects completing a WU that declares code_paths while its
// branch carries no file changes since it diverged from mainRef.
func CheckEmptyMerge(git domain.Git, branch, mainRef string, wu *domain.WU) error {
	if len(wu.CodePaths) == 0 {
		return nil
	}
	base, err := git.MergeBase(mainRef, branch)
	if err != nil {
		return fmt.Errorf("merge-base %s %s: %w", mainRef, branch, err)
	}
	diff, err := git.DiffNames(base, branch)
	if err != nil {
		return fmt.Errorf("diff %s..%s: %w", base, branch, err)
	}
	if len(diff) > 0 {
		return nil
	}
	return domain.NewError(domain.CodeValidation,
		"%s: branch %s has no changes since it was claimed, but code_paths lists %s",
		wu.ID, branch, strings.Join(wu.CodePaths, ", "))
}
