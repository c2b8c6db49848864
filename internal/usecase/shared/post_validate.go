package shared

import (
	"fmt"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/fsutil"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
)

// PostMutationResult reports whether completion metadata landed on disk.
type PostMutationResult struct {
	Errors []string
	Valid  bool
}

// ValidatePostMutation re-reads the WU document and stamp from disk and
// checks they describe a completed WU.
func ValidatePostMutation(wuPath, stampPath string) *PostMutationResult {
	res := &PostMutationResult{}

	wu, err := wustore.ReadFile(wuPath)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("read %s: %v", wuPath, err))
	} else {
		if wu.Status != domain.StatusDone {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: status is %q, expected %q", wuPath, wu.Status, domain.StatusDone))
		}
		if !wu.Locked {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: locked is false, expected true", wuPath))
		}
		if wu.CompletedAt == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: completed_at is missing", wuPath))
		} else if _, err := domain.ParseTimestamp(wu.CompletedAt); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: completed_at %q is not a valid timestamp", wuPath, wu.CompletedAt))
		}
	}

	if !fsutil.Exists(stampPath) {
		res.Errors = append(res.Errors, fmt.Sprintf("stamp %s does not exist", stampPath))
	}

	res.Valid = len(res.Errors) == 0
	return res
}
