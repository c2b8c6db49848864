package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/internal/domain"
)

func (f *wuFixture) inspect() *RecoverWUOutput {
	f.t.Helper()
	out, err := NewRecoverWU(f.worktrees, f.git, f.cfg, f.clock, f.root).Execute(context.Background(), RecoverWUInput{WUID: "WU-100"})
	require.NoError(f.t, err)
	return out
}

func TestRecoverWU_Execute(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(f *wuFixture)
		wantNext      func(f *wuFixture) string
		wantRemaining int
		wantMerged    bool
		wantDone      bool
	}{
		{
			name:          "claimed work in progress",
			setup:         func(f *wuFixture) { f.setupClaimed() },
			wantNext:      func(*wuFixture) string { return domain.DoneCommand("WU-100") },
			wantRemaining: 3,
		},
		{
			name: "uncommitted worktree changes",
			setup: func(f *wuFixture) {
				f.setupClaimed()
				f.git.Uncommitted = true
			},
			wantNext: func(f *wuFixture) string {
				return "git -C " + f.wt + " add -A && git -C " + f.wt + " commit (then " + domain.DoneCommand("WU-100") + ")"
			},
			wantRemaining: 3,
		},
		{
			name: "merged but not pushed or cleaned up",
			setup: func(f *wuFixture) {
				f.setupMerged(true)
			},
			wantNext:   func(*wuFixture) string { return domain.DoneCommand("WU-100") },
			wantMerged: true,
		},
		{
			name: "branch deleted but worktree left",
			setup: func(f *wuFixture) {
				f.setupMerged(true)
				f.git.Branches[testBranch] = false
			},
			wantNext: func(f *wuFixture) string { return "git worktree remove " + f.wt },
		},
		{
			name: "fully completed",
			setup: func(f *wuFixture) {
				f.setupMerged(true)
				f.git.Branches[testBranch] = false
				delete(f.worktrees.Paths, testBranch)
			},
			wantNext: func(*wuFixture) string { return "" },
			wantDone: true,
		},
		{
			name: "claimed with lost branch",
			setup: func(f *wuFixture) {
				f.setupClaimed()
				f.git.Branches[testBranch] = false
				delete(f.worktrees.Paths, testBranch)
			},
			wantNext:      func(*wuFixture) string { return `lumenflow wu release --id WU-100 --reason "lane branch lost"` },
			wantRemaining: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWUFixture(t)
			tt.setup(f)

			out := f.inspect()

			assert.Equal(t, tt.wantNext(f), out.NextStep)
			assert.Len(t, out.Remaining, tt.wantRemaining, "remaining: %v", out.Remaining)
			assert.Equal(t, tt.wantMerged, out.BranchMerged)
			assert.Equal(t, tt.wantDone, out.Done())
			assert.False(t, f.git.Called("Commit"), "recover never writes")
		})
	}
}
