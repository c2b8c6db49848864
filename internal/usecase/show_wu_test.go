package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/internal/domain"
)

func TestShowWU_Execute_Tracked(t *testing.T) {
	f := newWUFixture(t)
	f.setupClaimed()
	f.writeEvents(f.main,
		domain.NewClaimEvent("WU-100", "Framework: Core", "Add parser", claimedAt(0)),
		domain.NewBlockEvent("WU-100", "waiting on API", claimedAt(time.Minute)),
	)

	out, err := NewShowWU(f.worktrees, f.git, f.cfg, f.clock, f.root).Execute(context.Background(), ShowWUInput{WUID: "wu-100"})

	require.NoError(t, err)
	assert.True(t, out.Tracked)
	assert.Equal(t, domain.StatusBlocked, out.Status, "events win over the document")
	assert.Equal(t, domain.StatusInProgress, out.WU.Status)
	assert.Equal(t, "waiting on API", out.State.Reason)
	assert.Len(t, out.Events, 2)
	assert.Equal(t, "In Progress", out.StatusSection)
	assert.Equal(t, testBranch, out.Branch)
	assert.True(t, out.BranchExists)
	assert.Equal(t, f.wt, out.WorktreePath)
	assert.False(t, out.Stamped)
}

func TestShowWU_Execute_Untracked(t *testing.T) {
	f := newWUFixture(t)
	f.setupMain(nil, sampleWU("WU-5", domain.StatusReady))

	out, err := NewShowWU(f.worktrees, f.git, f.cfg, f.clock, f.root).Execute(context.Background(), ShowWUInput{WUID: "WU-5"})

	require.NoError(t, err)
	assert.False(t, out.Tracked)
	assert.Equal(t, domain.StatusReady, out.Status)
	assert.Empty(t, out.Events)
	assert.Equal(t, "Ready", out.StatusSection)
	assert.False(t, out.BranchExists)
	assert.Empty(t, out.WorktreePath)
}

func TestShowWU_Execute_NotFound(t *testing.T) {
	f := newWUFixture(t)

	_, err := NewShowWU(f.worktrees, f.git, f.cfg, f.clock, f.root).Execute(context.Background(), ShowWUInput{WUID: "WU-5"})

	require.ErrorIs(t, err, domain.ErrWUNotFound)
}
