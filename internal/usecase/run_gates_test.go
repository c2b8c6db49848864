package usecase

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/invariants"
	"github.com/lumenflow/lumenflow/internal/testutil"
)

func (f *wuFixture) newRunGates() *RunGates {
	engine := invariants.NewEngine(invariants.DefaultRegistry(), f.logger)
	return NewRunGates(f.worktrees, f.executor, engine, f.cfg, f.logger, io.Discard, f.root)
}

func TestRunGates_Execute(t *testing.T) {
	f := newWUFixture(t)
	f.cfg.Gates.Commands = []domain.GateCommand{{Name: "lint", Run: "make lint"}, {Run: "make test"}}

	out, err := f.newRunGates().Execute(context.Background(), RunGatesInput{})

	require.NoError(t, err)
	assert.Equal(t, f.root, out.Dir)
	require.Len(t, f.executor.Commands, 2)
	assert.Equal(t, f.root, f.executor.Commands[0].Dir)

	names := make([]string, 0, len(out.Report.Outcomes))
	for _, o := range out.Report.Outcomes {
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"invariants", "lint", "make test"}, names)
	assert.True(t, out.Report.Passed())
}

func TestRunGates_Execute_InWorktree(t *testing.T) {
	f := newWUFixture(t)
	f.setupClaimed()

	out, err := f.newRunGates().Execute(context.Background(), RunGatesInput{WUID: "wu-100"})

	require.NoError(t, err)
	assert.Equal(t, f.wt, out.Dir)
	require.Len(t, f.executor.Commands, 1)
	assert.Equal(t, f.wt, f.executor.Commands[0].Dir)
}

func TestRunGates_Execute_StopsAtFirstFailure(t *testing.T) {
	f := newWUFixture(t)
	f.cfg.Gates.Commands = []domain.GateCommand{{Name: "lint", Run: "make lint"}, {Name: "test", Run: "make test"}}
	f.executor.Errs["make lint"] = testutil.ErrMock

	out, err := f.newRunGates().Execute(context.Background(), RunGatesInput{})

	require.ErrorIs(t, err, testutil.ErrMock)
	assert.False(t, out.Report.Passed())
	last := out.Report.Outcomes[len(out.Report.Outcomes)-1]
	assert.Equal(t, "lint", last.Name)
	assert.False(t, last.Passed)
}

func TestRunGates_Execute_InvariantsOnly(t *testing.T) {
	f := newWUFixture(t)
	f.cfg.Gates.Commands = []domain.GateCommand{{Run: "make test"}}
	f.writeFile(f.main.InvariantsPath(), `invariants:
  - id: INV-README
    type: required-file
    path: README.md
    message: repository needs a README
`)
	f.writeFile(filepath.Join(f.root, "README.md"), "# repo\n")

	out, err := f.newRunGates().Execute(context.Background(), RunGatesInput{SkipCommands: true})

	require.NoError(t, err)
	assert.Empty(t, f.executor.Commands)
	require.NotNil(t, out.Report.Invariants)
	assert.True(t, out.Report.Invariants.Success)
}
