package shared

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/invariants"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/testutil"
)

func newTestGateRunner(exec *testutil.MockExecutor, logger *testutil.MockLogger) *GateRunner {
	return NewGateRunner(exec, invariants.NewEngine(invariants.DefaultRegistry(), logger), logger)
}

func TestGateRunner_Run(t *testing.T) {
	f := newMetadataFixture(t)
	exec := testutil.NewMockExecutor()
	exec.Outputs["make lint"] = "ok\n"
	logger := &testutil.MockLogger{}
	var out bytes.Buffer

	report, err := newTestGateRunner(exec, logger).Run(context.Background(), GateInput{
		WUs:            wustore.New(f.layout.WUDir()),
		Out:            &out,
		Dir:            f.layout.Root,
		InvariantsPath: f.layout.InvariantsPath(),
		WUID:           "WU-1",
		Commands:       []domain.GateCommand{{Name: "lint", Run: "make lint"}},
	})

	require.NoError(t, err)
	assert.True(t, report.Passed())
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, "invariants", report.Outcomes[0].Name)
	assert.Equal(t, "lint", report.Outcomes[1].Name)
	require.Len(t, exec.Commands, 1)
	assert.Equal(t, f.layout.Root, exec.Commands[0].Dir)
	assert.Equal(t, []string{"running lint"}, logger.Messages("INFO", "gates"))
}

func TestGateRunner_Run_InvariantFailureSkipsCommands(t *testing.T) {
	f := newMetadataFixture(t)
	writeTestFile(t, f.layout.InvariantsPath(), `invariants:
  - id: INV-LICENSE
    type: required-file
    path: LICENSE
    message: add a license
`)
	exec := testutil.NewMockExecutor()

	report, err := newTestGateRunner(exec, &testutil.MockLogger{}).Run(context.Background(), GateInput{
		WUs:            wustore.New(f.layout.WUDir()),
		Dir:            f.layout.Root,
		InvariantsPath: f.layout.InvariantsPath(),
		Commands:       []domain.GateCommand{{Run: "make test"}},
	})

	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
	assert.Contains(t, err.Error(), "INV-LICENSE")
	assert.False(t, report.Passed())
	require.NotNil(t, report.Invariants)
	assert.Len(t, report.Invariants.Violations, 1)
	assert.Empty(t, exec.Commands)
}

func TestGateRunner_Run_BadInvariantsConfig(t *testing.T) {
	f := newMetadataFixture(t)
	writeTestFile(t, f.layout.InvariantsPath(), "invariants: [")

	report, err := newTestGateRunner(testutil.NewMockExecutor(), &testutil.MockLogger{}).Run(context.Background(), GateInput{
		Dir:            f.layout.Root,
		InvariantsPath: f.layout.InvariantsPath(),
	})

	require.Error(t, err)
	assert.False(t, report.Passed())
}
