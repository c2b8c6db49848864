package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

func TestPrintGateReport(t *testing.T) {
	var buf bytes.Buffer
	report := &shared.GateReport{Outcomes: []shared.GateOutcome{
		{Name: "invariants", Passed: true},
		{Name: "lint", Passed: true},
		{Name: "test", Err: errors.New("exit status 1")},
	}}

	printGateReport(&buf, report)

	assert.Contains(t, buf.String(), "PASS invariants\n")
	assert.Contains(t, buf.String(), "PASS lint\n")
	assert.Contains(t, buf.String(), "FAIL test\n")
}

func TestRenderNextStep(t *testing.T) {
	box := renderNextStep("lumenflow wu done --id WU-3")

	assert.Contains(t, box, "NEXT STEP")
	assert.Contains(t, box, "lumenflow wu done --id WU-3")
}

func TestPrintWarnings(t *testing.T) {
	var buf bytes.Buffer

	printWarnings(&buf, []string{"workspace.yaml: unknown key \"x\" ignored"})

	assert.Contains(t, buf.String(), "Warning:")
	assert.Contains(t, buf.String(), "unknown key")
}

func TestLabelStyles(t *testing.T) {
	assert.Equal(t, Colors.Success, passStyle.GetForeground())
	assert.Equal(t, Colors.Error, failStyle.GetForeground())
	assert.Equal(t, Colors.Warning, warnStyle.GetForeground())
	assert.True(t, passStyle.GetBold())
	assert.True(t, failStyle.GetBold())
}
