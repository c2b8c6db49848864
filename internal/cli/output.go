package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// Colors used by the terminal output.
var Colors = struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Error   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
}{
	Primary: lipgloss.Color("#6C5CE7"), // Purple
	Muted:   lipgloss.Color("#636E72"), // Gray
	Error:   lipgloss.Color("#D63031"), // Red
	Success: lipgloss.Color("#00B894"), // Green
	Warning: lipgloss.Color("#FDCB6E"), // Yellow
}

var (
	nextStepStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Colors.Warning).
			Padding(0, 1)

	nextStepTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Colors.Warning)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Primary)

	mutedStyle = lipgloss.NewStyle().Foreground(Colors.Muted)

	passStyle = lipgloss.NewStyle().Bold(true).Foreground(Colors.Success)
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(Colors.Error)
	warnStyle = lipgloss.NewStyle().Foreground(Colors.Warning)
)

// renderNextStep renders the single command the user should run next.
func renderNextStep(command string) string {
	return nextStepStyle.Render(nextStepTitleStyle.Render("NEXT STEP") + "\n" + command)
}

// statusStyle returns the style for a WU status.
func statusStyle(status domain.Status) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch status {
	case domain.StatusDone:
		return style.Foreground(Colors.Success)
	case domain.StatusBlocked:
		return style.Foreground(Colors.Error)
	case domain.StatusWaiting, domain.StatusInProgress:
		return style.Foreground(Colors.Warning)
	default:
		return style.Foreground(Colors.Primary)
	}
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		_, _ = fmt.Fprintf(w, "%s %s\n", warnStyle.Render("Warning:"), msg)
	}
}

// printGateReport prints one PASS/FAIL line per gate that ran. Failure details
// are part of the returned error.
func printGateReport(w io.Writer, report *shared.GateReport) {
	if report == nil {
		return
	}
	for _, o := range report.Outcomes {
		if o.Passed {
			_, _ = fmt.Fprintf(w, "%s %s\n", passStyle.Render("PASS"), o.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", failStyle.Render("FAIL"), o.Name)
	}
}

// rollbackSummary describes what a failed wu done undid.
func rollbackSummary(rb *shared.RollbackResult) string {
	var parts []string
	if n := len(rb.Files); n > 0 {
		parts = append(parts, fmt.Sprintf("restored %d file(s)", n))
	}
	if rb.BranchReset {
		parts = append(parts, "reset the lane branch")
	}
	if rb.WorktreeRemoved {
		parts = append(parts, "removed the worktree")
	}
	if len(parts) == 0 {
		parts = append(parts, "nothing to undo")
	}
	summary := "Rolled back: " + strings.Join(parts, ", ")
	if err := rb.Err(); err != nil {
		summary += fmt.Sprintf(" (with errors: %v)", err)
	}
	return summary
}
