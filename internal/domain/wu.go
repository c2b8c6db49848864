package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// WU types that do not require automated tests.
const (
	WUTypeFeature       = "feature"
	WUTypeBug           = "bug"
	WUTypeDocumentation = "documentation"
	WUTypeProcess       = "process"
	WUTypeRefactor      = "refactor"
)

// WUTests holds test entries grouped by bucket.
type WUTests struct {
	Manual      []string `yaml:"manual,omitempty"`
	Unit        []string `yaml:"unit,omitempty"`
	E2E         []string `yaml:"e2e,omitempty"`
	Integration []string `yaml:"integration,omitempty"`
}

// Automated returns unit, e2e and integration entries in that order.
func (t WUTests) Automated() []string {
	out := make([]string, 0, len(t.Unit)+len(t.E2E)+len(t.Integration))
	out = append(out, t.Unit...)
	out = append(out, t.E2E...)
	out = append(out, t.Integration...)
	return out
}

// Count returns the number of test entries across all buckets.
func (t WUTests) Count() int {
	return len(t.Manual) + len(t.Unit) + len(t.E2E) + len(t.Integration)
}

// WU is a work unit document, persisted as <wuDir>/<id>.yaml.
// Fields are ordered to minimize memory padding.
type WU struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Lane        string   `yaml:"lane"`
	Type        string   `yaml:"type,omitempty"`
	Status      Status   `yaml:"status"`
	CompletedAt string   `yaml:"completed_at,omitempty"`
	Description string   `yaml:"description,omitempty"`
	CodePaths   []string `yaml:"code_paths,omitempty"`
	Acceptance  []string `yaml:"acceptance,omitempty"`
	Tests       WUTests  `yaml:"tests,omitempty"`
	Locked      bool     `yaml:"locked,omitempty"`
}

// IsDocumentation returns true for WU types exempt from test requirements.
func (w *WU) IsDocumentation() bool {
	return w.Type == WUTypeDocumentation || w.Type == WUTypeProcess
}

// MarkDone sets the done status together with the fields the locked invariant requires.
func (w *WU) MarkDone(at time.Time) {
	w.Status = StatusDone
	w.Locked = true
	w.CompletedAt = at.UTC().Format(time.RFC3339)
}

// Validate checks the document shape and the locked/completed_at invariant.
func (w *WU) Validate() error {
	if _, err := ParseWUNumber(w.ID); err != nil {
		return WrapError(CodeValidation, err, "%q", w.ID)
	}
	if strings.TrimSpace(w.Title) == "" {
		return NewError(CodeValidation, "%s: title cannot be empty", w.ID)
	}
	if strings.TrimSpace(w.Lane) == "" {
		return NewError(CodeValidation, "%s: lane cannot be empty", w.ID)
	}
	if !w.Status.IsValid() {
		return NewError(CodeValidation, "%s: invalid status %q", w.ID, w.Status)
	}
	done := w.Status == StatusDone
	if w.Locked != done {
		return NewError(CodeValidation, "%s: locked must be %t when status is %s", w.ID, done, w.Status)
	}
	if done {
		if _, err := ParseTimestamp(w.CompletedAt); err != nil {
			return NewError(CodeValidation, "%s: completed_at must be a valid datetime when status is done (got %q)", w.ID, w.CompletedAt)
		}
	} else if w.CompletedAt != "" {
		return NewError(CodeValidation, "%s: completed_at must be empty when status is %s", w.ID, w.Status)
	}
	return nil
}

// ParentLane returns the "Parent" part of a "Parent: Sub" lane.
func ParentLane(lane string) string {
	parent, _, _ := strings.Cut(lane, ":")
	return strings.TrimSpace(parent)
}

var wuIDPattern = regexp.MustCompile(`^WU-(\d+)$`)

// ParseWUNumber extracts the numeric part of a WU ID.
func ParseWUNumber(id string) (int, error) {
	m := wuIDPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, fmt.Errorf("%w: %q (expected WU-<n>)", ErrInvalidWUID, id)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWUID, id)
	}
	return n, nil
}

// NormalizeWUID upper-cases a WU ID ("wu-12" → "WU-12").
func NormalizeWUID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// ParseTimestamp parses an ISO datetime (RFC3339, with or without fractional seconds).
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
