// Package preflight runs fast checks over a WU's code_paths and tests before
// any expensive or mutating step.
//
// Rules are gated by phase. Intent rules look only at the document,
// structural rules add the test-intent checks, and reality rules compare the
// document with the worktree and the branch diff.
package preflight

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// Phase selects how many rules run.
type Phase string

// Phases, cheapest first. Each phase includes the rules of the previous one.
const (
	PhaseIntent     Phase = "intent"
	PhaseStructural Phase = "structural"
	PhaseReality    Phase = "reality"
)

func (p Phase) includes(other Phase) bool {
	rank := map[Phase]int{PhaseIntent: 0, PhaseStructural: 1, PhaseReality: 2}
	return rank[p] >= rank[other]
}

// Rule codes.
const (
	RuleCodePathShape   = "R001"
	RuleTestIntent      = "R002"
	RuleCodePathExists  = "R003"
	RuleCodePathTouched = "R004"
	RuleParity          = "R005"
	RuleTestPathShape   = "R007"
	RuleTestPathExists  = "R008"
)

// Issue is a single rule finding.
type Issue struct {
	Rule    string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s", i.Rule, i.Message)
}

// Result collects findings. Only Errors block.
type Result struct {
	Errors   []Issue
	Warnings []Issue
}

// Valid reports whether no rule failed.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Result) fail(rule, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Rule: rule, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) warn(rule, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Rule: rule, Message: fmt.Sprintf(format, args...)})
}

// Err returns a PREFLIGHT_ERROR listing every failed rule, or nil.
func (r *Result) Err(wuID string) error {
	if r.Valid() {
		return nil
	}
	lines := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		lines[i] = "  " + e.String()
	}
	return domain.NewError(domain.CodePreflight, "%s failed preflight:\n%s", wuID, strings.Join(lines, "\n"))
}

// Input contains the parameters for a preflight run.
type Input struct {
	WU *domain.WU
	// RootDir is the checkout the paths are resolved against (the worktree).
	RootDir string
	// BaseRef and HeadRef bound the branch diff used by R004 and R005.
	BaseRef string
	HeadRef string
	Phase   Phase
}

// Validator runs preflight rules.
type Validator struct {
	git    domain.Git
	config domain.PreflightConfig
}

// NewValidator creates a Validator. git may be nil for phases below reality.
func NewValidator(git domain.Git, config domain.PreflightConfig) *Validator {
	return &Validator{git: git, config: config}
}

// Validate runs every rule enabled by in.Phase.
func (v *Validator) Validate(in Input) *Result {
	res := &Result{}
	wu := in.WU

	checkCodePathShape(wu, res)
	if in.Phase.includes(PhaseStructural) {
		checkTestIntent(wu, res)
		checkTestPathShape(wu, res)
	}
	if !in.Phase.includes(PhaseReality) {
		return res
	}

	checkCodePathsExist(wu, in.RootDir, res)
	checkTestPathsExist(wu, in.RootDir, res)

	diff, diffErr := v.diff(in)
	if diffErr != nil {
		res.warn(RuleCodePathTouched, "branch diff unavailable, code_paths coverage not verified: %v", diffErr)
		res.warn(RuleParity, "branch diff unavailable, CLI/MCP parity not verified: %v", diffErr)
		return res
	}
	checkCodePathsTouched(wu, diff, res)
	v.checkParity(wu, diff, res)
	return res
}

func (v *Validator) diff(in Input) ([]string, error) {
	if v.git == nil {
		return nil, fmt.Errorf("no git client")
	}
	if in.BaseRef == "" || in.HeadRef == "" {
		return nil, fmt.Errorf("base and head refs are required")
	}
	return v.git.At(in.RootDir).DiffNames(in.BaseRef, in.HeadRef)
}

func checkCodePathShape(wu *domain.WU, res *Result) {
	for i, p := range wu.CodePaths {
		if strings.TrimSpace(p) == "" {
			res.fail(RuleCodePathShape, "code_paths[%d] is empty", i)
		}
	}
}

func checkTestIntent(wu *domain.WU, res *Result) {
	if len(wu.CodePaths) == 0 || wu.IsDocumentation() {
		return
	}
	if wu.Tests.Count() == 0 {
		res.fail(RuleTestIntent, "%s has code_paths but no tests (add tests.unit, tests.e2e, tests.integration or tests.manual)", wu.ID)
	}
}

var pathLike = regexp.MustCompile(`^[\w@.\-/*?{}\[\],!+~]+$`)

// looksLikePath reports whether a tests entry names a file rather than prose.
func looksLikePath(entry string) bool {
	entry = strings.TrimSpace(entry)
	if entry == "" || !pathLike.MatchString(entry) {
		return false
	}
	return strings.Contains(entry, "/") || path.Ext(entry) != ""
}

func automatedBuckets(wu *domain.WU) map[string][]string {
	return map[string][]string{
		"unit":        wu.Tests.Unit,
		"e2e":         wu.Tests.E2E,
		"integration": wu.Tests.Integration,
	}
}

var bucketOrder = []string{"unit", "e2e", "integration"}

func checkTestPathShape(wu *domain.WU, res *Result) {
	buckets := automatedBuckets(wu)
	for _, bucket := range bucketOrder {
		for _, entry := range buckets[bucket] {
			if !looksLikePath(entry) {
				res.fail(RuleTestPathShape, "tests.%s entry %q is not a file path (move it to tests.manual)", bucket, entry)
			}
		}
	}
}

func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// resolves reports whether p names an existing file or directory, or a glob
// with at least one match, under root.
func resolves(root, p string) bool {
	p = strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(p)), "./")
	if isGlob(p) {
		matches, err := doublestar.Glob(os.DirFS(root), p)
		return err == nil && len(matches) > 0
	}
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(p, "/"))))
	return err == nil
}

func checkCodePathsExist(wu *domain.WU, root string, res *Result) {
	for _, p := range wu.CodePaths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if !resolves(root, p) {
			res.fail(RuleCodePathExists, "code_path %q does not exist in the worktree", p)
		}
	}
}

func checkTestPathsExist(wu *domain.WU, root string, res *Result) {
	buckets := automatedBuckets(wu)
	for _, bucket := range bucketOrder {
		for _, entry := range buckets[bucket] {
			if !looksLikePath(entry) {
				continue
			}
			if !resolves(root, entry) {
				res.fail(RuleTestPathExists, "tests.%s entry %q does not exist", bucket, entry)
			}
		}
	}
}

// touches reports whether codePath covers any file in diff.
func touches(codePath string, diff []string) bool {
	p := strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(codePath)), "./")
	p = strings.TrimSuffix(p, "/")
	for _, file := range diff {
		switch {
		case isGlob(p):
			if ok, _ := doublestar.Match(p, file); ok {
				return true
			}
		case file == p:
			return true
		case strings.HasPrefix(file, p+"/"):
			return true
		}
	}
	return false
}

func checkCodePathsTouched(wu *domain.WU, diff []string, res *Result) {
	for _, p := range wu.CodePaths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if !touches(p, diff) {
			res.fail(RuleCodePathTouched, "code_path %q is not changed on the branch", p)
		}
	}
}

func (v *Validator) checkParity(wu *domain.WU, diff []string, res *Result) {
	manifest := filepath.ToSlash(v.config.CLIManifest)
	if manifest == "" || !containsPath(diff, manifest) {
		return
	}
	for _, required := range v.config.ParityFiles {
		required = filepath.ToSlash(required)
		covered := false
		for _, p := range wu.CodePaths {
			if touches(p, []string{required}) {
				covered = true
				break
			}
		}
		if !covered {
			res.fail(RuleParity, "%s changed: add %s to code_paths to keep CLI and MCP registrations in sync", manifest, required)
		}
	}
}

func containsPath(files []string, want string) bool {
	for _, f := range files {
		if f == want {
			return true
		}
	}
	return false
}
