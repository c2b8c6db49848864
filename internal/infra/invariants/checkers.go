package invariants

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
)

func checkRequiredFile(def domain.InvariantDefinition, baseDir string, _ Context) (*domain.Violation, error) {
	if exists(baseDir, def.Path) {
		return nil, nil
	}
	v := domain.NewViolation(def)
	v.Path = def.Path
	return v, nil
}

func checkForbiddenFile(def domain.InvariantDefinition, baseDir string, _ Context) (*domain.Violation, error) {
	if !exists(baseDir, def.Path) {
		return nil, nil
	}
	v := domain.NewViolation(def)
	v.Path = def.Path
	return v, nil
}

func checkMutualExclusivity(def domain.InvariantDefinition, baseDir string, _ Context) (*domain.Violation, error) {
	var existing []string
	for _, p := range def.Paths {
		if exists(baseDir, p) {
			existing = append(existing, p)
		}
	}
	if len(existing) <= 1 {
		return nil, nil
	}
	v := domain.NewViolation(def)
	v.ExistingPaths = existing
	return v, nil
}

func checkForbiddenPattern(def domain.InvariantDefinition, baseDir string, _ Context) (*domain.Violation, error) {
	re, err := regexp.Compile(def.Pattern)
	if err != nil {
		return nil, domain.WrapError(domain.CodeInvariant, err, "%s: pattern", def.ID)
	}
	files, err := matchFiles(baseDir, def.Scope)
	if err != nil {
		return nil, err
	}

	var matches []domain.PatternMatch
	for _, file := range files {
		content, err := readFile(baseDir, file)
		if err != nil {
			return nil, err
		}
		for i, line := range strings.Split(content, "\n") {
			if re.MatchString(line) {
				matches = append(matches, domain.PatternMatch{File: file, Line: i + 1, Text: strings.TrimSpace(line)})
			}
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	v := domain.NewViolation(def)
	v.Matches = matches
	return v, nil
}

func checkRequiredPattern(def domain.InvariantDefinition, baseDir string, _ Context) (*domain.Violation, error) {
	re, err := regexp.Compile(def.Pattern)
	if err != nil {
		return nil, domain.WrapError(domain.CodeInvariant, err, "%s: pattern", def.ID)
	}
	files, err := matchFiles(baseDir, def.Scope)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		content, err := readFile(baseDir, file)
		if err != nil {
			return nil, err
		}
		if re.MatchString(content) {
			return nil, nil
		}
	}
	return domain.NewViolation(def), nil
}

// importShapes builds the statement shapes that reference module (or a
// subpath of it): static/side-effect import, require, dynamic import and
// re-export.
func importShapes(module string) []*regexp.Regexp {
	mod := regexp.QuoteMeta(module) + `(?:/[^'"]*)?`
	// Clause: default, namespace, named, or default plus one of the others.
	named := `\{[^}]*\}\s*`
	namespace := `\*\s*as\s+[\w$]+\s+`
	clause := `(?:[\w$]+\s*,\s*)?(?:` + named + `|` + namespace + `|[\w$]+\s+)`
	return []*regexp.Regexp{
		regexp.MustCompile(`(?m)^[ \t]*import\s+(?:type\s+)?(?:` + clause + `from\s*)?['"]` + mod + `['"]`),
		regexp.MustCompile(`\brequire\s*\(\s*['"]` + mod + `['"]\s*\)`),
		regexp.MustCompile(`\bimport\s*\(\s*['"]` + mod + `['"]\s*\)`),
		regexp.MustCompile(`(?m)^[ \t]*export\s+(?:type\s+)?(?:` + named + `|\*\s*(?:as\s+[\w$]+\s+)?)from\s*['"]` + mod + `['"]`),
	}
}

// findImports returns the forbidden imports in content, ordered by line.
func findImports(file, content string, modules []string) []domain.ImportMatch {
	var found []domain.ImportMatch
	seen := make(map[string]bool)
	for _, module := range modules {
		for _, re := range importShapes(module) {
			for _, loc := range re.FindAllStringIndex(content, -1) {
				line := strings.Count(content[:loc[1]], "\n") + 1
				key := fmt.Sprintf("%s:%d", module, line)
				if seen[key] {
					continue
				}
				seen[key] = true
				found = append(found, domain.ImportMatch{File: file, Module: module, Line: line})
			}
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Line < found[j].Line })
	return found
}

func checkForbiddenImport(def domain.InvariantDefinition, baseDir string, _ Context) (*domain.Violation, error) {
	files, err := matchFiles(baseDir, []string{def.From})
	if err != nil {
		return nil, err
	}

	var imports []domain.ImportMatch
	for _, file := range files {
		content, err := readFile(baseDir, file)
		if err != nil {
			return nil, err
		}
		imports = append(imports, findImports(file, content, def.CannotImport)...)
	}
	if len(imports) == 0 {
		return nil, nil
	}
	v := domain.NewViolation(def)
	v.Imports = imports
	return v, nil
}

var codeExtensions = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".mjs": true, ".cjs": true, ".py": true, ".rs": true, ".java": true,
	".kt": true, ".rb": true, ".swift": true, ".c": true, ".cc": true,
	".cpp": true, ".h": true, ".cs": true, ".php": true, ".scala": true,
}

// hasCodeFiles reports whether any code path names a source file.
func hasCodeFiles(codePaths []string) bool {
	for _, p := range codePaths {
		if codeExtensions[strings.ToLower(path.Ext(p))] {
			return true
		}
	}
	return false
}

func checkWUAutomatedTests(def domain.InvariantDefinition, _ string, cctx Context) (*domain.Violation, error) {
	if cctx.WUs == nil {
		return nil, nil
	}

	var wus []*domain.WU
	if cctx.WUID != "" {
		wu, err := cctx.WUs.Get(cctx.WUID)
		if err != nil {
			return nil, err
		}
		wus = []*domain.WU{wu}
	} else {
		all, err := cctx.WUs.List()
		if err != nil {
			return nil, err
		}
		for _, wu := range all {
			if wu.Status == domain.StatusInProgress || wu.Status == domain.StatusBlocked {
				wus = append(wus, wu)
			}
		}
	}

	var offenders []string
	for _, wu := range wus {
		if wu.IsDocumentation() || !hasCodeFiles(wu.CodePaths) {
			continue
		}
		if len(wu.Tests.Automated()) == 0 {
			offenders = append(offenders, wu.ID)
		}
	}
	if len(offenders) == 0 {
		return nil, nil
	}
	v := domain.NewViolation(def)
	v.WUIDs = offenders
	return v, nil
}
