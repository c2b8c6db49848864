// Package invariants evaluates repository-wide invariants declared in YAML.
//
// Checkers are looked up by invariant type in a Registry. An Engine takes a
// copy of the registry when it is built, so registrations made afterwards do
// not change a running engine.
package invariants

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// File is the on-disk layout of the invariants config.
type File struct {
	Invariants []domain.InvariantDefinition `yaml:"invariants"`
}

// LoadConfig reads invariant definitions from path.
// A missing file returns (nil, false, nil).
func LoadConfig(path string) ([]domain.InvariantDefinition, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, domain.WrapError(domain.CodeInvariant, err, "read %s", path)
	}
	defs, err := ParseConfig(data, path)
	if err != nil {
		return nil, true, err
	}
	return defs, true, nil
}

// ParseConfig decodes and validates an invariants document.
// path is only used in error messages.
func ParseConfig(data []byte, path string) ([]domain.InvariantDefinition, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, domain.WrapError(domain.CodeInvariant, err, "parse %s", path)
	}
	if errs := validate(f.Invariants); len(errs) > 0 {
		return nil, domain.WrapError(domain.CodeInvariant, errors.Join(errs...), "%s: invalid invariants", path)
	}
	return f.Invariants, nil
}

// Validate checks that every definition carries the fields its type needs.
// Unknown types pass validation; the engine skips them at run time.
func Validate(defs []domain.InvariantDefinition) error {
	if errs := validate(defs); len(errs) > 0 {
		return domain.WrapError(domain.CodeInvariant, errors.Join(errs...), "invalid invariants")
	}
	return nil
}

func validate(defs []domain.InvariantDefinition) []error {
	var errs []error
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		label := def.ID
		if label == "" {
			label = fmt.Sprintf("invariants[%d]", i)
		}
		if def.ID == "" {
			errs = append(errs, fmt.Errorf("%s: id is required", label))
		} else if seen[def.ID] {
			errs = append(errs, fmt.Errorf("%s: duplicate id", label))
		}
		seen[def.ID] = true
		if def.Type == "" {
			errs = append(errs, fmt.Errorf("%s: type is required", label))
			continue
		}
		for _, err := range validateFields(def) {
			errs = append(errs, fmt.Errorf("%s (%s): %w", label, def.Type, err))
		}
	}
	return errs
}

func validateFields(def domain.InvariantDefinition) []error {
	var errs []error
	switch def.Type {
	case domain.InvariantRequiredFile, domain.InvariantForbiddenFile:
		if def.Path == "" {
			errs = append(errs, errors.New("path is required"))
		}
	case domain.InvariantMutualExclusivity:
		if len(def.Paths) < 2 {
			errs = append(errs, errors.New("paths must list at least two entries"))
		}
	case domain.InvariantForbiddenPattern, domain.InvariantRequiredPattern:
		if def.Pattern == "" {
			errs = append(errs, errors.New("pattern is required"))
		} else if _, err := regexp.Compile(def.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("pattern: %w", err))
		}
		if len(def.Scope) == 0 {
			errs = append(errs, errors.New("scope is required"))
		}
		for _, glob := range def.Scope {
			if !doublestar.ValidatePattern(glob) {
				errs = append(errs, fmt.Errorf("scope: invalid glob %q", glob))
			}
		}
	case domain.InvariantForbiddenImport:
		if def.From == "" {
			errs = append(errs, errors.New("from is required"))
		} else if !doublestar.ValidatePattern(def.From) {
			errs = append(errs, fmt.Errorf("from: invalid glob %q", def.From))
		}
		if len(def.CannotImport) == 0 {
			errs = append(errs, errors.New("cannot_import is required"))
		}
	}
	return errs
}
