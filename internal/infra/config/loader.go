// Package config builds the workspace configuration.
//
// Sources are layered, later wins: built-in defaults, the user config
// ($XDG_CONFIG_HOME/lumenflow/config.toml), the repository workspace.yaml,
// then environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// knownSections lists the top-level keys lumenflow reads. workspace.yaml is
// shared with other tools, so unknown keys only produce warnings.
var knownSections = map[string]bool{
	"directories": true,
	"sections":    true,
	"git":         true,
	"preflight":   true,
	"log":         true,
	"lanes":       true,
	"gates":       true,
}

// Loader loads configuration files.
type Loader struct {
	getenv        func(string) string
	repoRoot      string // Main checkout holding workspace.yaml
	globalConfDir string // e.g. ~/.config/lumenflow
}

// NewLoader creates a new Loader.
func NewLoader(repoRoot string) *Loader {
	return &Loader{
		repoRoot:      repoRoot,
		globalConfDir: defaultGlobalConfigDir(),
		getenv:        os.Getenv,
	}
}

// NewLoaderWithGlobalDir creates a Loader with a custom global config directory
// and environment lookup. This is useful for testing.
func NewLoaderWithGlobalDir(repoRoot, globalConfDir string, getenv func(string) string) *Loader {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	return &Loader{
		repoRoot:      repoRoot,
		globalConfDir: globalConfDir,
		getenv:        getenv,
	}
}

func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// WorkspacePath returns the path of the repository workspace file.
func (l *Loader) WorkspacePath() string {
	return filepath.Join(l.repoRoot, domain.WorkspaceFileName)
}

// GlobalPath returns the path of the user config file, or "" if unknown.
func (l *Loader) GlobalPath() string {
	if l.globalConfDir == "" {
		return ""
	}
	return filepath.Join(l.globalConfDir, domain.UserConfigFileName)
}

// Load returns the merged configuration.
func (l *Loader) Load() (*domain.Config, error) {
	base := domain.NewDefaultConfig()

	if path := l.GlobalPath(); path != "" {
		global, warnings, err := loadFile(path, decodeTOML)
		if err != nil {
			return nil, err
		}
		if global != nil {
			if err := mergeInto(base, global, path); err != nil {
				return nil, err
			}
			base.Warnings = append(base.Warnings, warnings...)
		}
	}

	path := l.WorkspacePath()
	workspace, warnings, err := loadFile(path, decodeYAML)
	if err != nil {
		return nil, err
	}
	if workspace != nil {
		if err := mergeInto(base, workspace, path); err != nil {
			return nil, err
		}
		base.Warnings = append(base.Warnings, warnings...)
	}

	if err := l.applyEnv(base); err != nil {
		return nil, err
	}
	if err := validate(base); err != nil {
		return nil, err
	}
	return base, nil
}

func (l *Loader) applyEnv(cfg *domain.Config) error {
	if level := l.getenv(domain.LogLevelEnv); level != "" {
		cfg.Log.Level = level
	}
	if raw := l.getenv(domain.LegacyRollbackEnv); raw != "" {
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.NewError(domain.CodeConfig, "%s must be a boolean, got %q", domain.LegacyRollbackEnv, raw)
		}
		cfg.LegacyRollback = on
	}
	return nil
}

func validate(cfg *domain.Config) error {
	switch cfg.Git.MergeStrategy {
	case domain.MergeFastForwardOnly, domain.MergeNoFastForward:
	default:
		return domain.NewError(domain.CodeConfig, "git.merge_strategy must be %q or %q, got %q",
			domain.MergeFastForwardOnly, domain.MergeNoFastForward, cfg.Git.MergeStrategy)
	}
	for i, lane := range cfg.Lanes {
		if strings.TrimSpace(lane.Name) == "" {
			return domain.NewError(domain.CodeConfig, "lanes[%d]: name is required", i)
		}
		if lane.WIPLimit < 0 {
			return domain.NewError(domain.CodeConfig, "lanes[%d] (%s): wip_limit must not be negative", i, lane.Name)
		}
	}
	for i, gate := range cfg.Gates.Commands {
		if strings.TrimSpace(gate.Run) == "" {
			return domain.NewError(domain.CodeConfig, "gates.commands[%d] (%s): run is required", i, gate.Name)
		}
	}
	return nil
}

type decodeFunc func(data []byte, cfg *domain.Config, raw *map[string]any) error

func decodeTOML(data []byte, cfg *domain.Config, raw *map[string]any) error {
	if err := toml.Unmarshal(data, raw); err != nil {
		return err
	}
	return toml.Unmarshal(data, cfg)
}

func decodeYAML(data []byte, cfg *domain.Config, raw *map[string]any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, raw); err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadFile returns (nil, nil, nil) when the file does not exist.
func loadFile(path string, decode decodeFunc) (*domain.Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, domain.WrapError(domain.CodeConfig, err, "read %s", path)
	}

	var cfg domain.Config
	raw := map[string]any{}
	if err := decode(data, &cfg, &raw); err != nil {
		return nil, nil, domain.WrapError(domain.CodeConfig, err, "parse %s", path)
	}
	return &cfg, unknownKeyWarnings(raw, path), nil
}

func unknownKeyWarnings(raw map[string]any, path string) []string {
	var unknown []string
	for key := range raw {
		if !knownSections[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	warnings := make([]string, 0, len(unknown))
	for _, key := range unknown {
		warnings = append(warnings, fmt.Sprintf("%s: unknown key %q ignored", filepath.Base(path), key))
	}
	return warnings
}

func mergeInto(dst, src *domain.Config, path string) error {
	if err := mergo.Merge(dst, src, mergo.WithOverride); err != nil {
		return domain.WrapError(domain.CodeConfig, err, "merge %s", path)
	}
	return nil
}
