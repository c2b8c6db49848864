package usecase

import (
	"context"

	"gopkg.in/yaml.v3"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/fsutil"
)

// ConfigSource is one configuration file considered by the loader.
type ConfigSource struct {
	Path   string
	Exists bool
}

// ShowConfigOutput contains the merged configuration and where it came from.
type ShowConfigOutput struct {
	YAML     string // Merged configuration rendered as workspace.yaml
	Sources  []ConfigSource
	Warnings []string
}

// configPaths is implemented by the file-based config loader.
type configPaths interface {
	GlobalPath() string
	WorkspacePath() string
}

// ShowConfig displays the effective configuration.
type ShowConfig struct {
	config *domain.Config
	paths  configPaths
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(config *domain.Config, paths configPaths) *ShowConfig {
	return &ShowConfig{config: config, paths: paths}
}

// Execute renders the configuration the other commands run with.
func (uc *ShowConfig) Execute(_ context.Context) (*ShowConfigOutput, error) {
	data, err := yaml.Marshal(uc.config)
	if err != nil {
		return nil, domain.WrapError(domain.CodeConfig, err, "render configuration")
	}
	out := &ShowConfigOutput{YAML: string(data), Warnings: uc.config.Warnings}
	for _, p := range []string{uc.paths.GlobalPath(), uc.paths.WorkspacePath()} {
		if p == "" {
			continue
		}
		out.Sources = append(out.Sources, ConfigSource{Path: p, Exists: fsutil.Exists(p)})
	}
	return out, nil
}
