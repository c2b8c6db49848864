package domain

import "path/filepath"

// Config file names.
const (
	WorkspaceFileName  = "workspace.yaml"
	UserConfigFileName = "config.toml"
)

// Default values.
const (
	DefaultLogLevel      = "info"
	DefaultMainBranch    = "main"
	DefaultRemote        = "origin"
	DefaultMergeStrategy = MergeFastForwardOnly
)

// Merge strategies for landing a lane branch on main.
const (
	MergeFastForwardOnly = "ff-only"
	MergeNoFastForward   = "no-ff"
)

// LegacyRollbackEnv opts into the pre-state-machine rollback path.
const LegacyRollbackEnv = "LUMENFLOW_LEGACY_ROLLBACK"

// LogLevelEnv overrides log.level.
const LogLevelEnv = "LUMENFLOW_LOG_LEVEL"

// Config represents the workspace configuration.
// It is built once at process start and passed explicitly to the components that need it.
type Config struct {
	Directories DirectoriesConfig `yaml:"directories" toml:"directories"`
	Sections    SectionsConfig    `yaml:"sections" toml:"sections"`
	Git         GitConfig         `yaml:"git" toml:"git"`
	Preflight   PreflightConfig   `yaml:"preflight" toml:"preflight"`
	Log         LogConfig         `yaml:"log" toml:"log"`
	Lanes       []LaneConfig      `yaml:"lanes" toml:"lanes"`
	Gates       GatesConfig       `yaml:"gates" toml:"gates"`
	Warnings    []string          `yaml:"-" toml:"-"`

	LegacyRollback bool `yaml:"-" toml:"-"`
}

// DirectoriesConfig holds repository-relative locations of workflow files.
type DirectoriesConfig struct {
	WUDir      string `yaml:"wu_dir" toml:"wu_dir"`
	StampsDir  string `yaml:"stamps_dir" toml:"stamps_dir"`
	StatusPath string `yaml:"status_path" toml:"status_path"`
	Backlog    string `yaml:"backlog_path" toml:"backlog_path"`
	EventLog   string `yaml:"event_log" toml:"event_log"`
	Worktrees  string `yaml:"worktrees" toml:"worktrees"`
	Invariants string `yaml:"invariants" toml:"invariants"`
}

// SectionsConfig holds the "##" headings used in status.md and backlog.md.
type SectionsConfig struct {
	Ready      string `yaml:"ready" toml:"ready"`
	InProgress string `yaml:"in_progress" toml:"in_progress"`
	Blocked    string `yaml:"blocked" toml:"blocked"`
	Waiting    string `yaml:"waiting" toml:"waiting"`
	Completed  string `yaml:"completed" toml:"completed"`
}

// ForStatus returns the heading a WU with the given status belongs under.
func (s SectionsConfig) ForStatus(status Status) string {
	switch status {
	case StatusInProgress:
		return s.InProgress
	case StatusBlocked:
		return s.Blocked
	case StatusWaiting:
		return s.Waiting
	case StatusDone:
		return s.Completed
	default:
		return s.Ready
	}
}

// GitConfig holds git settings.
type GitConfig struct {
	Push          *bool  `yaml:"push" toml:"push"`
	MainBranch    string `yaml:"main_branch" toml:"main_branch"`
	Remote        string `yaml:"remote" toml:"remote"`
	MergeStrategy string `yaml:"merge_strategy" toml:"merge_strategy"`
}

// PushEnabled reports whether main should be pushed after merging.
func (g GitConfig) PushEnabled() bool {
	return g.Push == nil || *g.Push
}

// PreflightConfig configures CLI/MCP parity enforcement (rule R005).
type PreflightConfig struct {
	CLIManifest string   `yaml:"cli_manifest" toml:"cli_manifest"`
	ParityFiles []string `yaml:"parity_files" toml:"parity_files"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// LaneConfig holds per-lane settings.
type LaneConfig struct {
	Name     string `yaml:"name" toml:"name"`
	WIPLimit int    `yaml:"wip_limit" toml:"wip_limit"`
}

// GatesConfig lists the gate commands run before completion.
type GatesConfig struct {
	Commands []GateCommand `yaml:"commands" toml:"commands"`
}

// GateCommand is a named shell command that must exit 0.
type GateCommand struct {
	Name string `yaml:"name" toml:"name"`
	Run  string `yaml:"run" toml:"run"`
}

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Directories: DirectoriesConfig{
			WUDir:      filepath.Join("docs", "tasks", "wu"),
			StampsDir:  filepath.Join(".lumenflow", "stamps"),
			StatusPath: filepath.Join("docs", "tasks", "status.md"),
			Backlog:    filepath.Join("docs", "tasks", "backlog.md"),
			EventLog:   filepath.Join(".lumenflow", "state", "wu-events.jsonl"),
			Worktrees:  "worktrees",
			Invariants: filepath.Join("tools", "invariants.yml"),
		},
		Sections: SectionsConfig{
			Ready:      "Ready",
			InProgress: "In Progress",
			Blocked:    "Blocked",
			Waiting:    "Waiting",
			Completed:  "Completed",
		},
		Git: GitConfig{
			MainBranch:    DefaultMainBranch,
			Remote:        DefaultRemote,
			MergeStrategy: DefaultMergeStrategy,
		},
		Preflight: PreflightConfig{
			CLIManifest: filepath.Join("packages", "cli", "package.json"),
			ParityFiles: []string{
				filepath.Join("packages", "cli", "src", "public-manifest.ts"),
				filepath.Join("packages", "mcp", "src", "tools.ts"),
			},
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// WIPLimit returns the WIP limit for a lane (0 = unlimited).
// Sub-lanes inherit the parent lane's limit when not configured themselves.
func (c *Config) WIPLimit(lane string) int {
	parent := ParentLane(lane)
	limit := 0
	for _, l := range c.Lanes {
		switch l.Name {
		case lane:
			return l.WIPLimit
		case parent:
			limit = l.WIPLimit
		}
	}
	return limit
}
