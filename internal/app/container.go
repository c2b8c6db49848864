// Package app provides the dependency injection container for the application.
package app

import (
	"io"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/config"
	"github.com/lumenflow/lumenflow/internal/infra/executor"
	"github.com/lumenflow/lumenflow/internal/infra/git"
	"github.com/lumenflow/lumenflow/internal/infra/gitstore"
	"github.com/lumenflow/lumenflow/internal/infra/invariants"
	"github.com/lumenflow/lumenflow/internal/infra/logging"
	"github.com/lumenflow/lumenflow/internal/infra/worktree"
	"github.com/lumenflow/lumenflow/internal/usecase"
)

// Config holds the repository paths the container was built for.
type Config struct {
	RepoRoot string // Main checkout (parent of the common .git directory)
	GitDir   string // Common .git directory
	WorkDir  string // Checkout the command was started in (may be a worktree)
	LogsDir  string // .git/lumenflow/logs
}

// newConfig creates a new Config from the git client.
func newConfig(gitClient *git.Client) Config {
	return Config{
		RepoRoot: gitClient.RepoRoot(),
		GitDir:   gitClient.GitDir(),
		WorkDir:  gitClient.Dir(),
		LogsDir:  domain.LogsDir(gitClient.GitDir()),
	}
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Clock     domain.Clock
	Git       domain.Git
	Worktrees domain.WorktreeManager
	Refs      domain.RefReader
	Executor  domain.CommandExecutor
	Logger    domain.Logger

	// Pointer fields
	ConfigLoader *config.Loader
	AppConfig    *domain.Config
	Engine       *invariants.Engine
	closer       io.Closer

	// Configuration
	Config Config
}

// New creates a new Container by detecting the git repository from the given directory.
func New(dir string) (*Container, error) {
	gitClient, err := git.NewClient(dir)
	if err != nil {
		return nil, err
	}
	cfg := newConfig(gitClient)

	// workspace.yaml always comes from the main checkout, also when running
	// inside a lane worktree.
	loader := config.NewLoader(cfg.RepoRoot)
	appConfig, err := loader.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.LogsDir, logging.ParseLevel(appConfig.Log.Level))
	for _, w := range appConfig.Warnings {
		logger.Warn("", "config", w)
	}

	return &Container{
		Clock:        domain.RealClock{},
		Git:          gitClient.At(cfg.RepoRoot),
		Worktrees:    worktree.NewClient(cfg.RepoRoot),
		Refs:         gitstore.New(cfg.RepoRoot),
		Executor:     executor.NewClient(),
		Logger:       logger,
		ConfigLoader: loader,
		AppConfig:    appConfig,
		Engine:       invariants.NewEngine(invariants.DefaultRegistry(), logger),
		closer:       logger,
		Config:       cfg,
	}, nil
}

// NewWithDeps creates a new Container with custom dependencies for testing.
func NewWithDeps(
	cfg Config,
	appConfig *domain.Config,
	gitClient domain.Git,
	worktrees domain.WorktreeManager,
	refs domain.RefReader,
	exec domain.CommandExecutor,
	clock domain.Clock,
	logger domain.Logger,
) *Container {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &Container{
		Clock:     clock,
		Git:       gitClient,
		Worktrees: worktrees,
		Refs:      refs,
		Executor:  exec,
		Logger:    logger,
		AppConfig: appConfig,
		Engine:    invariants.NewEngine(invariants.DefaultRegistry(), logger),
		Config:    cfg,
	}
}

// Close flushes and closes the log files.
func (c *Container) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// UseCase factory methods

// InitRepoUseCase returns a new InitRepo use case.
func (c *Container) InitRepoUseCase() *usecase.InitRepo {
	return usecase.NewInitRepo(c.AppConfig, c.Config.RepoRoot)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.AppConfig, c.ConfigLoader)
}

// ShowLogsUseCase returns a new ShowLogs use case.
func (c *Container) ShowLogsUseCase() *usecase.ShowLogs {
	return usecase.NewShowLogs(c.Config.LogsDir)
}

// CreateWUUseCase returns a new CreateWU use case.
func (c *Container) CreateWUUseCase() *usecase.CreateWU {
	return usecase.NewCreateWU(c.Git, c.AppConfig, c.Clock, c.Logger, c.Config.RepoRoot)
}

// ClaimWUUseCase returns a new ClaimWU use case.
func (c *Container) ClaimWUUseCase() *usecase.ClaimWU {
	return usecase.NewClaimWU(c.Worktrees, c.Git, c.AppConfig, c.Clock, c.Logger, c.Config.RepoRoot)
}

// BlockWUUseCase returns a new BlockWU use case.
func (c *Container) BlockWUUseCase() *usecase.BlockWU {
	return usecase.NewBlockWU(c.Worktrees, c.Git, c.AppConfig, c.Clock, c.Logger, c.Config.RepoRoot)
}

// UnblockWUUseCase returns a new UnblockWU use case.
func (c *Container) UnblockWUUseCase() *usecase.UnblockWU {
	return usecase.NewUnblockWU(c.Worktrees, c.Git, c.AppConfig, c.Clock, c.Logger, c.Config.RepoRoot)
}

// ReleaseWUUseCase returns a new ReleaseWU use case.
func (c *Container) ReleaseWUUseCase() *usecase.ReleaseWU {
	return usecase.NewReleaseWU(c.Worktrees, c.Git, c.AppConfig, c.Clock, c.Logger, c.Config.RepoRoot)
}

// CheckpointWUUseCase returns a new CheckpointWU use case.
func (c *Container) CheckpointWUUseCase() *usecase.CheckpointWU {
	return usecase.NewCheckpointWU(c.Worktrees, c.Git, c.AppConfig, c.Clock, c.Logger, c.Config.RepoRoot)
}

// DelegateWUUseCase returns a new DelegateWU use case.
func (c *Container) DelegateWUUseCase() *usecase.DelegateWU {
	return usecase.NewDelegateWU(c.Git, c.AppConfig, c.Clock, c.Logger, c.Config.RepoRoot)
}

// ShowWUUseCase returns a new ShowWU use case.
func (c *Container) ShowWUUseCase() *usecase.ShowWU {
	return usecase.NewShowWU(c.Worktrees, c.Git, c.AppConfig, c.Clock, c.Config.RepoRoot)
}

// RecoverWUUseCase returns a new RecoverWU use case.
func (c *Container) RecoverWUUseCase() *usecase.RecoverWU {
	return usecase.NewRecoverWU(c.Worktrees, c.Git, c.AppConfig, c.Clock, c.Config.RepoRoot)
}

// RunGatesUseCase returns a new RunGates use case.
// stdout receives the gate command output.
func (c *Container) RunGatesUseCase(stdout io.Writer) *usecase.RunGates {
	return usecase.NewRunGates(c.Worktrees, c.Executor, c.Engine, c.AppConfig, c.Logger, stdout, c.Config.RepoRoot)
}

// CompleteWUUseCase returns a new CompleteWU use case.
// stdout receives the gate command output.
func (c *Container) CompleteWUUseCase(stdout io.Writer) *usecase.CompleteWU {
	return usecase.NewCompleteWU(c.Worktrees, c.Git, c.Refs, c.Executor, c.Engine, c.AppConfig, c.Clock, c.Logger, stdout, c.Config.RepoRoot)
}
