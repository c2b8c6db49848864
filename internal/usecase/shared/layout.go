package shared

import (
	"path/filepath"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// Layout resolves the configured workflow files under one checkout root.
// The main checkout and each worktree have their own Layout.
type Layout struct {
	Root string
	Dirs domain.DirectoriesConfig
}

// NewLayout creates a Layout rooted at root.
func NewLayout(root string, dirs domain.DirectoriesConfig) Layout {
	return Layout{Root: root, Dirs: dirs}
}

func (l Layout) abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(l.Root, rel)
}

// WUDir returns the directory holding WU documents.
func (l Layout) WUDir() string { return l.abs(l.Dirs.WUDir) }

// WUPath returns the document path for id.
func (l Layout) WUPath(id string) string { return domain.WUPath(l.WUDir(), id) }

// StampPath returns the completion stamp path for id.
func (l Layout) StampPath(id string) string {
	return domain.StampPath(l.abs(l.Dirs.StampsDir), id)
}

// StatusPath returns status.md.
func (l Layout) StatusPath() string { return l.abs(l.Dirs.StatusPath) }

// BacklogPath returns backlog.md.
func (l Layout) BacklogPath() string { return l.abs(l.Dirs.Backlog) }

// EventLogPath returns the NDJSON event log.
func (l Layout) EventLogPath() string { return l.abs(l.Dirs.EventLog) }

// InvariantsPath returns the invariants config.
func (l Layout) InvariantsPath() string { return l.abs(l.Dirs.Invariants) }

// WorktreesDir returns the directory lane worktrees are created in.
func (l Layout) WorktreesDir() string { return l.abs(l.Dirs.Worktrees) }

// Rel returns path relative to Root with forward slashes, for git and refs.
func (l Layout) Rel(path string) string {
	rel, err := filepath.Rel(l.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// MetadataPaths returns every file the completion pipeline writes for id.
func (l Layout) MetadataPaths(id string) []string {
	return []string{
		l.WUPath(id),
		l.StatusPath(),
		l.BacklogPath(),
		l.EventLogPath(),
		l.StampPath(id),
	}
}
