// Package gitstore reads workflow files straight from git objects.
//
// The completion pipeline uses it to see main's event log as of the latest
// fetch (refs/remotes/<remote>/<main>) while the main checkout itself may be
// behind, without touching any working tree.
package gitstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// Ensure Store implements domain.RefReader interface.
var _ domain.RefReader = (*Store)(nil)

// Store reads blobs from a repository.
type Store struct {
	repo     *git.Repository
	repoPath string
	mu       sync.Mutex
}

// New opens the repository at repoPath lazily on first use.
func New(repoPath string) *Store {
	return &Store{repoPath: repoPath}
}

// NewWithRepo creates a Store with an existing repository instance.
func NewWithRepo(repo *git.Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) open() (*git.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		return s.repo, nil
	}
	repo, err := git.PlainOpenWithOptions(s.repoPath, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	s.repo = repo
	return repo, nil
}

// ReadFile returns the content of path (relative to the repository root) at ref.
func (s *Store) ReadFile(ref, path string) ([]byte, error) {
	repo, err := s.open()
	if err != nil {
		return nil, err
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, domain.NewError(domain.CodeFileNotFound, "ref %s not found", ref)
		}
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}

	file, err := commit.File(filepath.ToSlash(path))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, domain.NewError(domain.CodeFileNotFound, "%s not found at %s", path, ref)
		}
		return nil, fmt.Errorf("read %s at %s: %w", path, ref, err)
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", path, ref, err)
	}
	return []byte(contents), nil
}
