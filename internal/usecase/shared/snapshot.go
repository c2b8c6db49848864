package shared

import (
	"errors"
	"fmt"
	"os"

	"github.com/lumenflow/lumenflow/internal/infra/fsutil"
)

// Snapshot is the pre-image of every file the completion pipeline touches,
// keyed by absolute path. A nil content means the file did not exist.
type Snapshot struct {
	files map[string]*string
	order []string
}

// CaptureSnapshot reads the current content of paths.
func CaptureSnapshot(paths ...string) (*Snapshot, error) {
	s := &Snapshot{files: make(map[string]*string, len(paths))}
	for _, path := range paths {
		if _, dup := s.files[path]; dup {
			continue
		}
		data, found, err := fsutil.ReadOptional(path)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", path, err)
		}
		s.order = append(s.order, path)
		if !found {
			s.files[path] = nil
			continue
		}
		content := string(data)
		s.files[path] = &content
	}
	return s, nil
}

// Paths returns the captured paths in capture order.
func (s *Snapshot) Paths() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Content returns the captured content of path and whether it existed.
func (s *Snapshot) Content(path string) (string, bool) {
	c := s.files[path]
	if c == nil {
		return "", false
	}
	return *c, true
}

// FileRestore is the outcome of restoring one file.
type FileRestore struct {
	Err  error
	Path string
}

// Restore writes back the captured content of paths (all captured paths if
// paths is empty). Files that did not exist are removed. Every file is
// attempted even if an earlier one fails.
func (s *Snapshot) Restore(paths []string) []FileRestore {
	if len(paths) == 0 {
		paths = s.order
	}
	results := make([]FileRestore, 0, len(paths))
	for _, path := range paths {
		content, captured := s.files[path]
		var err error
		switch {
		case !captured:
			err = fmt.Errorf("%s was not captured", path)
		case content == nil:
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				err = rmErr
			}
		default:
			err = fsutil.WriteFileAtomic(path, []byte(*content))
		}
		results = append(results, FileRestore{Path: path, Err: err})
	}
	return results
}
