package invariants

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// excludedDirs are never descended into when resolving scope globs.
var excludedDirs = map[string]bool{
	"node_modules": true,
	"worktrees":    true,
	".next":        true,
	"dist":         true,
	".git":         true,
}

// matchFiles returns the slash-separated paths under baseDir matching any of
// the patterns, in walk order.
func matchFiles(baseDir string, patterns []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != baseDir && excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				files = append(files, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func exists(baseDir, rel string) bool {
	_, err := os.Stat(filepath.Join(baseDir, filepath.FromSlash(rel)))
	return err == nil
}

func readFile(baseDir, rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
