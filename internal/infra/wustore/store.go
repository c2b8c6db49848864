// Package wustore provides a file-based implementation of WURepository.
// Each WU is a YAML document at <wuDir>/<id>.yaml.
package wustore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/fsutil"
)

// Ensure Store implements domain.WURepository interface.
var _ domain.WURepository = (*Store)(nil)

// Store reads and writes WU documents under a single directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir (absolute).
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding the WU documents.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path of the document for id.
func (s *Store) Path(id string) string {
	return domain.WUPath(s.dir, id)
}

// Get retrieves a WU by ID.
func (s *Store) Get(id string) (*domain.WU, error) {
	return ReadFile(s.Path(id))
}

// List returns all WU documents sorted by numeric ID.
// Files that are not named WU-<n>.yaml are skipped.
func (s *Store) List() ([]*domain.WU, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read wu directory: %w", err)
	}

	type numbered struct {
		wu *domain.WU
		n  int
	}
	var docs []numbered
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		n, parseErr := domain.ParseWUNumber(id)
		if parseErr != nil {
			continue
		}
		wu, readErr := ReadFile(filepath.Join(s.dir, entry.Name()))
		if readErr != nil {
			return nil, readErr
		}
		docs = append(docs, numbered{wu: wu, n: n})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].n < docs[j].n })

	wus := make([]*domain.WU, len(docs))
	for i, d := range docs {
		wus[i] = d.wu
	}
	return wus, nil
}

// Save validates and writes a WU document.
func (s *Store) Save(wu *domain.WU) error {
	if err := wu.Validate(); err != nil {
		return err
	}
	return WriteFile(s.Path(wu.ID), wu)
}

// ReadFile reads a single WU document.
func ReadFile(path string) (*domain.WU, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrWUNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data, path)
}

// Decode parses a WU document. path is only used in error messages.
func Decode(data []byte, path string) (*domain.WU, error) {
	var wu domain.WU
	if err := yaml.Unmarshal(data, &wu); err != nil {
		return nil, domain.WrapError(domain.CodeYAMLParse, err, "parse %s", path)
	}
	return &wu, nil
}

// Encode renders a WU document as YAML with two-space indentation.
func Encode(wu *domain.WU) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(wu); err != nil {
		return nil, fmt.Errorf("encode %s: %w", wu.ID, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", wu.ID, err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes a WU document to path.
func WriteFile(path string, wu *domain.WU) error {
	data, err := Encode(wu)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data)
}
