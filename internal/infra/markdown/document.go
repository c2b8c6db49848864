// Package markdown edits the rendered status.md and backlog.md views.
//
// Files are organized into "## " sections holding one bullet per WU. A leading
// YAML frontmatter block is carried through every edit byte-for-byte.
package markdown

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/fsutil"
)

const frontmatterDelim = "---"

// Document is a markdown file split into its frontmatter and body.
type Document struct {
	Frontmatter string // Verbatim, including delimiters and trailing newline; empty if absent
	Body        string
}

// Parse splits content into frontmatter and body.
// Frontmatter is recognized only when the file starts with a "---" line
// and a closing "---" line follows.
func Parse(content string) *Document {
	first, rest, found := strings.Cut(content, "\n")
	if !found || strings.TrimRight(first, "\r") != frontmatterDelim {
		return &Document{Body: content}
	}
	offset := len(first) + 1
	for rest != "" {
		line, next, more := strings.Cut(rest, "\n")
		lineLen := len(line)
		if more {
			lineLen++
		}
		offset += lineLen
		if strings.TrimRight(line, "\r") == frontmatterDelim {
			return &Document{Frontmatter: content[:offset], Body: content[offset:]}
		}
		rest = next
	}
	return &Document{Body: content}
}

// String reassembles the document.
func (d *Document) String() string {
	return d.Frontmatter + d.Body
}

// ReadFile reads and parses a markdown file.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewError(domain.CodeFileNotFound, "markdown file not found: %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(string(data)), nil
}

// WriteFile writes the document to path.
func WriteFile(path string, doc *Document) error {
	return fsutil.WriteFileAtomic(path, []byte(doc.String()))
}

func (d *Document) lines() []string {
	return strings.Split(d.Body, "\n")
}

func (d *Document) setLines(lines []string) {
	d.Body = strings.Join(lines, "\n")
}
