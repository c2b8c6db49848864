package markdown

import (
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
)

const placeholderPrefix = "(no items"

// MoveBulletOptions configures MoveBullet.
type MoveBulletOptions struct {
	FromSection   string // Heading text, with or without the leading "## "
	ToSection     string
	BulletPattern string // Token identifying the bullet(s) to remove, e.g. "WU-100"
	NewBullet     string // Full line inserted into ToSection
}

// MoveBullet removes every bullet containing the BulletPattern token from FromSection and
// inserts NewBullet as the first content line of ToSection, replacing a
// "(No items...)" placeholder when present.
//
// It is not idempotent: a bullet already present in ToSection is not de-duplicated.
func MoveBullet(path string, opts MoveBulletOptions) error {
	doc, err := ReadFile(path)
	if err != nil {
		return err
	}
	if err := doc.MoveBullet(opts, path); err != nil {
		return err
	}
	return WriteFile(path, doc)
}

// MoveBullet applies MoveBullet to an in-memory document.
// path is only used in error messages.
func (d *Document) MoveBullet(opts MoveBulletOptions, path string) error {
	lines := d.lines()

	fromStart, fromEnd, ok := findSection(lines, opts.FromSection)
	if !ok {
		return sectionNotFound(opts.FromSection, path)
	}
	if _, _, ok := findSection(lines, opts.ToSection); !ok {
		return sectionNotFound(opts.ToSection, path)
	}

	kept := make([]string, 0, len(lines))
	kept = append(kept, lines[:fromStart+1]...)
	for _, line := range lines[fromStart+1 : fromEnd] {
		if isBullet(line) && containsToken(line, opts.BulletPattern) {
			continue
		}
		kept = append(kept, line)
	}
	kept = append(kept, lines[fromEnd:]...)

	// Indices shift after removal.
	toStart, toEnd, _ := findSection(kept, opts.ToSection)
	d.setLines(insertIntoSection(kept, toStart, toEnd, opts.NewBullet))
	return nil
}

// AddBullet inserts bullet as the first content line of section.
func AddBullet(path, section, bullet string) error {
	doc, err := ReadFile(path)
	if err != nil {
		return err
	}
	lines := doc.lines()
	start, end, ok := findSection(lines, section)
	if !ok {
		return sectionNotFound(section, path)
	}
	doc.setLines(insertIntoSection(lines, start, end, bullet))
	return WriteFile(path, doc)
}

// SectionBullets returns the bullet lines of a section.
func (d *Document) SectionBullets(section string) ([]string, bool) {
	lines := d.lines()
	start, end, ok := findSection(lines, section)
	if !ok {
		return nil, false
	}
	var bullets []string
	for _, line := range lines[start+1 : end] {
		if isBullet(line) {
			bullets = append(bullets, line)
		}
	}
	return bullets, true
}

// SectionOf returns the heading of the section whose bullets contain the
// pattern token.
func (d *Document) SectionOf(pattern string) (string, bool) {
	heading := ""
	for _, line := range d.lines() {
		if h, ok := headingText(line); ok {
			heading = h
			continue
		}
		if heading != "" && isBullet(line) && containsToken(line, pattern) {
			return heading, true
		}
	}
	return "", false
}

func insertIntoSection(lines []string, start, end int, bullet string) []string {
	for i := start + 1; i < end; i++ {
		if isPlaceholder(lines[i]) {
			out := make([]string, len(lines))
			copy(out, lines)
			out[i] = bullet
			return out
		}
	}
	pos := start + 1
	for pos < end && strings.TrimSpace(lines[pos]) == "" {
		pos++
	}
	if pos == end {
		pos = start + 1
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:pos]...)
	out = append(out, bullet)
	out = append(out, lines[pos:]...)
	return out
}

// findSection returns the heading index and the exclusive end index of the
// section: the next "## " heading or EOF.
func findSection(lines []string, name string) (start, end int, ok bool) {
	want := normalizeHeading(name)
	start = -1
	for i, line := range lines {
		h, isHeading := headingText(line)
		if !isHeading {
			continue
		}
		if start >= 0 {
			return start, i, true
		}
		if strings.EqualFold(h, want) {
			start = i
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	return start, len(lines), true
}

func headingText(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "## ") {
		return "", false
	}
	return strings.TrimSpace(trimmed[3:]), true
}

func normalizeHeading(name string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(name), "#"))
}

func isBullet(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "+ ")
}

// containsToken reports whether pattern occurs in line without a word
// character on either side, so "WU-10" does not match "WU-100".
func containsToken(line, pattern string) bool {
	if pattern == "" {
		return false
	}
	for i := 0; ; {
		j := strings.Index(line[i:], pattern)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(pattern)
		if !joinsWord(line, start-1, pattern[0]) && !joinsWord(line, end, pattern[len(pattern)-1]) {
			return true
		}
		i = start + 1
	}
}

// joinsWord reports whether line[i] would extend the word that edge belongs to.
func joinsWord(line string, i int, edge byte) bool {
	if i < 0 || i >= len(line) {
		return false
	}
	return isWordByte(edge) && isWordByte(line[i])
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func isPlaceholder(line string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), placeholderPrefix)
}

func sectionNotFound(section, path string) error {
	return domain.NewError(domain.CodeSectionNotFound, "section %q not found in %s", "## "+normalizeHeading(section), path)
}
