package markdown

import (
	"fmt"
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// BacklogEntry is one WU rendered into backlog.md.
type BacklogEntry struct {
	WUID   string
	Title  string
	Link   string // Path relative to the backlog file
	Status domain.Status
}

// FormatBullet renders the bullet line for a WU.
func FormatBullet(wuID, title, link string) string {
	return fmt.Sprintf("- [%s: %s](%s)", wuID, title, link)
}

// RenderBacklog renders backlog.md with one section per status in the order
// ready, in progress, blocked, waiting, completed. Entries keep their given
// order within a section. frontmatter is emitted verbatim.
func RenderBacklog(frontmatter string, sections domain.SectionsConfig, entries []BacklogEntry) string {
	return render(frontmatter, "Backlog", sections, entries)
}

// RenderEmptyStatus renders a status.md with every configured section empty.
func RenderEmptyStatus(sections domain.SectionsConfig) string {
	return render("", "Status", sections, nil)
}

func render(frontmatter, title string, sections domain.SectionsConfig, entries []BacklogEntry) string {
	order := []domain.Status{
		domain.StatusReady,
		domain.StatusInProgress,
		domain.StatusBlocked,
		domain.StatusWaiting,
		domain.StatusDone,
	}

	var b strings.Builder
	b.WriteString(frontmatter)
	b.WriteString("# " + title + "\n")
	for _, status := range order {
		heading := sections.ForStatus(status)
		if heading == "" {
			continue
		}
		b.WriteString("\n## ")
		b.WriteString(heading)
		b.WriteString("\n\n")
		n := 0
		for _, e := range entries {
			if e.Status != status {
				continue
			}
			b.WriteString(FormatBullet(e.WUID, e.Title, e.Link))
			b.WriteString("\n")
			n++
		}
		if n == 0 {
			b.WriteString("(No items)\n")
		}
	}
	return b.String()
}
