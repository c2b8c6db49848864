package shared

import (
	"path/filepath"
	"sort"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/eventstore"
	"github.com/lumenflow/lumenflow/internal/infra/markdown"
)

// Bullet renders the markdown line referencing wu from the file at mdPath.
func Bullet(layout Layout, mdPath string, wu *domain.WU) string {
	return markdown.FormatBullet(wu.ID, wu.Title, link(mdPath, layout.WUPath(wu.ID)))
}

func link(fromFile, target string) string {
	rel, err := filepath.Rel(filepath.Dir(fromFile), target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

// MoveStatusBullet moves wu's bullet in status.md between the sections of
// two statuses.
func MoveStatusBullet(layout Layout, sections domain.SectionsConfig, wu *domain.WU, from, to domain.Status) error {
	path := layout.StatusPath()
	return markdown.MoveBullet(path, markdown.MoveBulletOptions{
		FromSection:   sections.ForStatus(from),
		ToSection:     sections.ForStatus(to),
		BulletPattern: wu.ID,
		NewBullet:     Bullet(layout, path, wu),
	})
}

// BacklogEntries derives one entry per WU. The event store decides the status
// of tracked WUs; untracked WUs keep the status declared in their document.
func BacklogEntries(layout Layout, store *eventstore.Store, wus []*domain.WU) []markdown.BacklogEntry {
	backlog := layout.BacklogPath()
	seen := make(map[string]bool, len(wus))
	entries := make([]markdown.BacklogEntry, 0, len(wus))

	for _, wu := range wus {
		seen[wu.ID] = true
		status := wu.Status
		if state, ok := store.WUState(wu.ID); ok && state.Status.IsValid() {
			status = state.Status
		}
		entries = append(entries, markdown.BacklogEntry{
			WUID:   wu.ID,
			Title:  wu.Title,
			Link:   link(backlog, layout.WUPath(wu.ID)),
			Status: status,
		})
	}

	// Events can reference WUs whose documents are not present in this
	// checkout yet (created on main after the branch point).
	var extra []string
	for _, id := range store.WUIDs() {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return wuLess(extra[i], extra[j]) })
	for _, id := range extra {
		state, _ := store.WUState(id)
		entries = append(entries, markdown.BacklogEntry{
			WUID:   id,
			Title:  state.Title,
			Link:   link(backlog, layout.WUPath(id)),
			Status: state.Status,
		})
	}
	return entries
}

func wuLess(a, b string) bool {
	na, errA := domain.ParseWUNumber(a)
	nb, errB := domain.ParseWUNumber(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return na < nb
}

// RenderBacklog regenerates backlog.md content, keeping the existing
// frontmatter byte-for-byte.
func RenderBacklog(layout Layout, sections domain.SectionsConfig, store *eventstore.Store, wus []*domain.WU) (string, error) {
	frontmatter := ""
	doc, err := markdown.ReadFile(layout.BacklogPath())
	switch {
	case err == nil:
		frontmatter = doc.Frontmatter
	case domain.HasCode(err, domain.CodeFileNotFound):
	default:
		return "", err
	}
	return markdown.RenderBacklog(frontmatter, sections, BacklogEntries(layout, store, wus)), nil
}
