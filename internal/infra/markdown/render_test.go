package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenflow/lumenflow/internal/domain"
)

func TestRenderBacklog(t *testing.T) {
	sections := domain.NewDefaultConfig().Sections
	entries := []BacklogEntry{
		{WUID: "WU-2", Title: "Deploy", Link: "wu/WU-2.yaml", Status: domain.StatusReady},
		{WUID: "WU-1", Title: "Parser", Link: "wu/WU-1.yaml", Status: domain.StatusDone},
		{WUID: "WU-3", Title: "Docs", Link: "wu/WU-3.yaml", Status: domain.StatusReady},
	}

	got := RenderBacklog("---\nkind: backlog\n---\n", sections, entries)

	want := `---
kind: backlog
---
# Backlog

## Ready

- [WU-2: Deploy](wu/WU-2.yaml)
- [WU-3: Docs](wu/WU-3.yaml)

## In Progress

(No items)

## Blocked

(No items)

## Waiting

(No items)

## Completed

- [WU-1: Parser](wu/WU-1.yaml)
`
	assert.Equal(t, want, got)
}

func TestRenderBacklog_SkipsUnconfiguredSections(t *testing.T) {
	sections := domain.SectionsConfig{Ready: "Ready", Completed: "Done"}

	got := RenderBacklog("", sections, nil)

	assert.Equal(t, "# Backlog\n\n## Ready\n\n(No items)\n\n## Done\n\n(No items)\n", got)
}

func TestRenderEmptyStatus(t *testing.T) {
	doc := Parse(RenderEmptyStatus(domain.NewDefaultConfig().Sections))

	for _, section := range []string{"Ready", "In Progress", "Blocked", "Waiting", "Completed"} {
		bullets, ok := doc.SectionBullets(section)
		assert.True(t, ok, section)
		assert.Empty(t, bullets, section)
	}
	assert.Contains(t, doc.String(), "# Status\n")
}
