package shared

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/eventstore"
	"github.com/lumenflow/lumenflow/internal/infra/markdown"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/testutil"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

const testStatus = `# Status

## Ready

- [WU-2: Write docs](wu/WU-2.yaml)

## In Progress

- [WU-1: Add parser](wu/WU-1.yaml)

## Blocked

(No items)

## Waiting

(No items)

## Completed

(No items)
`

// metadataFixture is a checkout with two WUs: WU-1 claimed, WU-2 untracked.
type metadataFixture struct {
	cfg    *domain.Config
	clock  *testutil.MockClock
	layout Layout
}

func newMetadataFixture(t *testing.T) *metadataFixture {
	t.Helper()
	cfg := domain.NewDefaultConfig()
	f := &metadataFixture{
		cfg:    cfg,
		clock:  &testutil.MockClock{NowTime: testNow},
		layout: NewLayout(t.TempDir(), cfg.Directories),
	}
	wus := wustore.New(f.layout.WUDir())
	require.NoError(t, wus.Save(&domain.WU{ID: "WU-1", Title: "Add parser", Lane: "Core", Status: domain.StatusInProgress}))
	require.NoError(t, wus.Save(&domain.WU{ID: "WU-2", Title: "Write docs", Lane: "Docs", Status: domain.StatusReady}))

	writeTestFile(t, f.layout.StatusPath(), testStatus)
	writeTestFile(t, f.layout.BacklogPath(), "---\nsections: standard\nowner: core\n---\n# Backlog\n")

	store := eventstore.New(f.clock)
	require.NoError(t, store.ApplyEvent(domain.NewClaimEvent("WU-1", "Core", "Add parser", testNow.Add(-time.Hour))))
	require.NoError(t, os.MkdirAll(filepath.Dir(f.layout.EventLogPath()), 0o755))
	require.NoError(t, store.Save(f.layout.EventLogPath()))
	return f
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestBullet(t *testing.T) {
	layout := NewLayout("/repo", domain.NewDefaultConfig().Directories)
	wu := &domain.WU{ID: "WU-9", Title: "Fix lexer"}

	assert.Equal(t, "- [WU-9: Fix lexer](wu/WU-9.yaml)", Bullet(layout, layout.StatusPath(), wu))
}

func TestMoveStatusBullet(t *testing.T) {
	f := newMetadataFixture(t)
	wu := &domain.WU{ID: "WU-1", Title: "Add parser"}

	require.NoError(t, MoveStatusBullet(f.layout, f.cfg.Sections, wu, domain.StatusInProgress, domain.StatusBlocked))

	got := readTestFile(t, f.layout.StatusPath())
	assert.Contains(t, got, "## Blocked\n\n- [WU-1: Add parser](wu/WU-1.yaml)\n")
	assert.Contains(t, got, "## In Progress\n\n\n## Blocked", "the source section keeps its heading")
	assert.Equal(t, 1, strings.Count(got, "WU-1:"))
}

func TestMoveStatusBullet_KeepsPrefixedIDs(t *testing.T) {
	f := newMetadataFixture(t)
	status := "## Ready\n\n- [WU-100: Other](wu/WU-100.yaml)\n- [WU-10: Mine](wu/WU-10.yaml)\n\n## In Progress\n\n## Blocked\n\n## Waiting\n\n## Completed\n"
	require.NoError(t, os.WriteFile(f.layout.StatusPath(), []byte(status), 0o644))

	wu := &domain.WU{ID: "WU-10", Title: "Mine"}
	require.NoError(t, MoveStatusBullet(f.layout, f.cfg.Sections, wu, domain.StatusReady, domain.StatusInProgress))

	doc, err := markdown.ReadFile(f.layout.StatusPath())
	require.NoError(t, err)
	ready, _ := doc.SectionBullets("Ready")
	assert.Equal(t, []string{"- [WU-100: Other](wu/WU-100.yaml)"}, ready)
	inProgress, _ := doc.SectionBullets("In Progress")
	assert.Equal(t, []string{"- [WU-10: Mine](wu/WU-10.yaml)"}, inProgress)
}

func TestMoveStatusBullet_MissingSection(t *testing.T) {
	f := newMetadataFixture(t)
	f.cfg.Sections.Blocked = "On Hold"

	err := MoveStatusBullet(f.layout, f.cfg.Sections, &domain.WU{ID: "WU-1"}, domain.StatusInProgress, domain.StatusBlocked)

	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeSectionNotFound))
}

func TestBacklogEntries(t *testing.T) {
	f := newMetadataFixture(t)
	store, err := eventstore.Load(f.layout.EventLogPath(), f.clock)
	require.NoError(t, err)
	require.NoError(t, store.ApplyEvent(domain.NewBlockEvent("WU-1", "api", testNow)))
	require.NoError(t, store.ApplyEvent(domain.NewClaimEvent("WU-30", "Core", "From main", testNow)))
	wus, err := wustore.New(f.layout.WUDir()).List()
	require.NoError(t, err)

	entries := BacklogEntries(f.layout, store, wus)

	require.Len(t, entries, 3)
	assert.Equal(t, "WU-1", entries[0].WUID)
	assert.Equal(t, domain.StatusBlocked, entries[0].Status, "tracked WUs use the event state")
	assert.Equal(t, domain.StatusReady, entries[1].Status, "untracked WUs use the document")
	assert.Equal(t, "WU-30", entries[2].WUID)
	assert.Equal(t, "From main", entries[2].Title)
	assert.Equal(t, "wu/WU-30.yaml", entries[2].Link)
}

func TestRenderBacklog_KeepsFrontmatter(t *testing.T) {
	f := newMetadataFixture(t)
	store, err := eventstore.Load(f.layout.EventLogPath(), f.clock)
	require.NoError(t, err)
	wus, err := wustore.New(f.layout.WUDir()).List()
	require.NoError(t, err)

	got, err := RenderBacklog(f.layout, f.cfg.Sections, store, wus)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "---\nsections: standard\nowner: core\n---\n"))
	assert.Contains(t, got, "- [WU-1: Add parser](wu/WU-1.yaml)")
	assert.Contains(t, got, "- [WU-2: Write docs](wu/WU-2.yaml)")
}

func TestRenderBacklog_NoExistingFile(t *testing.T) {
	f := newMetadataFixture(t)
	require.NoError(t, os.Remove(f.layout.BacklogPath()))

	got, err := RenderBacklog(f.layout, f.cfg.Sections, eventstore.New(f.clock), nil)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "# Backlog"))
}
