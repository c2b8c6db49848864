package usecase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/eventstore"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
	"github.com/lumenflow/lumenflow/internal/testutil"
	"github.com/lumenflow/lumenflow/internal/usecase/shared"
)

// boolPtr returns a pointer to the given bool value.
func boolPtr(b bool) *bool {
	return &b
}

var fixtureNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// wuFixture is a main checkout plus one lane worktree on disk, with mocked git.
type wuFixture struct {
	t         *testing.T
	cfg       *domain.Config
	git       *testutil.MockGit
	worktrees *testutil.MockWorktreeManager
	refs      *testutil.MockRefReader
	executor  *testutil.MockExecutor
	clock     *testutil.MockClock
	logger    *testutil.MockLogger
	root      string
	wt        string
	main      shared.Layout
	tree      shared.Layout
}

func newWUFixture(t *testing.T) *wuFixture {
	t.Helper()
	cfg := domain.NewDefaultConfig()
	cfg.Git.Push = boolPtr(false)
	root := t.TempDir()
	wt := t.TempDir()
	return &wuFixture{
		t:         t,
		cfg:       cfg,
		git:       testutil.NewMockGit(root),
		worktrees: testutil.NewMockWorktreeManager(),
		refs:      testutil.NewMockRefReader(),
		executor:  testutil.NewMockExecutor(),
		clock:     &testutil.MockClock{NowTime: fixtureNow},
		logger:    &testutil.MockLogger{},
		root:      root,
		wt:        wt,
		main:      shared.NewLayout(root, cfg.Directories),
		tree:      shared.NewLayout(wt, cfg.Directories),
	}
}

func sampleWU(id string, status domain.Status) *domain.WU {
	return &domain.WU{
		ID:        id,
		Title:     "Add parser",
		Lane:      "Framework: Core",
		Type:      domain.WUTypeFeature,
		Status:    status,
		CodePaths: []string{"src/parser.go"},
		Tests:     domain.WUTests{Unit: []string{"src/parser_test.go"}},
	}
}

func doneWU(id string) *domain.WU {
	wu := sampleWU(id, domain.StatusInProgress)
	wu.MarkDone(claimedAt(0))
	return wu
}

func (f *wuFixture) writeFile(path, content string) {
	f.t.Helper()
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(f.t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *wuFixture) readFile(path string) string {
	f.t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(f.t, err)
	return string(data)
}

// writeWUs writes the documents and a status.md listing them under layout.
func (f *wuFixture) writeWUs(layout shared.Layout, wus ...*domain.WU) {
	f.t.Helper()
	store := wustore.New(layout.WUDir())
	for _, wu := range wus {
		require.NoError(f.t, store.Save(wu))
	}
	f.writeFile(layout.StatusPath(), f.renderStatus(layout, wus...))
	f.writeFile(layout.BacklogPath(), "---\nsections: standard\n---\n# Backlog\n")
}

func (f *wuFixture) renderStatus(layout shared.Layout, wus ...*domain.WU) string {
	s := f.cfg.Sections
	var b strings.Builder
	b.WriteString("# Status\n")
	for _, heading := range []string{s.Ready, s.InProgress, s.Blocked, s.Waiting, s.Completed} {
		b.WriteString("\n## " + heading + "\n\n")
		n := 0
		for _, wu := range wus {
			if s.ForStatus(wu.Status) == heading {
				b.WriteString(shared.Bullet(layout, layout.StatusPath(), wu) + "\n")
				n++
			}
		}
		if n == 0 {
			b.WriteString("(No items)\n")
		}
	}
	return b.String()
}

// writeEvents saves events as the event log under layout.
func (f *wuFixture) writeEvents(layout shared.Layout, events ...domain.Event) {
	f.t.Helper()
	f.writeFile(layout.EventLogPath(), string(f.marshalEvents(events...)))
}

func (f *wuFixture) marshalEvents(events ...domain.Event) []byte {
	f.t.Helper()
	store := eventstore.New(f.clock)
	for _, e := range events {
		require.NoError(f.t, store.ApplyEvent(e))
	}
	data, err := store.Marshal()
	require.NoError(f.t, err)
	return data
}

func (f *wuFixture) loadEvents(layout shared.Layout) *eventstore.Store {
	f.t.Helper()
	store, err := eventstore.Load(layout.EventLogPath(), f.clock)
	require.NoError(f.t, err)
	return store
}

func (f *wuFixture) loadWU(layout shared.Layout, id string) *domain.WU {
	f.t.Helper()
	wu, err := wustore.New(layout.WUDir()).Get(id)
	require.NoError(f.t, err)
	return wu
}

func (f *wuFixture) sectionOf(layout shared.Layout, id string) string {
	f.t.Helper()
	content := f.readFile(layout.StatusPath())
	heading := ""
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "## ") {
			heading = strings.TrimPrefix(line, "## ")
			continue
		}
		if strings.HasPrefix(line, "- ") && strings.Contains(line, id) {
			return heading
		}
	}
	return ""
}

func claimedAt(offset time.Duration) time.Time {
	return fixtureNow.Add(-time.Hour).Add(offset)
}
