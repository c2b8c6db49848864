package shared

import (
	"fmt"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/eventstore"
	"github.com/lumenflow/lumenflow/internal/infra/fsutil"
	"github.com/lumenflow/lumenflow/internal/infra/markdown"
	"github.com/lumenflow/lumenflow/internal/infra/wustore"
)

// Change is one lifecycle transition applied to a checkout.
// Fields are ordered to minimize memory padding.
type Change struct {
	// WU is the document after the change. Nil for event-only changes.
	WU    *domain.WU
	Event *domain.Event
	WUID  string
	// From and To select the status.md sections the bullet moves between.
	// Equal values leave status.md alone.
	From    domain.Status
	To      domain.Status
	Message string // Commit message
	// AddBullet inserts a new bullet into the To section instead of moving one.
	AddBullet bool
}

// MetadataWriter writes lifecycle changes to the workflow files of one
// checkout and commits them. A failed write or commit restores every file to
// its previous content.
type MetadataWriter struct {
	git      domain.Git
	clock    domain.Clock
	logger   domain.Logger
	sections domain.SectionsConfig
	layout   Layout
}

// NewMetadataWriter creates a MetadataWriter. git must be bound to layout.Root.
func NewMetadataWriter(git domain.Git, layout Layout, sections domain.SectionsConfig, clock domain.Clock, logger domain.Logger) *MetadataWriter {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &MetadataWriter{git: git, layout: layout, sections: sections, clock: clock, logger: logger}
}

// Layout returns the checkout the writer is bound to.
func (w *MetadataWriter) Layout() Layout {
	return w.layout
}

// Apply writes and commits the change.
func (w *MetadataWriter) Apply(c Change) error {
	paths := []string{w.layout.StatusPath(), w.layout.BacklogPath(), w.layout.EventLogPath()}
	if c.WU != nil {
		paths = append([]string{w.layout.WUPath(c.WU.ID)}, paths...)
	}
	snapshot, err := CaptureSnapshot(paths...)
	if err != nil {
		return err
	}

	if err := w.write(c); err != nil {
		w.restore(snapshot, c.WUID)
		return err
	}

	rels := make([]string, len(paths))
	for i, p := range paths {
		rels[i] = w.layout.Rel(p)
	}
	if err := w.git.Add(rels...); err != nil {
		w.restore(snapshot, c.WUID)
		return err
	}
	if err := w.git.Commit(c.Message); err != nil {
		if _, resetErr := w.git.Raw(append([]string{"reset", "-q", "--"}, rels...)...); resetErr != nil {
			w.logger.Warn(c.WUID, "metadata", fmt.Sprintf("unstage after failed commit: %v", resetErr))
		}
		w.restore(snapshot, c.WUID)
		return err
	}
	w.logger.Info(c.WUID, "metadata", "committed: "+c.Message)
	return nil
}

func (w *MetadataWriter) write(c Change) error {
	wus := wustore.New(w.layout.WUDir())
	if c.WU != nil {
		if err := wus.Save(c.WU); err != nil {
			return err
		}
	}

	statusPath := w.layout.StatusPath()
	switch {
	case c.AddBullet:
		if c.WU == nil {
			return domain.NewError(domain.CodeValidation, "%s: a new bullet needs the WU document", c.WUID)
		}
		if err := markdown.AddBullet(statusPath, w.sections.ForStatus(c.To), Bullet(w.layout, statusPath, c.WU)); err != nil {
			return err
		}
	case c.WU != nil && c.From != c.To:
		if err := MoveStatusBullet(w.layout, w.sections, c.WU, c.From, c.To); err != nil {
			return err
		}
	}

	store, err := eventstore.Load(w.layout.EventLogPath(), w.clock)
	if err != nil {
		return err
	}
	if c.Event != nil {
		if err := store.ApplyEvent(*c.Event); err != nil {
			return err
		}
		if err := store.Save(w.layout.EventLogPath()); err != nil {
			return err
		}
	}

	docs, err := wus.List()
	if err != nil {
		return err
	}
	backlog, err := RenderBacklog(w.layout, w.sections, store, docs)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(w.layout.BacklogPath(), []byte(backlog))
}

func (w *MetadataWriter) restore(snapshot *Snapshot, wuID string) {
	for _, f := range snapshot.Restore(nil) {
		if f.Err != nil {
			w.logger.Error(wuID, "metadata", fmt.Sprintf("restore %s failed: %v", f.Path, f.Err))
		}
	}
}
