package eventstore

import (
	"sort"
	"time"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// MergeStateStores unions two event logs that diverged when a lane was claimed:
// the worktree-local copy and main's current log.
//
// Events are de-duplicated by domain.Event.Key, ordered by timestamp with
// source order (worktree first, then main) as the tie-break, and replayed into
// a fresh store. No event from either source is lost.
func MergeStateStores(worktree, main *Store) (*Store, error) {
	type entry struct {
		at    time.Time
		event domain.Event
		seq   int
	}

	seen := make(map[string]bool)
	var entries []entry
	for _, src := range []*Store{worktree, main} {
		if src == nil {
			continue
		}
		for _, e := range src.events {
			key := e.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			at, err := e.Time()
			if err != nil {
				return nil, domain.WrapError(domain.CodeValidation, err, "%s event for %s", e.Type, e.WUID)
			}
			entries = append(entries, entry{at: at, event: e, seq: len(entries)})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].at.Equal(entries[j].at) {
			return entries[i].seq < entries[j].seq
		}
		return entries[i].at.Before(entries[j].at)
	})

	var clock domain.Clock
	if worktree != nil {
		clock = worktree.clock
	} else if main != nil {
		clock = main.clock
	}
	merged := New(clock)
	for _, en := range entries {
		if err := merged.ApplyEvent(en.event); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// ComputeCompletionUpdate merges the two logs and appends a fresh complete
// event for wuID.
//
// It returns nil when the merged stream already holds a complete event for
// wuID: the logs have converged and the caller must skip the write entirely.
func ComputeCompletionUpdate(worktree, main *Store, wuID string) (*Store, error) {
	merged, err := MergeStateStores(worktree, main)
	if err != nil {
		return nil, err
	}
	if merged.HasEvent(wuID, domain.EventComplete) {
		return nil, nil
	}
	if err := merged.ApplyEvent(merged.CreateCompleteEvent(wuID)); err != nil {
		return nil, err
	}
	return merged, nil
}
