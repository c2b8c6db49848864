// Package eventstore provides the append-only WU lifecycle event log.
//
// The log is newline-delimited JSON, one event per line. Derived WU state is
// the fold of each WU's events in file order; the log is never re-sorted.
package eventstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/lumenflow/lumenflow/internal/domain"
	"github.com/lumenflow/lumenflow/internal/infra/fsutil"
)

// Store holds an event log and the state derived from it.
// Fields are ordered to minimize memory padding.
type Store struct {
	clock  domain.Clock
	states map[string]domain.WUState
	events []domain.Event
}

// New creates an empty store.
func New(clock domain.Clock) *Store {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Store{
		clock:  clock,
		states: make(map[string]domain.WUState),
	}
}

// Parse builds a store from NDJSON content. Blank lines are ignored.
// Any malformed or schema-invalid line fails the whole parse.
func Parse(data []byte, clock domain.Clock) (*Store, error) {
	s := New(clock)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e domain.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, domain.WrapError(domain.CodeValidation, err, "event log line %d: malformed JSON", lineNo)
		}
		if err := s.ApplyEvent(e); err != nil {
			return nil, fmt.Errorf("event log line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return s, nil
}

// Load reads the event log at path. A missing file yields an empty store.
func Load(path string, clock domain.Clock) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(clock), nil
		}
		return nil, fmt.Errorf("read event log %s: %w", path, err)
	}
	s, err := Parse(data, clock)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ApplyEvent validates and appends an event, then refolds the state of its WU.
func (s *Store) ApplyEvent(e domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.events = append(s.events, e)
	s.states[e.WUID] = s.states[e.WUID].Apply(e)
	return nil
}

// WUState returns the derived state of a WU.
// The second result is false when no events exist for the WU; callers must
// then fall back to the status declared in its YAML document.
func (s *Store) WUState(wuID string) (domain.WUState, bool) {
	st, ok := s.states[wuID]
	return st, ok
}

// Events returns a copy of the log in file order.
func (s *Store) Events() []domain.Event {
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// EventsFor returns the events of one WU in file order.
func (s *Store) EventsFor(wuID string) []domain.Event {
	var out []domain.Event
	for _, e := range s.events {
		if e.WUID == wuID {
			out = append(out, e)
		}
	}
	return out
}

// HasEvent returns true if the log already holds an event of typ for wuID.
func (s *Store) HasEvent(wuID string, typ domain.EventType) bool {
	for _, e := range s.events {
		if e.WUID == wuID && e.Type == typ {
			return true
		}
	}
	return false
}

// WUIDs returns the tracked WU IDs in order of first appearance.
func (s *Store) WUIDs() []string {
	seen := make(map[string]bool, len(s.states))
	var ids []string
	for _, e := range s.events {
		if !seen[e.WUID] {
			seen[e.WUID] = true
			ids = append(ids, e.WUID)
		}
	}
	return ids
}

// ByStatus returns the derived states with the given status, sorted by WU number.
func (s *Store) ByStatus(status domain.Status) []domain.WUState {
	var out []domain.WUState
	for _, st := range s.states {
		if st.Status == status {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := domain.ParseWUNumber(out[i].WUID)
		b, _ := domain.ParseWUNumber(out[j].WUID)
		return a < b
	})
	return out
}

// Len returns the number of events.
func (s *Store) Len() int {
	return len(s.events)
}

// Clock returns the clock used by the Create* helpers.
func (s *Store) Clock() domain.Clock {
	return s.clock
}

// CreateCompleteEvent returns a complete event for wuID stamped with the current time.
func (s *Store) CreateCompleteEvent(wuID string) domain.Event {
	return domain.NewCompleteEvent(wuID, s.clock.Now())
}

// CreateClaimEvent returns a claim event stamped with the current time.
func (s *Store) CreateClaimEvent(wuID, lane, title string) domain.Event {
	return domain.NewClaimEvent(wuID, lane, title, s.clock.Now())
}

// CreateBlockEvent returns a block event stamped with the current time.
func (s *Store) CreateBlockEvent(wuID, reason string) domain.Event {
	return domain.NewBlockEvent(wuID, reason, s.clock.Now())
}

// CreateUnblockEvent returns an unblock event stamped with the current time.
func (s *Store) CreateUnblockEvent(wuID string) domain.Event {
	return domain.NewUnblockEvent(wuID, s.clock.Now())
}

// CreateReleaseEvent returns a release event stamped with the current time.
func (s *Store) CreateReleaseEvent(wuID, reason string) domain.Event {
	return domain.NewReleaseEvent(wuID, reason, s.clock.Now())
}

// Marshal renders the log as NDJSON.
func (s *Store) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range s.events {
		line, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode %s event for %s: %w", e.Type, e.WUID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Save writes the log to path via a temp file and rename.
func (s *Store) Save(path string) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data)
}
